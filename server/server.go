package main

/*
This application serves the window index of a built corpus over HTTP so
that remote training workers can fetch their shard of a partition.
*/

import (
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/hb9tf/rfi/corpus"
	"github.com/hb9tf/rfi/dataset"
)

var (
	listen       = flag.String("listen", ":8443", "")
	certFile     = flag.String("certFile", "", "Path of the file containing the certificate (including the chained intermediates and root) for the TLS connection.")
	keyFile      = flag.String("keyFile", "", "Path of the file containing the key for the TLS connection.")
	corpusFile   = flag.String("corpus", "../data/corpus.db", "Corpus container built by the rfi tool.")
	trainPct     = flag.Float64("trainingPercentage", 80, "Percentage of windows used for training.")
	validPct     = flag.Float64("validationPercentage", 10, "Percentage of windows used for validation.")
	seqLength    = flag.Int("sequenceLength", 32, "Number of samples per window.")
	numProcesses = flag.Int("numProcesses", 1, "Number of ranks partitions are sharded across.")
	usingGPU     = flag.Bool("gpu", false, "Serve whole partitions regardless of the requested rank.")
	seed         = flag.Uint64("seed", 0, "Seed for the window shuffle, 0 picks a random one.")
)

const (
	apiPrefix         = "/rfi/v1"
	partitionEndpoint = "/partitions/:partition"
	windowEndpoint    = "/partitions/:partition/windows/:index"
	infoEndpoint      = "/info"
)

type WindowServer struct {
	data   *dataset.Data
	header corpus.Header
}

type partitionResponse struct {
	Partition string `json:"partition"`
	Length    int    `json:"length"`
}

type windowResponse struct {
	Index    int       `json:"index"`
	Features []float64 `json:"features"`
	Label    []float64 `json:"label"`
}

type infoResponse struct {
	BuildID        string  `json:"build_id"`
	Version        string  `json:"version"`
	NumberChannels int     `json:"number_channels"`
	NumberClasses  int     `json:"number_classes"`
	LengthData     int     `json:"length_data"`
	SequenceLength int     `json:"sequence_length"`
	FeatureLength  int     `json:"feature_length"`
	NumProcesses   int     `json:"num_processes"`
	GlobalMedian   float64 `json:"global_median"`
	GlobalMAD      float64 `json:"global_mad"`
	GlobalMean     float64 `json:"global_mean"`
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// view resolves the partition and the optional rank and shortRunSize
// query parameters of a request.
func (s *WindowServer) view(c *gin.Context) (*dataset.View, bool) {
	p, err := dataset.ParsePartition(c.Param("partition"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return nil, false
	}
	var opts []dataset.SelectOption
	if raw, ok := c.GetQuery("rank"); ok {
		rank, err := strconv.Atoi(raw)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return nil, false
		}
		opts = append(opts, dataset.WithRank(rank))
	}
	if raw, ok := c.GetQuery("shortRunSize"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return nil, false
		}
		opts = append(opts, dataset.WithShortRun(n))
	}
	v, err := s.data.Select(p, opts...)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return nil, false
	}
	return v, true
}

func (s *WindowServer) partitionHandler(c *gin.Context) {
	v, ok := s.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, partitionResponse{Partition: c.Param("partition"), Length: v.Len()})
}

func (s *WindowServer) windowHandler(c *gin.Context) {
	v, ok := s.view(c)
	if !ok {
		return
	}
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	features, label, err := v.Get(i)
	switch {
	case errors.Is(err, dataset.ErrIndexOutOfRange):
		abort(c, http.StatusNotFound, err)
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, windowResponse{Index: i, Features: features, Label: label})
}

func (s *WindowServer) infoHandler(c *gin.Context) {
	median, mad, mean := s.data.GlobalStats()
	c.JSON(http.StatusOK, infoResponse{
		BuildID:        s.header.BuildID,
		Version:        s.header.Version,
		NumberChannels: s.header.NumberChannels,
		NumberClasses:  s.header.NumberClasses,
		LengthData:     s.data.LengthData(),
		SequenceLength: s.data.SequenceLength(),
		FeatureLength:  s.data.FeatureLength(),
		NumProcesses:   s.data.NumProcesses(),
		GlobalMedian:   median,
		GlobalMAD:      mad,
		GlobalMean:     mean,
	})
}

// Router registers the window endpoints.
func (s *WindowServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group(apiPrefix)
	api.GET(partitionEndpoint, s.partitionHandler)
	api.GET(windowEndpoint, s.windowHandler)
	api.GET(infoEndpoint, s.infoHandler)
	return r
}

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	c, err := corpus.Open(*corpusFile, *trainPct, *validPct)
	if err != nil {
		glog.Exitf("unable to open corpus %q: %s", *corpusFile, err)
	}
	opts := dataset.Options{
		SequenceLength:       *seqLength,
		TrainingPercentage:   *trainPct,
		ValidationPercentage: *validPct,
		NumProcesses:         *numProcesses,
		UsingGPU:             *usingGPU,
	}
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(*seed, *seed))
	}
	d, err := dataset.New(c, opts)
	if err != nil {
		glog.Exitf("unable to index corpus %q: %s", *corpusFile, err)
	}

	gin.SetMode(gin.ReleaseMode)
	s := &WindowServer{data: d, header: c.Header}
	server := &http.Server{
		Addr:    *listen,
		Handler: s.Router(),
	}
	if *certFile != "" || *keyFile != "" {
		glog.Fatal(server.ListenAndServeTLS(*certFile, *keyFile))
	} else {
		glog.Infoln("Resorting to serving HTTP because there was no certificate and key defined.")
		glog.Fatal(server.ListenAndServe())
	}
}
