package main

/*
This application renders the spectral diagnostics of raw telescope
recordings: a waterfall, density estimates, Lomb-Scargle and FFT spectra
and the sample level statistics of every channel.

Channels are read from single column text files or from a built corpus.
*/

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/hb9tf/rfi/corpus"
	"github.com/hb9tf/rfi/export"
	"github.com/hb9tf/rfi/plots"
	"github.com/hb9tf/rfi/spectral"
	"github.com/hb9tf/rfi/waterfall"

	// Blind import support for sqlite3 used by sql.go.
	_ "github.com/mattn/go-sqlite3"
)

// Flags
var (
	identifier = flag.String("id", "", "Identifier of this rendering run, a random UUID if empty.")
	inputs     = flag.String("inputs", "", "Comma separated list of single column sample files, one per channel.")
	corpusFile = flag.String("corpus", "", "Corpus container to render as an additional channel.")
	trainPct   = flag.Float64("trainingPercentage", 80, "Training percentage the corpus was built with.")
	validPct   = flag.Float64("validationPercentage", 10, "Validation percentage the corpus was built with.")
	offset     = flag.Int("offset", 0, "Index of the first sample to render.")
	length     = flag.Int("length", 0, "Number of samples to render per channel, 0 renders all.")
	sampleRate = flag.Float64("sampleRate", spectral.SampleRate, "Sample rate of the recording in Hz.")
	bands      = flag.Bool("bands", true, "Label frequencies with the recorded channel bands.")
	normalize  = flag.Bool("normalize", false, "Min-max normalize every channel before rendering.")
	outDir     = flag.String("outDir", "/tmp/rfi", "Directory the diagnostics are written to.")
	imgWidth   = flag.Int("imgWidth", 0, "Width of spectrogram images in pixels, 0 uses one pixel per frequency bin.")
	imgHeight  = flag.Int("imgHeight", 0, "Height of spectrogram images in pixels, 0 uses one pixel per time slice.")
	addGrid    = flag.Bool("addGrid", true, "Add a frequency and time grid to spectrogram images.")
	output     = flag.String("output", "", "Export mechanism for sample statistics (one of: csv, sqlite, mysql). Empty disables export.")

	// SQLite
	sqliteFile = flag.String("sqliteFile", "/tmp/rfi.db", "File path of the sqlite DB file to use.")

	// MySQL
	mysqlServer       = flag.String("mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	mysqlUser         = flag.String("mysqlUser", "", "MySQL DB user.")
	mysqlPasswordFile = flag.String("mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	mysqlDBName       = flag.String("mysqlDBName", "rfi", "Name of the DB to use.")
)

type channel struct {
	source  string
	samples []float64
}

func loadChannels() ([]channel, error) {
	var channels []channel
	for _, path := range strings.Split(*inputs, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		x, err := corpus.ReadSeries(path)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel{source: path, samples: x})
	}
	if *corpusFile != "" {
		c, err := corpus.Open(*corpusFile, *trainPct, *validPct)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel{source: *corpusFile, samples: c.Samples})
	}
	for i, c := range channels {
		start := min(*offset, len(c.samples))
		end := len(c.samples)
		if *length > 0 {
			end = min(start+*length, end)
		}
		channels[i].samples = c.samples[start:end]
		if *normalize {
			channels[i].samples = corpus.Normalize(channels[i].samples)
		}
		glog.V(2).Infof("channel %d (%s): %d samples", i, c.source, len(channels[i].samples))
	}
	return channels, nil
}

func newExporter() (export.Exporter, error) {
	switch strings.ToLower(*output) {
	case "":
		return nil, nil
	case "csv":
		return &export.CSV{}, nil
	case "sqlite":
		db, err := sql.Open("sqlite3", *sqliteFile)
		if err != nil {
			return nil, err
		}
		return &export.SQL{DB: db}, nil
	case "mysql":
		pass, err := os.ReadFile(*mysqlPasswordFile)
		if err != nil {
			return nil, err
		}
		cfg := mysql.Config{
			User:   *mysqlUser,
			Passwd: strings.TrimSpace(string(pass)),
			Net:    "tcp",
			Addr:   *mysqlServer,
			DBName: *mysqlDBName,
		}
		db, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		return &export.MySQL{DB: db}, nil
	}
	return nil, nil
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	if *identifier == "" {
		*identifier = uuid.NewString()
	}
	switch strings.ToLower(*output) {
	case "", "csv", "sqlite", "mysql":
	default:
		glog.Exitf("%q is not a supported export method, pick one of: csv, sqlite, mysql", *output)
	}

	channels, err := loadChannels()
	if err != nil {
		glog.Exitf("unable to load channels: %s", err)
	}
	if len(channels) == 0 {
		glog.Exit("nothing to render, set -inputs or -corpus")
	}
	exporter, err := newExporter()
	if err != nil {
		glog.Exitf("unable to set up %s export: %s", *output, err)
	}

	p := &plots.Plotter{
		OutDir:     *outDir,
		SampleRate: *sampleRate,
		Offset:     *offset,
		Image: waterfall.ImageOptions{
			Width:   *imgWidth,
			Height:  *imgHeight,
			AddGrid: *addGrid,
		},
	}
	if *bands {
		p.Bands = spectral.ChannelBands
	}
	series := make([][]float64, len(channels))
	for i, c := range channels {
		series[i] = c.samples
	}
	glog.Infof("Rendering run %s: %d channels to %s", *identifier, len(channels), *outDir)
	results, err := p.Run(series)
	if err != nil {
		glog.Fatal(err)
	}

	if exporter == nil {
		return
	}
	records := make(chan export.Record, len(results))
	now := time.Now()
	for _, r := range results {
		band := ""
		if len(p.Bands) > 0 {
			band = p.Bands[r.Channel%len(p.Bands)].String()
		}
		records <- export.NewRecord(*identifier, channels[r.Channel].source, r.Channel, band, r.Statistics, now)
	}
	close(records)
	if err := exporter.Write(ctx, records); err != nil {
		glog.Fatal(err)
	}
}
