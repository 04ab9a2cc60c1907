package main

/*
This application prepares the labeled RFI corpus from pairs of sample and
label text files. The resulting container is consumed by the window server.
*/

import (
	"flag"

	"github.com/golang/glog"

	"github.com/hb9tf/rfi/config"
	"github.com/hb9tf/rfi/corpus"
)

// Flags
var (
	configFile = flag.String("config", "", "JSON file describing the corpus sources. The built-in GMRT sources are used if empty.")
	dataPath   = flag.String("dataPath", "", "Overrides the directory the corpus container is written to.")
	version    = flag.String("version", "", "Overrides the corpus version. A container with another version is rebuilt.")
)

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			glog.Exitf("unable to load config %q: %s", *configFile, err)
		}
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *version != "" {
		cfg.Version = *version
	}
	if err := cfg.Validate(); err != nil {
		glog.Exitf("invalid config: %s", err)
	}

	if err := corpus.Build(cfg); err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Corpus ready at %s", cfg.OutputFile())
}
