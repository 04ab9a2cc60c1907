// Package config holds the corpus preparation settings.
//
// The settings are read from a JSON file. Fields omitted from the file keep
// the values from Default, so partial configs are safe.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Source is one companion file pair feeding the corpus.
type Source struct {
	// Base is the path without the ".txt" / "_loc.txt" endings.
	Base string `json:"base"`
	// RFILabel replaces label 1 in this source's labels when it is not 1.
	RFILabel int `json:"rfi_label"`
}

// Config describes where the corpus container lives and how it is built.
type Config struct {
	DataPath             string   `json:"data_path"`
	DataFile             string   `json:"data_file"`
	Version              string   `json:"version"`
	NumberChannels       int      `json:"number_channels"`
	NumberClasses        int      `json:"number_classes"`
	TrainingPercentage   float64  `json:"training_percentage"`
	ValidationPercentage float64  `json:"validation_percentage"`
	Sources              []Source `json:"sources"`
}

// Default returns the settings used for the GMRT simulation runs.
func Default() *Config {
	return &Config{
		DataPath:             "../data",
		DataFile:             "corpus.db",
		Version:              "1",
		NumberChannels:       1,
		NumberClasses:        2,
		TrainingPercentage:   80,
		ValidationPercentage: 10,
		Sources: []Source{
			{Base: "../data/GMRT/impulsive_broadband_simulation_random_5p", RFILabel: 1},
			{Base: "../data/GMRT/impulsive_broadband_simulation_random_10p", RFILabel: 1},
			{Base: "../data/GMRT/repetitive_rfi_timeseries", RFILabel: 1},
			{Base: "../data/GMRT/repetitive_rfi_random_timeseries", RFILabel: 1},
		},
	}
}

// Load reads a Config from a JSON file on top of Default.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return errors.New("data_file must be set")
	}
	if c.Version == "" {
		return errors.New("version must be set")
	}
	if c.NumberChannels < 1 {
		return fmt.Errorf("number_channels must be positive, got %d", c.NumberChannels)
	}
	if c.NumberClasses < 1 {
		return fmt.Errorf("number_classes must be positive, got %d", c.NumberClasses)
	}
	if c.TrainingPercentage < 0 || c.ValidationPercentage < 0 || c.TrainingPercentage+c.ValidationPercentage > 100 {
		return fmt.Errorf("training_percentage (%g) and validation_percentage (%g) must be non-negative and sum to at most 100",
			c.TrainingPercentage, c.ValidationPercentage)
	}
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for i, s := range c.Sources {
		if s.Base == "" {
			return fmt.Errorf("source %d has an empty base", i)
		}
		if s.RFILabel < 0 || s.RFILabel >= c.NumberClasses {
			return fmt.Errorf("source %q: rfi_label %d outside [0, %d)", s.Base, s.RFILabel, c.NumberClasses)
		}
	}
	return nil
}

// OutputFile is the full path of the corpus container.
func (c *Config) OutputFile() string {
	return filepath.Join(c.DataPath, c.DataFile)
}
