package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the playback settings that can be given in a config file.
// Flags given on the command line override the file.
type Config struct {
	Loop      bool          `yaml:"loop"`
	Start     time.Duration `yaml:"start"`
	Length    time.Duration `yaml:"length"`
	FadeIn    time.Duration `yaml:"fadein"`
	FadeOut   time.Duration `yaml:"fadeout"`
	Mute      []int         `yaml:"mute,flow"`
	Weighting string        `yaml:"weighting"`
	Directory string        `yaml:"directory"`
}

var defaultConfig = Config{Weighting: "k"}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config %v: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config %v: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Start < 0 || c.Length < 0 || c.FadeIn < 0 || c.FadeOut < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	for _, t := range c.Mute {
		if t < 0 {
			return fmt.Errorf("track %d does not exist", t)
		}
	}
	return nil
}

// parseTracks parses a comma separated list of track indices.
func parseTracks(s string) ([]int, error) {
	var ret []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		t, err := strconv.Atoi(f)
		if err != nil || t < 0 {
			return nil, fmt.Errorf("invalid track %q", f)
		}
		ret = append(ret, t)
	}
	return ret, nil
}
