// Package config loads the node configuration from YAML.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// DataDir holds the leveldb transaction log.
	DataDir string `yaml:"DataDir"`
	// StorePath is the genji database path; ":memory:" rebuilds the store
	// from the log on every start.
	StorePath string `yaml:"StorePath"`
	Listen    string `yaml:"Listen"`
	Workers   int    `yaml:"Workers"`
	LogLevel  string `yaml:"LogLevel"`
	// Execute runs transactions before accepting or loading them.
	Execute bool `yaml:"Execute"`
}

func Default() Config {
	return Config{
		DataDir:   "./data",
		StorePath: ":memory:",
		Listen:    ":8855",
		Workers:   1,
		LogLevel:  "info",
		Execute:   true,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("DataDir must be set")
	}
	if c.StorePath == "" {
		return errors.New("StorePath must be set")
	}
	if c.Workers < 1 {
		return errors.Newf("Workers must be at least 1, got %d", c.Workers)
	}
	_, err := c.Level()
	return err
}

func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	return lvl, errors.Wrap(err, "LogLevel")
}
