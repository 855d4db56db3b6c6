// Package config handles the jweave.toml project manifest.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/weave"
	"github.com/pkg/errors"
)

// FileName is the manifest looked up by Find.
const FileName = "jweave.toml"

// Config is a parsed jweave.toml.
type Config struct {
	Weave  Weave  `toml:"weave"`
	Select Select `toml:"select"`

	// Path is the manifest file, "" for defaults (set at load time).
	Path string `toml:"-"`
}

// Weave configures the runtime protocol and the strategy.
type Weave struct {
	Strategy       string `toml:"strategy"`
	HandlerType    string `toml:"handler-type"`
	InvocationType string `toml:"invocation-type"`
	ProxyInterface string `toml:"proxy-interface"`
	Getter         string `toml:"getter"`
	Setter         string `toml:"setter"`
	Workers        int    `toml:"workers"`
}

// Select chooses the classes and methods to weave.
type Select struct {
	Classes        []string `toml:"classes"`
	ExcludeMethods []string `toml:"exclude-methods"`
}

// Default returns the configuration used when no manifest exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	d := weave.DefaultConfig()
	w := &c.Weave
	if w.Strategy == "" {
		w.Strategy = string(weave.StrategyInPlace)
	}
	if w.HandlerType == "" {
		w.HandlerType = d.HandlerType
	}
	if w.InvocationType == "" {
		w.InvocationType = d.InvocationType
	}
	if w.ProxyInterface == "" {
		w.ProxyInterface = d.ProxyInterface
	}
	if w.Getter == "" {
		w.Getter = d.Getter
	}
	if w.Setter == "" {
		w.Setter = d.Setter
	}
	if w.Workers <= 0 {
		w.Workers = runtime.GOMAXPROCS(0)
	}
}

// Load parses the manifest at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if _, err := weave.ParseStrategy(c.Weave.Strategy); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	c.applyDefaults()
	if c.Path, err = filepath.Abs(path); err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", path)
	}
	return &c, nil
}

// Find walks up from startDir to the first jweave.toml and loads it. It
// returns the defaults when there is none.
func Find(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Options returns the engine options the manifest describes.
func (c *Config) Options(l log.Interface) weave.Options {
	return weave.Options{
		Config: weave.Config{
			HandlerType:    c.Weave.HandlerType,
			InvocationType: c.Weave.InvocationType,
			ProxyInterface: c.Weave.ProxyInterface,
			Getter:         c.Weave.Getter,
			Setter:         c.Weave.Setter,
		},
		Strategy:       weave.Strategy(c.Weave.Strategy),
		Classes:        c.Select.Classes,
		ExcludeMethods: c.Select.ExcludeMethods,
		Logger:         l,
	}
}
