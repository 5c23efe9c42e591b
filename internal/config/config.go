// Package config loads the optional sidecar configuration file that sits
// next to a Smalltalk image, in the style lookbusy1344-arm_emulator uses
// BurntSushi/toml for its emulator's settings file.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables an operator may override; none of them change
// VM semantics, only resource sizing and diagnostics.
type Config struct {
	// Heap sizing overrides. The value is decoded from the file, but
	// nothing in the VM reads it: the object table is always sized from
	// the snapshot.
	Heap struct {
		MaxObjectTableSlots int `toml:"max_object_table_slots"`
	} `toml:"heap"`

	// Trace toggles.
	Trace struct {
		GC         bool `toml:"gc"`
		Bytecodes  bool `toml:"bytecodes"`
		Primitives bool `toml:"primitives"`
	} `toml:"trace"`

	// ImageSearchPaths are consulted, in order, when no image path is
	// given on the command line.
	ImageSearchPaths []string `toml:"image_search_paths"`
}

// Default returns the configuration used when no sidecar file exists.
func Default() Config {
	var c Config
	c.ImageSearchPaths = []string{".", "./images"}
	return c
}

// Load reads the TOML sidecar file beside imagePath (same directory,
// name ".stvm.toml"), or the explicit path if override is non-empty.
// A missing sidecar beside the image is not an error: Default() is
// returned unchanged. A missing explicit override path is an error.
func Load(imagePath, override string) (Config, error) {
	cfg := Default()

	path := override
	if path == "" {
		dir := "."
		if imagePath != "" {
			dir = filepath.Dir(imagePath)
		}
		path = filepath.Join(dir, ".stvm.toml")
	}

	if _, err := os.Stat(path); err != nil {
		if override == "" {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
