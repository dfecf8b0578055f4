package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the optional build configuration looked up next to the source
// file being compiled.
const FileName = "bxc.toml"

// BuildConfig is the driver's configuration.
type BuildConfig struct {
	Build BuildSection `toml:"build"`
}

// BuildSection controls how the driver turns the emitted .ll into an
// executable.
type BuildSection struct {
	// Clang is the compiler binary used to assemble and link the output.
	Clang string `toml:"clang"`

	// Runtime is the C runtime source providing bx_print_int.
	Runtime string `toml:"runtime"`

	// KeepIntermediates leaves the .rtl and .ssa dumps on disk.
	KeepIntermediates bool `toml:"keep_intermediates"`

	// Verbose raises the pipeline log verbosity.
	Verbose bool `toml:"verbose"`
}

// Default returns the configuration used when no bxc.toml is present.
func Default() *BuildConfig {
	return &BuildConfig{
		Build: BuildSection{
			Clang:             "clang",
			Runtime:           "runtime/bx_runtime.c",
			KeepIntermediates: true,
		},
	}
}

// Load reads bxc.toml from dir, falling back to defaults when the file does
// not exist. Unset fields keep their default values.
func Load(dir string) (*BuildConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Build.Clang == "" {
		cfg.Build.Clang = "clang"
	}
	return cfg, nil
}
