package log

import (
	"io"
	"os"
)

// Config defines logger behaviour
type Config struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`

	// Output overrides the console writer, stderr when nil.
	Output io.Writer `mapstructure:"-"`
}

// FileConfig configures rotated file output
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"maxsizemb"`
	MaxBackups int    `mapstructure:"maxbackups"`
	MaxAgeDays int    `mapstructure:"maxagedays"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns warn level text logging to stderr
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: "text",
		File: FileConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func (c *Config) output() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stderr
}
