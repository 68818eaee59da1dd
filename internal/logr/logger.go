package logr

import (
	"fmt"
	"io"
	"os"

	"log/slog"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

const (
	DefaultFormat Format = "default"
	TextFormat    Format = "text"
	JSONFormat    Format = "json"
)

type (
	Config struct {
		Verbosity int
		Format    string
	}

	Format string
)

// LoadConfigFromFlags adds flags to the given flagset, and, after the
// flagset is parsed by the caller, the flags populate the returned logger
// config.
func LoadConfigFromFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.IntVarP(&cfg.Verbosity, "v", "v", 0, "Logging level")
	flags.StringVar(&cfg.Format, "log-format", string(DefaultFormat), "Logging format: default, text or json")
}

// New constructs a new logger writing to stdout.
func New(cfg *Config) (logr.Logger, error) {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter constructs a new logger writing to w.
func NewWithWriter(w io.Writer, cfg *Config) (logr.Logger, error) {
	opts := &slog.HandlerOptions{Level: toSlogLevel(cfg.Verbosity)}

	var h slog.Handler
	switch Format(cfg.Format) {
	case DefaultFormat, TextFormat, "":
		h = slog.NewTextHandler(w, opts)
	case JSONFormat:
		h = slog.NewJSONHandler(w, opts)
	default:
		return logr.Logger{}, fmt.Errorf("unrecognised logging format: %s", cfg.Format)
	}
	return logr.FromSlogHandler(h), nil
}

// toSlogLevel converts a verbosity to the slog level that enables logr
// V-levels up to and including it; logr.FromSlogHandler logs V(n) at slog
// level -n.
func toSlogLevel(verbosity int) slog.Level {
	if verbosity <= 0 {
		return slog.LevelInfo
	}
	return slog.Level(-verbosity)
}
