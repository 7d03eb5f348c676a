// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package settings provides typed configuration properties backed by koanf.
//
// Properties are declared once with a path and a default. Values are layered
// in this order, later layers winning: declared defaults, the YAML config
// file, then command-line flags the user explicitly set.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Settings is a read-mostly view of the loaded configuration.
// It is safe for concurrent reads once loading has finished.
type Settings struct {
	k *koanf.Koanf
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is the YAML config path. Empty skips the file layer.
	File string

	// Optional tolerates a missing File.
	Optional bool

	// Flags are applied last. FlagPaths maps flag names to property paths;
	// flags without a mapping are ignored.
	Flags     *pflag.FlagSet
	FlagPaths map[string]string
}

// New returns Settings holding only the declared defaults.
func New() *Settings {
	k := koanf.New(".")
	for path, def := range defaults {
		// koanf parses durations from strings, not from time.Duration values.
		if d, ok := def.(time.Duration); ok {
			def = d.String()
		}
		_ = k.Set(path, def) //nolint:errcheck // Set only fails on an empty delimiter
	}
	return &Settings{k: k}
}

// Load builds Settings from defaults, the config file and flags.
func Load(opts LoadOptions) (*Settings, error) {
	s := New()

	if opts.File != "" {
		err := s.k.Load(file.Provider(opts.File), yaml.Parser())
		switch {
		case err == nil:
		case opts.Optional && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, oops.Code("SETTINGS_LOAD_FAILED").
				With("file", opts.File).
				Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", s.k, func(f *pflag.Flag) (string, interface{}) {
			path, ok := opts.FlagPaths[f.Name]
			if !ok {
				return "", nil
			}
			return path, posflag.FlagVal(opts.Flags, f)
		})
		if err := s.k.Load(provider, nil); err != nil {
			return nil, oops.Code("SETTINGS_LOAD_FAILED").
				With("layer", "flags").
				Wrap(err)
		}
	}

	return s, nil
}

// FileExists reports whether path names a readable config file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Set overrides a property path. Intended for tests and programmatic setup.
func (s *Settings) Set(path string, value any) error {
	if err := s.k.Set(path, value); err != nil {
		return oops.Code("SETTINGS_SET_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Get reads a property, falling back to its default when unset.
// A nil Settings yields defaults.
func Get[T Value](s *Settings, p Property[T]) T {
	if s == nil || !s.k.Exists(p.path) {
		return p.def
	}

	var v any
	switch any(p.def).(type) {
	case bool:
		v = s.k.Bool(p.path)
	case int:
		v = s.k.Int(p.path)
	case float64:
		v = s.k.Float64(p.path)
	case string:
		v = s.k.String(p.path)
	case []string:
		v = s.k.Strings(p.path)
	case time.Duration:
		v = s.k.Duration(p.path)
	default:
		return p.def
	}

	out, ok := v.(T)
	if !ok {
		return p.def
	}
	return out
}

// All returns a flattened copy of every configured path and value.
func (s *Settings) All() map[string]any {
	return s.k.All()
}
