// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package message

import (
	_ "embed"
	"os"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Catalog maps keys to display text.
type Catalog struct {
	texts map[Key]string
}

// DefaultCatalog returns the embedded English catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalog)
	if err != nil {
		// The embedded file is covered by tests.
		panic(err)
	}
	return c
}

// LoadCatalog returns the default catalog overlaid with the texts in path.
// An empty path returns the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code("CATALOG_READ_FAILED").With("path", path).Wrap(err)
	}
	overrides, err := parseCatalog(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	for k, v := range overrides.texts {
		c.texts[k] = v
	}
	return c, nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, oops.Code("CATALOG_PARSE_FAILED").Wrap(err)
	}

	texts := make(map[Key]string, len(raw))
	for name, text := range raw {
		k := Key(name)
		if !k.Valid() {
			return nil, oops.Code("CATALOG_UNKNOWN_KEY").
				With("key", name).
				Errorf("unknown message key %q", name)
		}
		texts[k] = text
	}
	return &Catalog{texts: texts}, nil
}

// Render returns the text for k with {placeholders} replaced from vars.
// Keys without text render as the key itself.
func (c *Catalog) Render(k Key, vars map[string]string) string {
	text, ok := c.texts[k]
	if !ok {
		return string(k)
	}
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Missing returns the defined keys that have no text.
func (c *Catalog) Missing() []Key {
	var out []Key
	for _, k := range All {
		if _, ok := c.texts[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
