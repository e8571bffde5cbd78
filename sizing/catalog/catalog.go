// Package catalog loads sizing inputs from disk: model, server and storage
// catalogs in YAML (or JSON) and HuggingFace config.json model descriptions.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/inference-sizer/sizing"
)

// file is the on-disk layout. Every top-level key must be listed here to
// satisfy KnownFields(true) strict parsing.
type file struct {
	Version        string `yaml:"version"`
	sizing.Catalog `yaml:",inline"`
}

// Load reads one catalog file. Unknown keys are rejected so that typos in
// field names fail loudly instead of silently zeroing a value.
func Load(path string) (sizing.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sizing.Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return sizing.Catalog{}, fmt.Errorf("parsing catalog %q: %w", path, err)
	}
	logrus.Infof("loaded catalog %s: %d models, %d servers, %d storage profiles",
		path, len(cat.Models), len(cat.Servers), len(cat.Storage))
	return cat, nil
}

// Parse decodes catalog YAML. JSON input is accepted as a YAML subset.
func Parse(data []byte) (sizing.Catalog, error) {
	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return sizing.Catalog{}, fmt.Errorf("catalog is empty")
		}
		return sizing.Catalog{}, err
	}
	return f.Catalog, nil
}

// LoadFiles loads and merges several catalog files, e.g. one per kind.
func LoadFiles(paths ...string) (sizing.Catalog, error) {
	cats := make([]sizing.Catalog, 0, len(paths))
	for _, p := range paths {
		cat, err := Load(p)
		if err != nil {
			return sizing.Catalog{}, err
		}
		cats = append(cats, cat)
	}
	return Merge(cats...), nil
}

// Merge concatenates catalogs in order. Name collisions are left for
// sizing.ValidateCatalog to report.
func Merge(cats ...sizing.Catalog) sizing.Catalog {
	var out sizing.Catalog
	for _, c := range cats {
		out.Models = append(out.Models, c.Models...)
		out.Servers = append(out.Servers, c.Servers...)
		out.Storage = append(out.Storage, c.Storage...)
	}
	return out
}
