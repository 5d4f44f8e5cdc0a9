package routes

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.json
var catalogFS embed.FS

// Load decodes a JSON or YAML route specification and validates it.
func Load(r io.Reader) (Specification, error) {
	var spec Specification

	err := yaml.NewDecoder(r).Decode(&spec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode route specification: %w", err)
	}

	err = spec.Validate()
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// LoadFile loads a route specification from disk.
func LoadFile(filename string) (Specification, error) {
	f, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to open route specification: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// LoadCatalog decodes a document mapping route-set ids to specifications.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var catalog Catalog

	err := yaml.NewDecoder(r).Decode(&catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to decode route catalog: %w", err)
	}

	for id, spec := range catalog {
		err = spec.Validate()
		if err != nil {
			return nil, fmt.Errorf("route set %s: %w", id, err)
		}
	}

	return catalog, nil
}

// DefaultCatalog returns the embedded route sets.
func DefaultCatalog() (Catalog, error) {
	entries, err := catalogFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded route sets: %w", err)
	}

	catalog := make(Catalog, len(entries))

	for _, entry := range entries {
		f, err := catalogFS.Open(path.Join("data", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to open route set %s: %w", entry.Name(), err)
		}

		spec, err := Load(f)
		_ = f.Close()

		if err != nil {
			return nil, fmt.Errorf("route set %s: %w", entry.Name(), err)
		}

		catalog[strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))] = spec
	}

	return catalog, nil
}
