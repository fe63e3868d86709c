package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

// SeedFile is the YAML document used to populate the catalog.
type SeedFile struct {
	Software []SeedEntry `yaml:"software"`
}

// SeedEntry is one product with its versions and alternative names.
type SeedEntry struct {
	Name     string   `yaml:"name"`
	Versions []string `yaml:"versions"`
	Aliases  []string `yaml:"aliases"`
}

// LoadSeed decodes a seed document.
func LoadSeed(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}
	for i, e := range f.Software {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog seed entry %d has no name", i)
		}
	}
	return &f, nil
}

// LoadSeedFile reads a seed document from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadSeed(fh)
}

// Apply upserts every entry and returns the number of products written.
func (f *SeedFile) Apply(ctx context.Context, repo repository.CatalogRepository) (int, error) {
	n := 0
	for _, e := range f.Software {
		if err := repo.Upsert(ctx, e.Name, e.Versions); err != nil {
			return n, fmt.Errorf("seed %s: %w", e.Name, err)
		}
		n++
	}
	return n, nil
}

// Aliases maps each lowercase alias, and the lowercase name itself, to the canonical name.
func (f *SeedFile) Aliases() map[string]string {
	out := map[string]string{}
	for _, e := range f.Software {
		name := strings.TrimSpace(e.Name)
		out[strings.ToLower(name)] = name
		for _, a := range e.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				out[a] = name
			}
		}
	}
	return out
}
