package realtime

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// CatalogEntry is one contributor declared in the deployment catalog file.
type CatalogEntry struct {
	ID            string                 `yaml:"id" json:"id"`
	ConnectorType string                 `yaml:"connector_type" json:"connector_type"`
	Active        bool                   `yaml:"active" json:"active"`
	Settings      map[string]interface{} `yaml:"settings" json:"settings"`
}

type Catalog struct {
	Contributors []CatalogEntry `yaml:"contributors" json:"contributors"`
}

// LoadCatalog reads the contributor catalog from a YAML file. An empty path
// yields an empty catalog so a deployment can register contributors through
// other means.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	for i, entry := range cat.Contributors {
		if entry.ID == "" {
			return Catalog{}, fmt.Errorf("catalog contributor %d has no id", i)
		}
		if entry.ConnectorType == "" {
			cat.Contributors[i].ConnectorType = ConnectorGTFSRT
		}
	}
	return cat, nil
}

// SeedContributors upserts every catalog entry, keeping existing rows for
// contributors the catalog no longer lists.
func (s *Service) SeedContributors(ctx context.Context, cat Catalog) error {
	for _, entry := range cat.Contributors {
		contributor := &Contributor{
			ID:            entry.ID,
			ConnectorType: entry.ConnectorType,
			Active:        entry.Active,
			Settings:      datatypes.JSONMap(entry.Settings),
		}
		if err := s.repo.UpsertContributor(ctx, contributor); err != nil {
			return fmt.Errorf("seeding contributor %s: %w", entry.ID, err)
		}
	}
	return nil
}
