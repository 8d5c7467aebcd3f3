package realtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contributors.yaml")
	content := `contributors:
  - id: rt.vroumvroum
    connector_type: gtfs-rt
    active: true
    settings:
      feed_url: http://bus.example.com/gtfs-rt
  - id: rt.tchoutchou
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cat.Contributors) != 2 {
		t.Fatalf("expected two contributors, got %d", len(cat.Contributors))
	}
	if cat.Contributors[0].Settings["feed_url"] != "http://bus.example.com/gtfs-rt" {
		t.Fatalf("unexpected settings %+v", cat.Contributors[0].Settings)
	}
	// The connector type defaults when omitted.
	if cat.Contributors[1].ConnectorType != ConnectorGTFSRT {
		t.Fatalf("expected default connector, got %q", cat.Contributors[1].ConnectorType)
	}
}

func TestLoadCatalogEmptyPath(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("expected an empty catalog, got %v", err)
	}
	if len(cat.Contributors) != 0 {
		t.Fatal("expected no contributors")
	}
}

func TestLoadCatalogRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contributors.yaml")
	if err := os.WriteFile(path, []byte("contributors:\n  - active: true\n"), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected a contributor without an id to be rejected")
	}
}

func TestSeedContributorsUpserts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cat := Catalog{Contributors: []CatalogEntry{
		{ID: "rt.operator", ConnectorType: ConnectorGTFSRT, Active: false},
		{ID: "rt.newcomer", ConnectorType: ConnectorGTFSRT, Active: true},
	}}
	if err := f.svc.SeedContributors(ctx, cat); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	contributors, err := f.repo.ListContributors(ctx)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(contributors) != 2 {
		t.Fatalf("expected two contributors, got %d", len(contributors))
	}
	// The fixture's contributor was active; the catalog overrides it.
	existing, err := f.repo.GetContributor(ctx, "rt.operator")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if existing.Active {
		t.Fatal("expected the catalog to overwrite the existing row")
	}
}
