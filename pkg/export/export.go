// Package export renders a crawl catalog into its published artifacts:
// the versioned metadata document consumed by downstream tooling and
// the compact listing format used by curated registries.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

// document is the top-level shape of the metadata artifact. The schema
// version leads so consumers can reject foreign versions before reading
// further.
type document struct {
	SchemaVersion int              `json:"schema_version"`
	GeneratedAt   time.Time        `json:"generated_at"`
	RunID         string           `json:"run_id,omitempty"`
	Summary       mods.Summary     `json:"summary"`
	Mods          []mods.ModRecord `json:"mods"`
}

// listingEntry is one row of the compact registry listing (the mods.json
// format curated lists consume).
type listingEntry struct {
	Repo        string `json:"repo"`
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Stars       int    `json:"stars"`
	Download    string `json:"download,omitempty"`
	Description string `json:"description,omitempty"`
}

// ArtifactName returns the canonical metadata artifact filename. The
// schema version is embedded so consumers naturally stop matching old
// files after a breaking change: "modmeta.v3.json".
func ArtifactName() string {
	return fmt.Sprintf("modmeta.v%d.json", mods.SchemaVersion)
}

// WriteJSON encodes the catalog's parsed records as the metadata
// document and writes it to w. Entries without records (failures,
// negatives) contribute to the summary but not to the mod list.
func WriteJSON(catalog mods.Catalog, runID string, w io.Writer) error {
	records := catalog.Records()
	if records == nil {
		records = []mods.ModRecord{}
	}
	doc := document{
		SchemaVersion: mods.SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		RunID:         runID,
		Summary:       catalog.Summarize(),
		Mods:          records,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode metadata document: %w", err)
	}
	return nil
}

// ExportJSON writes the metadata document to a file at path. Pass an
// empty path to use [ArtifactName] in the working directory.
func ExportJSON(catalog mods.Catalog, runID, path string) error {
	if path == "" {
		path = ArtifactName()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteJSON(catalog, runID, f); err != nil {
		return err
	}
	return f.Close()
}

// WriteListing encodes the catalog's parsed records in the compact
// registry listing format, ordered as crawled.
func WriteListing(catalog mods.Catalog, w io.Writer) error {
	entries := []listingEntry{}
	for _, rec := range catalog.Records() {
		e := listingEntry{
			Repo:        rec.Repo.String(),
			Name:        firstNonEmpty(rec.DisplayName, rec.Name),
			Author:      rec.Author,
			Stars:       rec.Stars,
			Download:    rec.Download,
			Description: rec.Description,
		}
		if !rec.LastCommit.IsZero() {
			e.LastUpdated = rec.LastCommit.UTC().Format(time.RFC3339)
		}
		entries = append(entries, e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	return nil
}

// ExportListing writes the registry listing to a file at path.
func ExportListing(catalog mods.Catalog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteListing(catalog, f); err != nil {
		return err
	}
	return f.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
