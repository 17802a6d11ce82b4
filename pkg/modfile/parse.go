// Package modfile extracts structured mod metadata from the loosely
// structured files found in mod repositories.
//
// Parsing is two-tiered. The strict tier decodes the mod manifest
// dialect (Hjson: JSON plus comments, trailing commas, and quoteless
// strings). When the input has no structure worth trusting, the
// heuristic tier scans for markdown headings and "key: value" lines.
// Real-world repositories are inconsistent enough that strict-only
// parsing would reject a large share of perfectly usable metadata.
//
// Parsing is a pure function of its input bytes: no network, no cache.
package modfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hjson/hjson-go/v4"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

var (
	// ErrNoMetadata is returned when the input is readable text but
	// contains no recognizable metadata field at all.
	ErrNoMetadata = errors.New("no metadata found")

	// ErrMalformed is returned when the input isn't usable text
	// (empty, binary, invalid UTF-8).
	ErrMalformed = errors.New("malformed metadata source")
)

// Source hints at what kind of file the bytes came from.
type Source int

const (
	// SourceManifest is a mod.json / mod.hjson manifest.
	SourceManifest Source = iota

	// SourceMarkdown is prose such as a README; only the heuristic
	// tier applies.
	SourceMarkdown
)

// Match reports which tier produced a record.
type Match int

const (
	// MatchStructured means the strict manifest grammar succeeded.
	MatchStructured Match = iota

	// MatchHeuristic means the record was recovered from text scanning.
	MatchHeuristic
)

func (m Match) String() string {
	if m == MatchStructured {
		return "structured"
	}
	return "heuristic"
}

// Result is a successful parse: the extracted record plus the tier
// that produced it. Both tiers converge on the same record shape.
type Result struct {
	Record mods.ModRecord
	Match  Match
}

// manifest is the strict-tier shape of the mod.json dialect. Version
// and minGameVersion are decoded as any because authors write them as
// both strings and bare numbers.
type manifest struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"displayName"`
	Description    string   `json:"description"`
	Author         string   `json:"author"`
	Version        any      `json:"version"`
	Dependencies   []string `json:"dependencies"`
	MinGameVersion any      `json:"minGameVersion"`
	Hidden         bool     `json:"hidden"`
	MainScript     string   `json:"mainScript"`
}

// Parse extracts a ModRecord from raw file bytes. A record with only a
// name is valid (completeness partial); only total absence of any
// recognizable field yields ErrNoMetadata. Version strings are stored
// as opaque text.
func Parse(data []byte, src Source) (*Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrMalformed)
	}

	if src == SourceManifest {
		if rec, ok := parseStructured(data); ok {
			return &Result{Record: rec, Match: MatchStructured}, nil
		}
	}

	rec, ok := parseHeuristic(string(data))
	if !ok {
		return nil, fmt.Errorf("%w: no name, version or heading recognized", ErrNoMetadata)
	}
	return &Result{Record: rec, Match: MatchHeuristic}, nil
}

// parseStructured attempts the strict manifest grammar. It reports
// false on structural failure or when the document decodes but carries
// no recognizable field, handing over to the heuristic tier.
func parseStructured(data []byte) (mods.ModRecord, bool) {
	var m manifest
	if err := hjson.Unmarshal(data, &m); err != nil {
		return mods.ModRecord{}, false
	}

	rec := mods.ModRecord{
		Name:           firstNonEmpty(m.Name, m.DisplayName),
		DisplayName:    m.DisplayName,
		Author:         m.Author,
		Version:        versionString(m.Version),
		Description:    m.Description,
		MinGameVersion: versionString(m.MinGameVersion),
		Hidden:         m.Hidden,
		MainScript:     m.MainScript,
	}
	for _, d := range m.Dependencies {
		if dep, ok := parseDependency(d); ok {
			rec.Dependencies = append(rec.Dependencies, dep)
		}
	}
	if rec.Name == "" && rec.Version == "" && rec.Author == "" && rec.Description == "" {
		return mods.ModRecord{}, false
	}

	rec.Completeness = completeness(rec)
	return rec, true
}

// parseDependency splits a declared dependency string into a name and
// an optional opaque constraint ("mod@1.2", "mod >= 1.2", "owner/mod").
func parseDependency(s string) (mods.Dependency, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return mods.Dependency{}, false
	}
	if name, constraint, ok := strings.Cut(s, "@"); ok {
		return mods.Dependency{
			Name:       strings.TrimSpace(name),
			Constraint: strings.TrimSpace(constraint),
		}, true
	}
	if name, rest, ok := strings.Cut(s, " "); ok {
		return mods.Dependency{
			Name:       strings.TrimSpace(name),
			Constraint: strings.TrimSpace(rest),
		}, true
	}
	return mods.Dependency{Name: s}, true
}

// versionString renders the flexible version field as opaque text.
func versionString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func completeness(rec mods.ModRecord) mods.Completeness {
	if rec.Name != "" && rec.Version != "" {
		return mods.CompletenessFull
	}
	return mods.CompletenessPartial
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
