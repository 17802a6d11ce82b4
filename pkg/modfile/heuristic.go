package modfile

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

var (
	headingRE = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	kvRE      = regexp.MustCompile(`(?i)^\s*"?(name|displayname|display_name|version|author|description|mingameversion)"?\s*[:=]\s*(.+?)[,;]?\s*$`)
	listRE    = regexp.MustCompile(`^\s*[-*]\s+(.+?)\s*$`)
)

// parseHeuristic recovers a record from free-form text: a top-level
// markdown heading becomes the display name, "key: value" lines fill
// individual fields, the first prose paragraph becomes the description,
// and list items under a dependencies heading become dependencies.
// Reports false when nothing recognizable was found.
func parseHeuristic(text string) (mods.ModRecord, bool) {
	var rec mods.ModRecord
	var paragraph []string
	inDeps := false
	found := false

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if m := headingRE.FindStringSubmatch(trimmed); m != nil {
			if rec.DisplayName == "" {
				rec.DisplayName = cleanValue(m[1])
				found = true
			}
			inDeps = false
			continue
		}
		if isDepsHeading(trimmed) {
			inDeps = true
			continue
		}
		if inDeps {
			if m := listRE.FindStringSubmatch(line); m != nil {
				if dep, ok := parseDependency(cleanValue(m[1])); ok {
					rec.Dependencies = append(rec.Dependencies, dep)
				}
				continue
			}
			if trimmed != "" {
				inDeps = false
			}
		}

		if m := kvRE.FindStringSubmatch(line); m != nil {
			value := cleanValue(m[2])
			if value == "" {
				continue
			}
			switch strings.ToLower(m[1]) {
			case "name":
				if rec.Name == "" {
					rec.Name = value
					found = true
				}
			case "displayname", "display_name":
				if rec.DisplayName == "" {
					rec.DisplayName = value
					found = true
				}
			case "version":
				if rec.Version == "" {
					rec.Version = value
					found = true
				}
			case "author":
				if rec.Author == "" {
					rec.Author = value
				}
			case "description":
				if rec.Description == "" {
					rec.Description = value
				}
			case "mingameversion":
				if rec.MinGameVersion == "" {
					rec.MinGameVersion = value
				}
			}
			continue
		}

		// Collect the first prose paragraph as a description fallback.
		if rec.Description == "" {
			if trimmed == "" {
				if len(paragraph) > 0 {
					rec.Description = strings.Join(paragraph, " ")
				}
				paragraph = nil
			} else if !strings.HasPrefix(trimmed, "#") {
				paragraph = append(paragraph, trimmed)
			}
		}
	}
	if rec.Description == "" && len(paragraph) > 0 {
		rec.Description = strings.Join(paragraph, " ")
	}

	if !found {
		return mods.ModRecord{}, false
	}
	if rec.Name == "" {
		rec.Name = rec.DisplayName
	}
	rec.Completeness = completeness(rec)
	return rec, true
}

func isDepsHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	return strings.Contains(strings.ToLower(line), "depend")
}

// cleanValue strips markdown emphasis, quotes and stray punctuation
// around an extracted value.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
