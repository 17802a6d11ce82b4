package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mindustry-mods/modlist/pkg/mods"
)

// Entry is the unit of storage: the parse outcome recorded for one
// (repository, fingerprint) pair. Negative entries record "this content
// was inspected and carries no metadata" so unchanged repositories are
// never re-fetched just to fail again.
type Entry struct {
	Outcome  mods.Outcome    `json:"outcome"`
	Record   *mods.ModRecord `json:"record,omitempty"`
	Failure  string          `json:"failure,omitempty"`
	StoredAt time.Time       `json:"stored_at"`
}

// Negative reports whether the entry is a negative marker.
func (e Entry) Negative() bool { return e.Outcome == mods.OutcomeNoMetadata }

// envelope is the on-disk shape. The schema version is written first so
// a foreign-version payload is detected before any field is trusted.
type envelope struct {
	SchemaVersion int   `json:"schema_version"`
	Entry         Entry `json:"entry"`
}

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(envelope{SchemaVersion: mods.SchemaVersion, Entry: e})
}

// decodeEntry rejects corrupt payloads and foreign schema versions with
// ErrCorrupt; callers downgrade that to a miss.
func decodeEntry(data []byte) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.SchemaVersion != mods.SchemaVersion {
		return Entry{}, fmt.Errorf("%w: schema version %d, want %d", ErrCorrupt, env.SchemaVersion, mods.SchemaVersion)
	}
	return env.Entry, nil
}
