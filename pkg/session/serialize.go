package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the persisted form of a session.
type Record struct {
	ID         string                     `json:"id"`
	CreatedAt  time.Time                  `json:"created_at"`
	LastActive time.Time                  `json:"last_active"`
	Values     map[string]json.RawMessage `json:"values,omitempty"`

	// Version is the serialization format version.
	Version int `json:"version"`
}

// CurrentSerializationVersion is the current version of the record format.
// Increment when making breaking changes to the format.
const CurrentSerializationVersion = 1

// Encode converts a record to bytes, stamping the current version.
func Encode(rec *Record) ([]byte, error) {
	rec.Version = CurrentSerializationVersion
	return json.Marshal(rec)
}

// Decode converts bytes back to a record. Records written by a newer
// format version are rejected.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session: decode record: %w", err)
	}
	if rec.Version > CurrentSerializationVersion {
		return nil, fmt.Errorf("session: record version %d is newer than %d", rec.Version, CurrentSerializationVersion)
	}
	return &rec, nil
}
