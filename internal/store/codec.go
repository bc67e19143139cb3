package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SchemaVersion is the snapshot format written by this build.
const SchemaVersion = "2.1.0"

// versionKey sits beside the user records in the flat snapshot
// document. Every other top-level key is a stringified user id.
const versionKey = "__schema_version__"

// decodeSnapshot splits a snapshot into its version tag and the raw
// per-user payloads. User payloads are not decoded here; that happens
// lazily on first access so one bad record cannot poison the load.
func decodeSnapshot(data []byte) (string, map[int64]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	version := "1.0.0"
	if raw, ok := doc[versionKey]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return "", nil, fmt.Errorf("parsing snapshot version: %w", err)
		}
		delete(doc, versionKey)
	}

	users := make(map[int64]json.RawMessage, len(doc))
	for key, raw := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("snapshot key %q is not a user id: %w", key, err)
		}
		users[id] = raw
	}
	return version, users, nil
}

// encodeSnapshot builds the flat document with the current version tag.
func encodeSnapshot(users map[int64]json.RawMessage) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(users)+1)
	versionRaw, err := json.Marshal(SchemaVersion)
	if err != nil {
		return nil, err
	}
	doc[versionKey] = versionRaw
	for id, raw := range users {
		doc[strconv.FormatInt(id, 10)] = raw
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return out, nil
}
