package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultPath is where the JSON state file lives unless configured otherwise.
const DefaultPath = "./data/seen-reactions.json"

// FileBackend stores the state as a single JSON document:
//
//	{ "seenReactions": { "<itemId>": [reactionId, ...] }, "lastUpdated": "<RFC3339>" }
//
// Key order in seenReactions is the retention order.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultPath
	}
	return &FileBackend{path: path}
}

// Path returns the file location.
func (b *FileBackend) Path() string {
	return b.path
}

// fileDocument keeps seenReactions in key order. lastUpdated is decoded
// separately so a bad timestamp never discards the entries.
type fileDocument struct {
	SeenReactions *orderedmap.OrderedMap[string, []int64] `json:"seenReactions"`
	LastUpdated   json.RawMessage                         `json:"lastUpdated"`
}

// Read loads the document. A malformed file gets one repair attempt before
// it is reported as an error.
func (b *FileBackend) Read(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", b.path, err)
	}

	doc, err := decodeDocument(data)
	if err == nil {
		return doc, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return nil, fmt.Errorf("state file %s is malformed: %w", b.path, err)
	}
	doc, repairedErr := decodeDocument([]byte(repaired))
	if repairedErr != nil {
		return nil, fmt.Errorf("state file %s is malformed: %w", b.path, err)
	}

	log.Warn().Err(err).Str("path", b.path).Msg("State file was malformed and has been repaired")
	return doc, nil
}

func decodeDocument(data []byte) (*Snapshot, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	snap := &Snapshot{LastUpdated: parseLastUpdated(doc.LastUpdated)}
	if doc.SeenReactions != nil {
		snap.Entries = make([]Entry, 0, doc.SeenReactions.Len())
		for pair := doc.SeenReactions.Oldest(); pair != nil; pair = pair.Next() {
			snap.Entries = append(snap.Entries, Entry{ItemID: pair.Key, ReactionIDs: pair.Value})
		}
	}
	return snap, nil
}

// parseLastUpdated returns nil for a missing, null or unparseable timestamp.
func parseLastUpdated(raw json.RawMessage) *time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		log.Warn().Err(err).Str("last_updated", string(raw)).Msg("Ignoring unparseable lastUpdated in state file")
		return nil
	}
	return &t
}

func encodeDocument(snap *Snapshot) ([]byte, error) {
	entries := orderedmap.New[string, []int64](len(snap.Entries))
	for _, e := range snap.Entries {
		ids := e.ReactionIDs
		if ids == nil {
			ids = []int64{}
		}
		entries.Set(e.ItemID, ids)
	}

	lastUpdated, err := json.Marshal(snap.LastUpdated)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(fileDocument{SeenReactions: entries, LastUpdated: lastUpdated}, "", "  ")
}

// Write replaces the file atomically: temp file in the same directory, fsync,
// rename.
func (b *FileBackend) Write(_ context.Context, snap *Snapshot) error {
	data, err := encodeDocument(snap)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".seen-reactions-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", b.path, err)
	}
	return nil
}

// Close is a no-op for files.
func (b *FileBackend) Close() error {
	return nil
}
