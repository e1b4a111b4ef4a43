// Package capture records raw GitHub payloads as JSON fixtures so parsing
// regressions can be reproduced offline.
package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Recorder writes payloads under <dir>/<session>/<category>-<seq>.json.
// A nil Recorder, or one with an empty dir, records nothing.
type Recorder struct {
	dir     string
	session string
	seq     atomic.Uint64
}

// New returns a recorder rooted at dir, or nil when dir is empty.
func New(dir string) *Recorder {
	if dir == "" {
		return nil
	}
	return &Recorder{dir: dir, session: time.Now().Format("20060102-150405")}
}

// Enabled reports whether payloads are being written.
func (r *Recorder) Enabled() bool {
	return r != nil && r.dir != ""
}

// SessionDir is the directory receiving this process's captures.
func (r *Recorder) SessionDir() string {
	if !r.Enabled() {
		return ""
	}
	return filepath.Join(r.dir, r.session)
}

// WriteJSON marshals payload to indented JSON. Failures are logged and
// otherwise ignored; capture never affects a run.
func (r *Recorder) WriteJSON(category string, payload interface{}) {
	if !r.Enabled() {
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("category", category).Msg("capture: failed to marshal payload")
		return
	}
	r.writeFile(category, "json", data)
}

// WriteBlob stores raw bytes with the given extension.
func (r *Recorder) WriteBlob(category, ext string, data []byte) {
	if !r.Enabled() {
		return
	}
	r.writeFile(category, ext, data)
}

func (r *Recorder) writeFile(category, ext string, data []byte) {
	dir := r.SessionDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("capture: failed to create directory")
		return
	}

	seq := r.seq.Add(1)
	path := filepath.Join(dir, fmt.Sprintf("%s-%04d.%s", category, seq, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("capture: failed to write file")
		return
	}
	log.Debug().Str("path", path).Msg("capture: wrote payload")
}
