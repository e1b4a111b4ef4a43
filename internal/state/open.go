package state

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the backend called name, persisting at path. Names are
// case-insensitive.
func Open(ctx context.Context, name, path string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendFile:
		return NewFileBackend(path), nil
	case BackendSQLite:
		if path == "" {
			path = "./data/seen-reactions.db"
		}
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown state backend %q (supported: file, sqlite)", name)
	}
}
