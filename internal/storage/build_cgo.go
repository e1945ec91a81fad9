//go:build sqlite_vec && !purego

package storage

// CGO build with mattn/go-sqlite3. When the sqlite-vec extension is loaded into
// the connection, vector search ranks in SQL with vec_distance_cosine; otherwise
// it falls back to the Go implementation.
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
