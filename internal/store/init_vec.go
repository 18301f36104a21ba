//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the sqlite-vec extension with the mattn/go-sqlite3 driver so
	// detectVecExtension's vec0 probe in store.go succeeds when this build
	// tag is set; without it, VectorStore falls back to brute-force cosine
	// search transparently.
	vec.Auto()
}
