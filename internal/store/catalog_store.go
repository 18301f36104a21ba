package store

import (
	"database/sql"
	"fmt"

	"thermocode/internal/logging"
)

// CatalogStore is the opaque key-value persistence collaborator the Catalog
// Registry depends on: Load returns the most recent snapshot bytes for a
// bucket (nil if none exists yet), Save appends a new snapshot causally
// linked to whatever was most recent, and CausalChain walks that linkage
// back to the root. The Catalog itself owns the JSON encoding; this type
// only ever sees opaque blobs.
type CatalogStore struct {
	vs     *VectorStore
	bucket string
}

// NewCatalogStore scopes catalog persistence to a named bucket within the
// shared VectorStore database, so multiple catalogs (e.g. per-project) can
// share one file without colliding.
func NewCatalogStore(vs *VectorStore, bucket string) *CatalogStore {
	if bucket == "" {
		bucket = "default"
	}
	return &CatalogStore{vs: vs, bucket: bucket}
}

// Load returns the bytes of the most recent snapshot in this bucket, or nil
// if the bucket has never been saved to.
func (c *CatalogStore) Load() ([]byte, error) {
	c.vs.mu.RLock()
	defer c.vs.mu.RUnlock()

	var data []byte
	err := c.vs.db.QueryRow(
		"SELECT data FROM catalog_snapshots WHERE bucket = ? ORDER BY id DESC LIMIT 1",
		c.bucket,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logging.Get(logging.CategoryStore).Error("CatalogStore.Load failed for bucket %s: %v", c.bucket, err)
		return nil, err
	}
	return data, nil
}

// Save appends a new snapshot, causally linked to the bucket's current head
// (if any). History is append-only: Save never overwrites a prior row.
func (c *CatalogStore) Save(data []byte) error {
	c.vs.mu.Lock()
	defer c.vs.mu.Unlock()

	var parentID sql.NullInt64
	err := c.vs.db.QueryRow(
		"SELECT id FROM catalog_snapshots WHERE bucket = ? ORDER BY id DESC LIMIT 1",
		c.bucket,
	).Scan(&parentID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to resolve catalog head: %w", err)
	}

	_, err = c.vs.db.Exec(
		"INSERT INTO catalog_snapshots (bucket, parent_id, data) VALUES (?, ?, ?)",
		c.bucket, parentID, data,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("CatalogStore.Save failed for bucket %s: %v", c.bucket, err)
		return err
	}
	logging.Get(logging.CategoryStore).Debug("CatalogStore.Save: bucket=%s bytes=%d parent=%v", c.bucket, len(data), parentID)
	return nil
}

// CausalChain returns the snapshot history for id, walking backward through
// parent links, oldest first. Pass 0 to start from the current head.
func (c *CatalogStore) CausalChain(id int64) ([][]byte, error) {
	c.vs.mu.RLock()
	defer c.vs.mu.RUnlock()

	if id == 0 {
		err := c.vs.db.QueryRow(
			"SELECT id FROM catalog_snapshots WHERE bucket = ? ORDER BY id DESC LIMIT 1",
			c.bucket,
		).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	var chain [][]byte
	cur := sql.NullInt64{Int64: id, Valid: true}
	for cur.Valid {
		var data []byte
		var parent sql.NullInt64
		err := c.vs.db.QueryRow(
			"SELECT data, parent_id FROM catalog_snapshots WHERE id = ? AND bucket = ?",
			cur.Int64, c.bucket,
		).Scan(&data, &parent)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, data)
		cur = parent
	}

	// Reverse to oldest-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
