// Package store - semantic vector search on top of VectorStore.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"thermocode/internal/embedding"
	"thermocode/internal/logging"
)

// VectorEntry is one stored content/embedding/metadata record.
type VectorEntry struct {
	ID         int64
	Content    string
	Metadata   map[string]interface{}
	CreatedAt  time.Time
	Similarity float64
}

// SetEmbeddingEngine configures the embedding engine for this VectorStore.
// Passing nil reverts to keyword-only search. Setting a non-nil engine
// initializes the sqlite-vec ANN index (if available) and backfills any
// vectors stored before an engine was configured.
func (s *VectorStore) SetEmbeddingEngine(engine embedding.EmbeddingEngine) {
	if s == nil {
		return
	}

	s.mu.Lock()
	if engine != nil {
		logging.Get(logging.CategoryStore).Info("Setting embedding engine: %s (dimensions=%d)", engine.Name(), engine.Dimensions())
		s.initVecIndex(engine.Dimensions())
		dim := engine.Dimensions()
		go func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.backfillVecIndex(dim)
		}()
	} else {
		logging.Get(logging.CategoryStore).Debug("Embedding engine set to nil (keyword-only mode)")
	}
	s.embeddingEngine = engine
	s.mu.Unlock()
}

// StoreVectorWithEmbedding stores content with a real vector embedding,
// falling back to keyword-only storage when no embedding engine is set.
func (s *VectorStore) StoreVectorWithEmbedding(ctx context.Context, content string, metadata map[string]interface{}) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreVectorWithEmbedding")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingEngine == nil {
		return s.storeVectorKeywordOnly(content, metadata)
	}

	taskType := embedding.GetOptimalTaskType(content, metadata, false)
	var embeddingVec []float32
	var err error
	if taskAware, ok := s.embeddingEngine.(TaskTypeAwareEngine); ok && taskType != "" {
		embeddingVec, err = taskAware.EmbedWithTask(ctx, content, taskType)
	} else {
		embeddingVec, err = s.embeddingEngine.Embed(ctx, content)
	}
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to generate embedding: %v", err)
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embeddingVec)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}
	metaJSON, _ := json.Marshal(metadata)

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO vectors (content, embedding, metadata) VALUES (?, ?, ?)",
		content, string(embeddingJSON), string(metaJSON),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to store vector in SQLite: %v", err)
		return err
	}

	if s.vectorExt {
		vecBlob := encodeFloat32Slice(embeddingVec)
		_, _ = s.db.Exec(
			"INSERT OR REPLACE INTO vec_index (embedding, content, metadata) VALUES (?, ?, ?)",
			vecBlob, content, string(metaJSON),
		)
	}

	return nil
}

// StoreVectorBatchWithEmbedding stores a batch of entries with embeddings.
func (s *VectorStore) StoreVectorBatchWithEmbedding(ctx context.Context, contents []string, metadata []map[string]interface{}) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "StoreVectorBatchWithEmbedding")
	defer timer.Stop()

	if len(contents) == 0 {
		return 0, nil
	}
	if len(contents) != len(metadata) {
		return 0, fmt.Errorf("contents/metadata length mismatch: %d != %d", len(contents), len(metadata))
	}

	s.mu.RLock()
	engine := s.embeddingEngine
	vecEnabled := s.vectorExt
	s.mu.RUnlock()

	if engine == nil {
		return s.storeVectorBatchKeywordOnly(contents, metadata)
	}

	taskTypes := make([]string, len(contents))
	uniformTask := true
	for i, content := range contents {
		taskTypes[i] = embedding.GetOptimalTaskType(content, metadata[i], false)
		if i > 0 && taskTypes[i] != taskTypes[0] {
			uniformTask = false
		}
	}

	var embeddings [][]float32
	var err error
	if uniformTask && taskTypes[0] != "" {
		if batchAware, ok := engine.(TaskTypeBatchAwareEngine); ok {
			embeddings, err = batchAware.EmbedBatchWithTask(ctx, contents, taskTypes[0])
		} else if taskAware, ok := engine.(TaskTypeAwareEngine); ok {
			embeddings = make([][]float32, len(contents))
			for i, content := range contents {
				vec, embedErr := taskAware.EmbedWithTask(ctx, content, taskTypes[0])
				if embedErr != nil {
					logging.Get(logging.CategoryStore).Warn("Failed to embed batch item %d: %v", i, embedErr)
					continue
				}
				embeddings[i] = vec
			}
		} else {
			embeddings, err = engine.EmbedBatch(ctx, contents)
		}
	} else if taskAware, ok := engine.(TaskTypeAwareEngine); ok {
		embeddings = make([][]float32, len(contents))
		for i, content := range contents {
			vec, embedErr := taskAware.EmbedWithTask(ctx, content, taskTypes[i])
			if embedErr != nil {
				logging.Get(logging.CategoryStore).Warn("Failed to embed batch item %d: %v", i, embedErr)
				continue
			}
			embeddings[i] = vec
		}
	} else {
		embeddings, err = engine.EmbedBatch(ctx, contents)
	}
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(contents) {
		return 0, fmt.Errorf("embedding batch size mismatch: %d != %d", len(embeddings), len(contents))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO vectors (content, embedding, metadata) VALUES (?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var vecStmt *sql.Stmt
	if vecEnabled {
		vecStmt, err = tx.Prepare("INSERT OR REPLACE INTO vec_index (embedding, content, metadata) VALUES (?, ?, ?)")
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		defer vecStmt.Close()
	}

	stored := 0
	failed := 0
	var firstErr error
	for i, content := range contents {
		if len(embeddings[i]) == 0 {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("empty embedding for content index %d", i)
			}
			continue
		}
		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metaJSON, _ := json.Marshal(metadata[i])
		if _, err := stmt.Exec(content, string(embeddingJSON), string(metaJSON)); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if vecEnabled {
			vecBlob := encodeFloat32Slice(embeddings[i])
			_, _ = vecStmt.Exec(vecBlob, content, string(metaJSON))
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return stored, err
	}
	if failed > 0 {
		return stored, fmt.Errorf("stored %d/%d vectors (%d failed): %v", stored, len(contents), failed, firstErr)
	}
	return stored, nil
}

func (s *VectorStore) storeVectorKeywordOnly(content string, metadata map[string]interface{}) error {
	metaJSON, _ := json.Marshal(metadata)
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO vectors (content, metadata) VALUES (?, ?)",
		content, string(metaJSON),
	)
	return err
}

func (s *VectorStore) storeVectorBatchKeywordOnly(contents []string, metadata []map[string]interface{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO vectors (content, metadata) VALUES (?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for i, content := range contents {
		metaJSON, _ := json.Marshal(metadata[i])
		if _, err := stmt.Exec(content, string(metaJSON)); err != nil {
			continue
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return stored, err
	}
	return stored, nil
}

// VectorRecall performs a keyword (LIKE-based) search over stored content.
// This is the fallback used whenever no embedding engine is configured.
func (s *VectorStore) VectorRecall(query string, limit int) ([]VectorEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "VectorRecall")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}

	sqlQuery := fmt.Sprintf(
		"SELECT id, content, metadata, created_at FROM vectors WHERE %s ORDER BY created_at DESC LIMIT ?",
		strings.Join(conditions, " OR "),
	)
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []VectorEntry
	for rows.Next() {
		var entry VectorEntry
		var metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Content, &metaJSON, &entry.CreatedAt); err != nil {
			continue
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &entry.Metadata)
		}
		results = append(results, entry)
	}
	return results, nil
}

// VectorRecallSemantic performs semantic search using cosine similarity (or
// sqlite-vec ANN, when available), falling back to keyword search when no
// embedding engine is configured.
func (s *VectorStore) VectorRecallSemantic(ctx context.Context, query string, limit int) ([]VectorEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "VectorRecallSemantic")
	defer timer.Stop()

	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	engine := s.embeddingEngine
	vecEnabled := s.vectorExt
	s.mu.RUnlock()

	if engine == nil {
		return s.vectorRecallKeyword(query, limit)
	}

	queryTaskType := embedding.GetOptimalTaskType(query, nil, true)
	var queryEmbedding []float32
	var err error
	if taskAware, ok := engine.(TaskTypeAwareEngine); ok && queryTaskType != "" {
		queryEmbedding, err = taskAware.EmbedWithTask(ctx, query, queryTaskType)
	} else {
		queryEmbedding, err = engine.Embed(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	if vecEnabled {
		return s.vectorRecallVec(queryEmbedding, limit, nil, "", nil)
	}

	return s.vectorRecallBruteForce(queryEmbedding, limit)
}

// VectorRecallSemanticByPaths restricts search to a list of allowed paths
// (matched via metadata's "path" key).
func (s *VectorStore) VectorRecallSemanticByPaths(ctx context.Context, query string, limit int, allowedPaths []string) ([]VectorEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "VectorRecallSemanticByPaths")
	defer timer.Stop()

	if len(allowedPaths) == 0 {
		return s.VectorRecallSemantic(ctx, query, limit)
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	engine := s.embeddingEngine
	vecEnabled := s.vectorExt
	s.mu.RUnlock()

	if engine == nil {
		all, err := s.vectorRecallKeyword(query, limit*5)
		if err != nil {
			return nil, err
		}
		filtered := filterByPaths(all, allowedPaths)
		if len(filtered) > limit {
			filtered = filtered[:limit]
		}
		return filtered, nil
	}

	queryTaskType := embedding.GetOptimalTaskType(query, nil, true)
	var queryEmbedding []float32
	var err error
	if taskAware, ok := engine.(TaskTypeAwareEngine); ok && queryTaskType != "" {
		queryEmbedding, err = taskAware.EmbedWithTask(ctx, query, queryTaskType)
	} else {
		queryEmbedding, err = engine.Embed(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if vecEnabled {
		return s.vectorRecallVec(queryEmbedding, limit, allowedPaths, "", nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	queryStr, args := buildPathFilteredQuery(allowedPaths)
	rows, err := s.db.Query(queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := scanSimilarityCandidates(rows, queryEmbedding)
	return topCandidates(candidates, limit), nil
}

// VectorRecallSemanticFiltered restricts search to entries whose metadata
// contains a key/value pair.
func (s *VectorStore) VectorRecallSemanticFiltered(ctx context.Context, query string, limit int, metaKey string, metaValue interface{}) ([]VectorEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "VectorRecallSemanticFiltered")
	defer timer.Stop()

	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	engine := s.embeddingEngine
	vecEnabled := s.vectorExt
	s.mu.RUnlock()

	if engine == nil {
		all, err := s.vectorRecallKeyword(query, limit*5)
		if err != nil {
			return nil, err
		}
		filtered := make([]VectorEntry, 0, len(all))
		for _, e := range all {
			if matchesMetadata(e.Metadata, metaKey, metaValue) {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) > limit {
			filtered = filtered[:limit]
		}
		return filtered, nil
	}

	queryTaskType := embedding.GetOptimalTaskType(query, nil, true)
	var queryEmbedding []float32
	var err error
	if taskAware, ok := engine.(TaskTypeAwareEngine); ok && queryTaskType != "" {
		queryEmbedding, err = taskAware.EmbedWithTask(ctx, query, queryTaskType)
	} else {
		queryEmbedding, err = engine.Embed(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if vecEnabled {
		return s.vectorRecallVec(queryEmbedding, limit, nil, metaKey, metaValue)
	}

	return s.vectorRecallBruteForceFiltered(queryEmbedding, limit, metaKey, metaValue)
}

func (s *VectorStore) vectorRecallKeyword(query string, limit int) ([]VectorEntry, error) {
	return s.VectorRecall(query, limit)
}

func matchesMetadata(meta map[string]interface{}, key string, value interface{}) bool {
	if key == "" {
		return true
	}
	if meta == nil {
		return false
	}
	if v, ok := meta[key]; ok {
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", value)
	}
	return false
}

func buildPathFilteredQuery(paths []string) (string, []interface{}) {
	base := "SELECT id, content, embedding, metadata, created_at FROM vectors WHERE embedding IS NOT NULL"
	if len(paths) == 0 {
		return base, nil
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString(" AND (")
	args := make([]interface{}, 0, len(paths))
	for i, p := range paths {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("metadata LIKE ?")
		args = append(args, fmt.Sprintf("%%\"path\":\"%s\"%%", p))
	}
	sb.WriteString(")")
	return sb.String(), args
}

func filterByPaths(entries []VectorEntry, paths []string) []VectorEntry {
	pathSet := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		pathSet[p] = struct{}{}
	}
	out := make([]VectorEntry, 0, len(entries))
	for _, e := range entries {
		p := ""
		if e.Metadata != nil {
			if v, ok := e.Metadata["path"].(string); ok {
				p = v
			}
		}
		if _, ok := pathSet[p]; ok {
			out = append(out, e)
		}
	}
	return out
}

type similarityCandidate struct {
	entry      VectorEntry
	similarity float64
}

// scanSimilarityCandidates reads rows of (id, content, embedding, metadata,
// created_at) and scores each against queryEmbedding.
func scanSimilarityCandidates(rows *sql.Rows, queryEmbedding []float32) []similarityCandidate {
	var candidates []similarityCandidate
	for rows.Next() {
		var entry VectorEntry
		var embeddingJSON, metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Content, &embeddingJSON, &metaJSON, &entry.CreatedAt); err != nil {
			continue
		}
		var embeddingVec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embeddingVec); err != nil {
			continue
		}
		similarity, err := embedding.CosineSimilarity(queryEmbedding, embeddingVec)
		if err != nil {
			continue
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &entry.Metadata)
		}
		candidates = append(candidates, similarityCandidate{entry: entry, similarity: similarity})
	}
	return candidates
}

func topCandidates(candidates []similarityCandidate, limit int) []VectorEntry {
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].similarity > candidates[i].similarity {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]VectorEntry, len(candidates))
	for i, c := range candidates {
		results[i] = c.entry
		if results[i].Metadata == nil {
			results[i].Metadata = make(map[string]interface{})
		}
		results[i].Metadata["similarity"] = c.similarity
	}
	return results
}

func (s *VectorStore) vectorRecallBruteForce(queryEmbedding []float32, limit int) ([]VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, content, embedding, metadata, created_at FROM vectors WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return topCandidates(scanSimilarityCandidates(rows, queryEmbedding), limit), nil
}

func (s *VectorStore) vectorRecallBruteForceFiltered(queryEmbedding []float32, limit int, metaKey string, metaValue interface{}) ([]VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryStr := "SELECT id, content, embedding, metadata, created_at FROM vectors WHERE embedding IS NOT NULL"
	var rows *sql.Rows
	var err error
	if metaKey != "" && metaValue != nil {
		pattern := fmt.Sprintf("%%\"%s\":\"%v\"%%", metaKey, metaValue)
		rows, err = s.db.Query(queryStr+" AND metadata LIKE ?", pattern)
	} else {
		rows, err = s.db.Query(queryStr)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []similarityCandidate
	for rows.Next() {
		var entry VectorEntry
		var embeddingJSON, metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Content, &embeddingJSON, &metaJSON, &entry.CreatedAt); err != nil {
			continue
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &entry.Metadata)
		}
		if !matchesMetadata(entry.Metadata, metaKey, metaValue) {
			continue
		}
		var embeddingVec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embeddingVec); err != nil {
			continue
		}
		similarity, err := embedding.CosineSimilarity(queryEmbedding, embeddingVec)
		if err != nil {
			continue
		}
		candidates = append(candidates, similarityCandidate{entry: entry, similarity: similarity})
	}
	return topCandidates(candidates, limit), nil
}

// vectorRecallVec performs ANN search via sqlite-vec when available.
func (s *VectorStore) vectorRecallVec(queryVec []float32, limit int, allowedPaths []string, metaKey string, metaValue interface{}) ([]VectorEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "vectorRecallVec")
	defer timer.Stop()

	if !s.vectorExt {
		return nil, fmt.Errorf("sqlite-vec not enabled")
	}
	if limit <= 0 {
		limit = 10
	}

	queryBlob := encodeFloat32Slice(queryVec)

	where := make([]string, 0)
	args := make([]interface{}, 0)

	if len(allowedPaths) > 0 {
		clause := make([]string, 0, len(allowedPaths))
		for _, p := range allowedPaths {
			clause = append(clause, "metadata LIKE ?")
			args = append(args, fmt.Sprintf("%%\"path\":\"%s\"%%", p))
		}
		where = append(where, "("+strings.Join(clause, " OR ")+")")
	}
	if metaKey != "" && metaValue != nil {
		where = append(where, "metadata LIKE ?")
		args = append(args, fmt.Sprintf("%%\"%s\":\"%v\"%%", metaKey, metaValue))
	}

	sqlStr := "SELECT rowid, content, metadata, vec_distance_cosine(embedding, ?) AS dist FROM vec_index"
	args = append([]interface{}{queryBlob}, args...)
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY dist ASC LIMIT ?"
	args = append(args, limit)

	s.mu.RLock()
	rows, err := s.db.Query(sqlStr, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]VectorEntry, 0, limit)
	for rows.Next() {
		var id int64
		var content, metaJSON string
		var dist float64
		if err := rows.Scan(&id, &content, &metaJSON, &dist); err != nil {
			continue
		}
		entry := VectorEntry{
			ID:        id,
			Content:   content,
			CreatedAt: time.Now(),
			Metadata:  make(map[string]interface{}),
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &entry.Metadata)
		}
		entry.Metadata["similarity"] = 1 - dist
		results = append(results, entry)
	}
	return results, nil
}

// initVecIndex attempts to create a sqlite-vec table; if it succeeds,
// vectorExt is enabled.
func (s *VectorStore) initVecIndex(dim int) {
	if dim <= 0 || s.db == nil {
		return
	}
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d], content TEXT, metadata TEXT)", dim)
	if _, err := s.db.Exec(stmt); err == nil {
		s.vectorExt = true
	} else {
		logging.Get(logging.CategoryStore).Warn("Failed to create sqlite-vec index: %v", err)
	}
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

// backfillVecIndex migrates existing JSON-stored embeddings into sqlite-vec.
// Runs in a background goroutine; batches inserts in transactions.
func (s *VectorStore) backfillVecIndex(dim int) {
	if !s.vectorExt || s.db == nil || dim <= 0 {
		return
	}

	rows, err := s.db.Query("SELECT content, embedding, metadata FROM vectors WHERE embedding IS NOT NULL")
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to query embeddings for backfill: %v", err)
		return
	}

	type embeddingRow struct {
		content  string
		vecBlob  []byte
		metaJSON string
	}

	var toInsert []embeddingRow
	for rows.Next() {
		var content, embeddingJSON, metaJSON string
		if err := rows.Scan(&content, &embeddingJSON, &metaJSON); err != nil {
			continue
		}
		var embeddingVec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embeddingVec); err != nil {
			continue
		}
		if len(embeddingVec) != dim {
			continue
		}
		toInsert = append(toInsert, embeddingRow{
			content:  content,
			vecBlob:  encodeFloat32Slice(embeddingVec),
			metaJSON: metaJSON,
		})
	}
	rows.Close()

	if len(toInsert) == 0 {
		return
	}

	const batchSize = 100
	backfillCount := 0
	for i := 0; i < len(toInsert); i += batchSize {
		end := i + batchSize
		if end > len(toInsert) {
			end = len(toInsert)
		}
		batch := toInsert[i:end]

		tx, err := s.db.Begin()
		if err != nil {
			continue
		}
		stmt, err := tx.Prepare("INSERT OR REPLACE INTO vec_index (embedding, content, metadata) VALUES (?, ?, ?)")
		if err != nil {
			tx.Rollback()
			continue
		}
		batchSuccess := 0
		for _, row := range batch {
			if _, err := stmt.Exec(row.vecBlob, row.content, row.metaJSON); err == nil {
				batchSuccess++
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			continue
		}
		backfillCount += batchSuccess
	}
	logging.Get(logging.CategoryStore).Info("Backfill complete: migrated=%d", backfillCount)
}

// CountVectorsByMetadata returns the number of vectors whose metadata
// contains the key/value pair.
func (s *VectorStore) CountVectorsByMetadata(metaKey string, metaValue interface{}) (int, error) {
	if metaKey == "" {
		return 0, fmt.Errorf("metadata key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := fmt.Sprintf("%%\"%s\":\"%v\"%%", metaKey, metaValue)
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM vectors WHERE metadata LIKE ?", pattern).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// VectorContentsByMetadata returns the set of contents matching a metadata
// key/value pair.
func (s *VectorStore) VectorContentsByMetadata(metaKey string, metaValue interface{}) (map[string]struct{}, error) {
	if metaKey == "" {
		return nil, fmt.Errorf("metadata key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := fmt.Sprintf("%%\"%s\":\"%v\"%%", metaKey, metaValue)
	rows, err := s.db.Query("SELECT content FROM vectors WHERE metadata LIKE ?", pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := make(map[string]struct{})
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			continue
		}
		contents[content] = struct{}{}
	}
	return contents, nil
}

// DeleteVectorsByMetadata removes vectors whose metadata contains the
// key/value pair. Returns the number of rows deleted.
func (s *VectorStore) DeleteVectorsByMetadata(metaKey string, metaValue interface{}) (int64, error) {
	if metaKey == "" {
		return 0, fmt.Errorf("metadata key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pattern := fmt.Sprintf("%%\"%s\":\"%v\"%%", metaKey, metaValue)
	result, err := s.db.Exec("DELETE FROM vectors WHERE metadata LIKE ?", pattern)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetVectorStats returns statistics about stored vectors.
func (s *VectorStore) GetVectorStats() (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var totalVectors int64
	s.db.QueryRow("SELECT COUNT(*) FROM vectors").Scan(&totalVectors)
	stats["total_vectors"] = totalVectors

	var withEmbeddings int64
	s.db.QueryRow("SELECT COUNT(*) FROM vectors WHERE embedding IS NOT NULL").Scan(&withEmbeddings)
	stats["with_embeddings"] = withEmbeddings
	stats["without_embeddings"] = totalVectors - withEmbeddings

	if s.embeddingEngine != nil {
		stats["embedding_engine"] = s.embeddingEngine.Name()
		stats["embedding_dimensions"] = s.embeddingEngine.Dimensions()
	} else {
		stats["embedding_engine"] = "none (keyword search)"
	}

	return stats, nil
}

// ReembedAllVectors regenerates embeddings for vectors that don't have them.
func (s *VectorStore) ReembedAllVectors(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingEngine == nil {
		return fmt.Errorf("no embedding engine configured")
	}

	rows, err := s.db.Query("SELECT id, content, metadata FROM vectors WHERE embedding IS NULL")
	if err != nil {
		return err
	}
	defer rows.Close()

	type vectorToEmbed struct {
		id       int64
		content  string
		metadata string
	}

	var vectors []vectorToEmbed
	for rows.Next() {
		var v vectorToEmbed
		if err := rows.Scan(&v.id, &v.content, &v.metadata); err != nil {
			continue
		}
		vectors = append(vectors, v)
	}
	if len(vectors) == 0 {
		return nil
	}

	batchSize := 32
	for i := 0; i < len(vectors); i += batchSize {
		end := int(math.Min(float64(i+batchSize), float64(len(vectors))))
		batch := vectors[i:end]

		texts := make([]string, len(batch))
		for j, v := range batch {
			texts[j] = v.content
		}

		embeddings, err := s.embeddingEngine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate batch embeddings: %w", err)
		}

		for j, v := range batch {
			embeddingJSON, _ := json.Marshal(embeddings[j])
			if _, err := s.db.Exec("UPDATE vectors SET embedding = ? WHERE id = ?", string(embeddingJSON), v.id); err != nil {
				return fmt.Errorf("failed to update vector %d: %w", v.id, err)
			}
			if s.vectorExt {
				vecBlob := encodeFloat32Slice(embeddings[j])
				_, _ = s.db.Exec(
					"INSERT OR REPLACE INTO vec_index (embedding, content, metadata) VALUES (?, ?, ?)",
					vecBlob, v.content, v.metadata,
				)
			}
		}
	}
	return nil
}

// =============================================================================
// TASK-TYPE AWARE VECTOR SEARCH
// =============================================================================

// TaskTypeAwareEngine extends EmbeddingEngine with task-type-specific embedding.
type TaskTypeAwareEngine interface {
	embedding.EmbeddingEngine
	EmbedWithTask(ctx context.Context, text string, taskType string) ([]float32, error)
}

// TaskTypeBatchAwareEngine extends EmbeddingEngine with task-type-specific
// batch embedding.
type TaskTypeBatchAwareEngine interface {
	embedding.EmbeddingEngine
	EmbedBatchWithTask(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// VectorRecallSemanticWithTask performs vector search with an explicit query
// task type, so RETRIEVAL_QUERY can be used for queries while documents use
// RETRIEVAL_DOCUMENT.
func (s *VectorStore) VectorRecallSemanticWithTask(ctx context.Context, query string, limit int, queryTaskType string) ([]VectorEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	engine := s.embeddingEngine
	vecEnabled := s.vectorExt
	s.mu.RUnlock()

	if engine == nil {
		return s.vectorRecallKeyword(query, limit)
	}

	var queryEmbedding []float32
	var err error
	if taskAware, ok := engine.(TaskTypeAwareEngine); ok && queryTaskType != "" {
		queryEmbedding, err = taskAware.EmbedWithTask(ctx, query, queryTaskType)
	} else {
		queryEmbedding, err = engine.Embed(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	if vecEnabled {
		return s.vectorRecallVec(queryEmbedding, limit, nil, "", nil)
	}
	return s.vectorRecallBruteForce(queryEmbedding, limit)
}
