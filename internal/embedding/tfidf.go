package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"thermocode/internal/logging"
)

// tfidfTokenRe matches identifier-like tokens: words and the usual
// camelCase/snake_case code identifiers. A token starts with a letter or
// underscore, so bare numbers are not tokens.
var tfidfTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// TFIDFEngine is the dependency-free fallback embedder required by spec §6
// for when neither Ollama nor GenAI is reachable. It hashes each token into
// a fixed-dimension bucket (the "hashing trick") and weights the bucket by
// the token's TF-IDF score against a running, in-memory corpus
// document-frequency table. The same sequence of texts always yields the
// same embeddings, but the table starts empty in every new engine, so a
// text's embedding depends on what was embedded before it.
type TFIDFEngine struct {
	mu         sync.Mutex
	dimensions int
	docFreq    map[uint32]int
	docCount   int
}

// NewTFIDFEngine creates a TF-IDF fallback engine with the given fixed
// output width.
func NewTFIDFEngine(dimensions int) *TFIDFEngine {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &TFIDFEngine{
		dimensions: dimensions,
		docFreq:    make(map[uint32]int),
	}
}

func (e *TFIDFEngine) bucket(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32() % uint32(e.dimensions)
}

func tokenize(text string) []string {
	return tfidfTokenRe.FindAllString(strings.ToLower(text), -1)
}

// Embed computes a TF-IDF weighted, L2-normalized embedding for text. Each
// call updates the engine's document-frequency table, so embeddings of
// earlier texts shift slightly as the corpus grows — this is acceptable for
// a fallback whose purpose is "good enough, always available", not
// reproducing a fixed pretrained embedding space.
func (e *TFIDFEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	vec := make([]float64, e.dimensions)

	termCount := make(map[uint32]int)
	for _, tok := range tokens {
		termCount[tok2bucket(e, tok)]++
	}

	e.mu.Lock()
	e.docCount++
	for b := range termCount {
		e.docFreq[b]++
	}
	docCount := e.docCount
	for b, tf := range termCount {
		df := e.docFreq[b]
		idf := math.Log(float64(docCount+1)/float64(df+1)) + 1.0
		vec[b] = float64(tf) * idf
	}
	e.mu.Unlock()

	return normalizeL2(vec), nil
}

func tok2bucket(e *TFIDFEngine, tok string) uint32 {
	return e.bucket(tok)
}

func normalizeL2(vec []float64) []float32 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// EmbedBatch embeds each text in sequence; the TF-IDF table update needs to
// see documents in order for stable document-frequency counting.
func (e *TFIDFEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	logging.Get(logging.CategoryEmbedding).Debug("TFIDF.EmbedBatch: embedded %d texts", len(texts))
	return out, nil
}

// Dimensions returns the engine's fixed output width.
func (e *TFIDFEngine) Dimensions() int { return e.dimensions }

// Name identifies this engine.
func (e *TFIDFEngine) Name() string { return "tfidf" }
