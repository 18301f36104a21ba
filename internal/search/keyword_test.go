package search

import (
	"testing"

	"thermocode/internal/types"
)

func TestKeywordBrain_ScoringTiers(t *testing.T) {
	entries := []types.CatalogEntry{
		{ID: "exact", Name: "parser"},
		{ID: "partial", Name: "json-parser-v2"},
		{ID: "keyword", Name: "unrelated", Keywords: []string{"parser"}},
		{ID: "desc", Name: "other", Description: "wraps a parser internally"},
		{ID: "contract", Name: "adapter", ContractsImplemented: []string{"Parser"}},
		{ID: "none", Name: "nothing related"},
	}

	got := KeywordBrain{}.Search("parser", entries)
	scores := make(map[string]float64)
	for _, s := range got {
		scores[s.ID] = s.Score
	}

	if scores["exact"] != 1.0 {
		t.Errorf("expected exact match score 1.0, got %f", scores["exact"])
	}
	if scores["partial"] != 0.5 {
		t.Errorf("expected partial match score 0.5, got %f", scores["partial"])
	}
	if scores["keyword"] != 0.3 {
		t.Errorf("expected keyword match score 0.3, got %f", scores["keyword"])
	}
	if scores["desc"] != 0.2 {
		t.Errorf("expected description match score 0.2, got %f", scores["desc"])
	}
	if scores["contract"] != 0.1 {
		t.Errorf("expected contract match score 0.1, got %f", scores["contract"])
	}
	if _, present := scores["none"]; present {
		t.Error("expected unrelated entry to be excluded")
	}
}

func TestKeywordBrain_EmptyQuery(t *testing.T) {
	got := KeywordBrain{}.Search("", []types.CatalogEntry{{ID: "a", Name: "a"}})
	if got != nil {
		t.Errorf("expected nil results for empty query, got %v", got)
	}
}
