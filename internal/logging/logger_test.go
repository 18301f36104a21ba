package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetLoggingState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	configLoaded = false
	config = loggingConfig{}
	initOnce = sync.Once{}
	initErr = nil
	initialized = false
	auditLogger = nil
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".evolve")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := `{"logging": {"level": "debug", "debug_mode": true}}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot, CategoryPipeline, CategoryCycle, CategoryLattice, CategoryMemory,
		CategoryCatalog, CategorySearch, CategoryAST, CategoryPrompt, CategoryValidator,
		CategoryHarness, CategoryJudge, CategoryMutator, CategoryDemon, CategoryLibrary,
		CategoryPhage, CategorySafety, CategoryLLM, CategoryEmbedding, CategoryVCS, CategoryStore,
	}
	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("info for %s", cat)
		logger.Debug("debug for %s", cat)
		logger.Warn("warn for %s", cat)
		logger.Error("error for %s", cat)
	}

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".evolve", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("failed to read logs dir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil || len(content) == 0 {
					t.Errorf("log file for %s is missing or empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("no log file found for category %s", cat)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_disabled")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".evolve")
	os.MkdirAll(configDir, 0755)
	configContent := `{"logging": {"level": "debug", "debug_mode": false}}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Fatal("expected debug mode to be disabled")
	}
	if IsCategoryEnabled(CategoryPipeline) {
		t.Error("pipeline should be disabled when debug_mode=false")
	}

	Get(CategoryBoot).Info("should not be logged")
	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".evolve", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("expected no log files in production mode, found %d", len(entries))
		}
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_category")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".evolve")
	os.MkdirAll(configDir, 0755)
	configContent := `{"logging": {"level": "debug", "debug_mode": true, "categories": {"boot": true, "demon": false}}}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if IsCategoryEnabled(CategoryDemon) {
		t.Error("demon should be disabled")
	}
	if !IsCategoryEnabled(CategoryJudge) {
		t.Error("judge (not in config) should default to enabled")
	}
	CloseAll()
	CloseAudit()
}

func TestTimerLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_timer")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".evolve")
	os.MkdirAll(configDir, 0755)
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(`{"logging": {"level": "debug", "debug_mode": true}}`), 0644)

	resetLoggingState()
	Initialize(tempDir)

	timer := StartTimer(CategoryPipeline, "TestOperation")
	time.Sleep(time.Millisecond)
	if elapsed := timer.Stop(); elapsed <= 0 {
		t.Error("timer should have recorded non-zero duration")
	}

	CloseAll()
	CloseAudit()
}

func TestAuditMutationLifecycle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_audit")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".evolve")
	os.MkdirAll(configDir, 0755)
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(`{"logging": {"level": "debug", "debug_mode": true}}`), 0644)

	resetLoggingState()
	Initialize(tempDir)
	if err := InitAudit(); err != nil {
		t.Fatalf("failed to init audit: %v", err)
	}

	logger := AuditForPhage("mod_a", "phage-1")
	logger.InfectionStarted("mod_a.go")
	logger.InfectionFailed("mod_a.go", "tests failed")
	logger.RolledBack("mod_a.go")
	CloseAll()
	CloseAudit()

	entries, _ := os.ReadDir(filepath.Join(tempDir, ".evolve", "logs"))
	foundAudit := false
	for _, e := range entries {
		if strings.Contains(e.Name(), "audit") {
			foundAudit = true
			content, _ := os.ReadFile(filepath.Join(tempDir, ".evolve", "logs", e.Name()))
			if !strings.Contains(string(content), "infection_event") {
				t.Error("expected infection_event Mangle fact in audit log")
			}
		}
	}
	if !foundAudit {
		t.Error("expected an audit log file")
	}
}
