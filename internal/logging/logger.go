// Package logging provides config-driven categorized file-based logging for
// the evolution pipeline. Logs are written to .evolve/logs/ with one file
// per category; logging is gated by debug_mode in .evolve/config.json — when
// false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one subsystem's log stream.
type Category string

const (
	CategoryBoot      Category = "boot"
	CategoryPipeline  Category = "pipeline"
	CategoryCycle     Category = "cycle"
	CategoryLattice   Category = "lattice"
	CategoryMemory    Category = "memory"
	CategoryCatalog   Category = "catalog"
	CategorySearch    Category = "search"
	CategoryAST       Category = "ast"
	CategoryPrompt    Category = "prompt"
	CategoryValidator Category = "validator"
	CategoryHarness   Category = "harness"
	CategoryJudge     Category = "judge"
	CategoryMutator   Category = "mutator"
	CategoryDemon     Category = "demon"
	CategoryLibrary   Category = "library"
	CategoryPhage     Category = "phage"
	CategorySafety    Category = "safety"
	CategoryLLM       Category = "llm"
	CategoryEmbedding Category = "embedding"
	CategoryVCS       Category = "vcs"
	CategoryStore     Category = "store"
	CategoryMangle    Category = "mangle"
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig, kept
// separate to avoid an import cycle with the config package.
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// Logger wraps a zap.Logger scoped to one category and output file.
type Logger struct {
	category Category
	zl       *zap.Logger
	file     *os.File
}

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int

	initOnce    sync.Once
	initErr     error
	initialized bool
)

// Initialize sets up the logging directory and loads config. Call once at
// startup with the workspace path (the pipeline's working directory).
func Initialize(ws string) error {
	initOnce.Do(func() {
		initErr = doInitialize(ws)
		initialized = initErr == nil
	})
	return initErr
}

func doInitialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}
	workspace = ws
	logsDir = filepath.Join(workspace, ".evolve", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		config.DebugMode = false
	}

	if !config.DebugMode {
		return nil
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== evolution pipeline logging initialized ===")
	boot.Info("workspace: %s", workspace)
	boot.Info("log level: %s", config.Level)
	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".evolve", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			config.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config = cf.Logging
	configLoaded = true

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// ReloadConfig re-reads the config file; call if it changes at runtime.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode reports whether logging is writing to disk at all.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled reports whether a category is currently logging.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		zl:       newZapLogger(file, string(category)),
	}
	loggers[category] = l
	return l
}

// newZapLogger builds a per-category zap.Logger writing to w. Encoding
// follows config.JSONFormat: the JSON encoder keeps the ts/cat/lvl/msg
// field names Mangle-side parsing expects (predicate
// log_entry(Timestamp, Category, Level, Message)); the console encoder
// is used for the human-readable default.
func newZapLogger(w *os.File, category string) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		LevelKey:   "lvl",
		MessageKey: "msg",
		NameKey:    "cat",
		EncodeTime: zapcore.EpochMillisTimeEncoder,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToLower(l.String()))
		},
	}
	var encoder zapcore.Encoder
	if config.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.ConsoleSeparator = " "
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core).Named(category)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.zl == nil || logLevel > LevelDebug {
		return
	}
	l.zl.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.zl == nil || logLevel > LevelInfo {
		return
	}
	l.zl.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.zl == nil || logLevel > LevelWarn {
		return
	}
	l.zl.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.zl == nil {
		return
	}
	l.zl.Error(fmt.Sprintf(format, args...))
}

// StructuredLog writes an entry with custom fields attached as zap.Any pairs.
func (l *Logger) StructuredLog(level, msg string, fields map[string]interface{}) {
	if l.zl == nil {
		return
	}
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	switch level {
	case "debug":
		l.zl.Debug(msg, zfields...)
	case "warn":
		l.zl.Warn(msg, zfields...)
	case "error":
		l.zl.Error(msg, zfields...)
	default:
		l.zl.Info(msg, zfields...)
	}
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.zl != nil {
			_ = l.zl.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures an operation's duration for performance logging.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold, else debug.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
