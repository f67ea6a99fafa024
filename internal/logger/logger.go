package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"trafficserver/internal/config"
)

const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	sugar  *zap.SugaredLogger
	base   *zap.Logger
	files  map[string]*lumberjack.Logger
	logDir string
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	level := parseLevel(cfg.LogLevel)
	l := &Logger{
		logDir: cfg.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	console := zapcore.NewConsoleEncoder(consoleCfg)

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.TimeKey = "timestamp"
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	file := zapcore.NewJSONEncoder(fileCfg)

	below := func(max zapcore.Level) zap.LevelEnablerFunc {
		return func(lvl zapcore.Level) bool { return lvl >= level && lvl < max }
	}
	exactly := func(want zapcore.Level) zap.LevelEnablerFunc {
		return func(lvl zapcore.Level) bool { return lvl >= level && lvl == want }
	}
	atLeast := func(min zapcore.Level) zap.LevelEnablerFunc {
		return func(lvl zapcore.Level) bool { return lvl >= level && lvl >= min }
	}

	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), below(zapcore.ErrorLevel)),
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), atLeast(zapcore.ErrorLevel)),
		zapcore.NewCore(file, zapcore.AddSync(l.openLogFile(InfoFile)), below(zapcore.WarnLevel)),
		zapcore.NewCore(file, zapcore.AddSync(l.openLogFile(WarningFile)), exactly(zapcore.WarnLevel)),
		zapcore.NewCore(file, zapcore.AddSync(l.openLogFile(ErrorFile)), atLeast(zapcore.ErrorLevel)),
	)

	l.base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	l.sugar = l.base.Sugar()
	return l, nil
}

// NewNop returns a Logger that discards everything. Intended for tests.
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{
		base:  base,
		sugar: base.Sugar(),
		files: make(map[string]*lumberjack.Logger),
	}
}

// openLogFile returns a rotating writer for a file in the log directory.
func (l *Logger) openLogFile(filename string) *lumberjack.Logger {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, filename),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}
	l.files[filename] = w
	return w
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Zap exposes the structured logger for callers that want fields.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Directory returns the directory log files are written to.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs rotates the specified log file so the active file starts empty.
func (l *Logger) CleanLogs(fileName string) error {
	w, ok := l.files[fileName]
	if !ok {
		return fmt.Errorf("unknown log file: %s", fileName)
	}
	if err := w.Rotate(); err != nil {
		l.Error("Error rotating %s: %v", fileName, err)
		return err
	}

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Sync flushes buffered entries and closes the log files.
func (l *Logger) Sync() {
	_ = l.base.Sync()
	for _, w := range l.files {
		_ = w.Close()
	}
}
