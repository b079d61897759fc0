package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"research-agent/internal/application/port/output"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "timestamp",
	LevelKey:       "level",
	NameKey:        "component",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.MillisDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

type Config struct {
	Dir   string
	Task  string
	Level string
}

// LoggerAdapter writes JSON lines through zap. One file per run:
// <dir>/<timestamp>_<task>.log.
type LoggerAdapter struct {
	sugar *zap.SugaredLogger
	file  *os.File
}

func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(cfg.Task))
	file, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(file),
		zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
	)

	return &LoggerAdapter{
		sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		file:  file,
	}, nil
}

// NewNopLogger discards everything. Used in tests and when the log file
// cannot be created.
func NewNopLogger() *LoggerAdapter {
	return &LoggerAdapter{sugar: zap.NewNop().Sugar()}
}

// ParseLevel maps debug/info/warn/error to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{
		sugar: l.sugar.With(key, value),
		file:  l.file,
	}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &LoggerAdapter{
		sugar: l.sugar.With(args...),
		file:  l.file,
	}
}

// Path returns the log file location, empty for a nop logger.
func (l *LoggerAdapter) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *LoggerAdapter) Close() error {
	_ = l.sugar.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "query"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
