package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger — общий интерфейс логирования для всех слоёв приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	With(key string, value any) Logger
	Sync() error
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// New создаёт JSON-логгер поверх zap с полями service и env.
// Если задан LOG_FILE, логи дублируются в файл.
func New(service, env, level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		if err := ensureLogFile(logFile); err != nil {
			return nil, fmt.Errorf("prepare log file: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	cfg.InitialFields = map[string]any{
		"service": service,
		"env":     env,
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &zapLogger{l: l.Sugar()}, nil
}

// MustNew то же, что New, но паникует при ошибке.
func MustNew(service, env, level string) Logger {
	l, err := New(service, env, level)
	if err != nil {
		panic(err)
	}
	return l
}

// NewNop возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.l.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.l.Warnf(format, args...)
}

func (z *zapLogger) Errorf(err error, format string, args ...any) {
	z.l.With(zap.Error(err)).Errorf(format, args...)
}

func (z *zapLogger) With(key string, value any) Logger {
	return &zapLogger{l: z.l.With(key, value)}
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}

func ensureLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
