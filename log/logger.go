// Package log provides subsystem scoped logging on top of logrus.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SubLogger tags log entries with the subsystem that produced them.
type SubLogger struct {
	name string
}

// Name returns the subsystem name.
func (s *SubLogger) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Subsystem loggers
var (
	Global        = NewSubLogger("LOG")
	ExchangeSys   = NewSubLogger("EXCHANGE")
	SigningSys    = NewSubLogger("SIGNING")
	WalletSys     = NewSubLogger("WALLET")
	RequestSys    = NewSubLogger("REQUESTER")
	DatabaseSys   = NewSubLogger("DATABASE")
	PolymarketSys = NewSubLogger("POLYMARKET")
)

var errUnhandledFormat = errors.New("unhandled log format")

var (
	mu     sync.RWMutex
	logger = newDefaultLogger()
	closer io.Closer
)

// NewSubLogger returns a logger for the named subsystem.
func NewSubLogger(name string) *SubLogger {
	return &SubLogger{name: strings.ToUpper(name)}
}

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "02/01/2006 15:04:05",
	}
}

// Setup replaces the process logger according to cfg. It is safe to call
// more than once; a previously opened log file is closed.
func Setup(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := logrus.New()
	lvl := cfg.Level
	if lvl == "" {
		lvl = "warn"
	}
	level, err := logrus.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(textFormatter())
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("%w: %q", errUnhandledFormat, cfg.Format)
	}

	writers := []io.Writer{cfg.output()}
	var fileCloser io.Closer
	if cfg.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		fw := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		writers = append(writers, fw)
		fileCloser = fw
	}
	l.SetOutput(io.MultiWriter(writers...))

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger, closer = l, fileCloser
	return nil
}

// CloseLogger flushes and closes any file output opened by Setup.
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func entry(sl *SubLogger) *logrus.Entry {
	mu.RLock()
	l := logger
	mu.RUnlock()
	name := sl.Name()
	if name == "" {
		name = Global.name
	}
	return l.WithField("subsystem", name)
}

// Enabled reports whether entries at lvl would be emitted.
func Enabled(lvl logrus.Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return logger.IsLevelEnabled(lvl)
}
