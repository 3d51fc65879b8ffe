// Package common provides logging utilities for the application
package common

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the small set of severities this codebase actually gates on.
type Level int8

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
)

// ILogger is the package-tagged, level-gated logger every subsystem uses.
type ILogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	SetLevel(level Level)
}

// --------------------------------------------------------------------------
// zap-backed logger
// --------------------------------------------------------------------------

// vaultLogger implements ILogger on top of a named zap.SugaredLogger.
type vaultLogger struct {
	name  string
	level Level
	sugar *zap.SugaredLogger
}

func (l *vaultLogger) SetLevel(level Level) {
	l.level = level
}

func (l *vaultLogger) Debugf(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.sugar.Debugf(format, args...)
	}
}

func (l *vaultLogger) Infof(format string, args ...interface{}) {
	if l.level <= INFO {
		l.sugar.Infof(format, args...)
	}
}

func (l *vaultLogger) Warningf(format string, args ...interface{}) {
	if l.level <= WARNING {
		l.sugar.Warnf(format, args...)
	}
}

func (l *vaultLogger) Errorf(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.sugar.Errorf(format, args...)
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	baseLogger *zap.Logger

	registryMu sync.Mutex
	registry   = map[string]*vaultLogger{}
)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		// Logging setup failing is a setup error; there's nothing to log it to.
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	baseLogger = l
}

// GetLogger returns the named logger, creating it (at INFO level) on first use.
func GetLogger(pkgName string) ILogger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[pkgName]; ok {
		return l
	}

	l := &vaultLogger{
		name:  pkgName,
		level: INFO,
		sugar: baseLogger.Sugar().Named(pkgName),
	}
	registry[pkgName] = l
	return l
}

// CreateLogger is an alias of GetLogger kept for call sites that construct a
// logger once at package init rather than looking it up by name repeatedly.
func CreateLogger(pkgName string) ILogger {
	return GetLogger(pkgName)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to Level
func parseLogLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers sets the configured level on every named logger this codebase uses.
func InitLoggers(config ServerConfig) {
	lvl := parseLogLevel(config.LogLevel)

	GetLogger("vault").SetLevel(lvl)
	GetLogger("store").SetLevel(lvl)
	GetLogger("rpc").SetLevel(lvl)
	GetLogger("transport/rpc").SetLevel(lvl)
}
