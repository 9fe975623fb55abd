// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Options controls where diagnostic logging goes. The operator console is a
// separate stream and never receives these entries.
type Options struct {
	Debug bool
	// File, when set, sends log entries to a rotated file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the package-level logger
func Init(opts Options) error {
	var zapLogger *zap.Logger
	var err error

	switch {
	case opts.File != "":
		zapLogger, err = newFileLogger(opts)
	case opts.Debug:
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	default:
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

func newFileLogger(opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// GetZapLogger returns the base zap logger for cases where it's needed (like GORM)
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		// Fallback logger if not initialized
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return baseLogger
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		GetZapLogger()
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		log.Sync()
	}
}

// Package-level convenience functions
func Debug(args ...interface{}) {
	GetSugaredLogger().Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	GetSugaredLogger().Debugf(template, args...)
}

func Info(args ...interface{}) {
	GetSugaredLogger().Info(args...)
}

func Infof(template string, args ...interface{}) {
	GetSugaredLogger().Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Infow(msg, keysAndValues...)
}

func Warn(args ...interface{}) {
	GetSugaredLogger().Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	GetSugaredLogger().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Warnw(msg, keysAndValues...)
}

func Error(args ...interface{}) {
	GetSugaredLogger().Error(args...)
}

func Errorf(template string, args ...interface{}) {
	GetSugaredLogger().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	GetSugaredLogger().Errorw(msg, keysAndValues...)
}
