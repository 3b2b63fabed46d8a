package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm/logger"
)

// LogWriter is the writer used for application, access and database logs.
var LogWriter io.Writer = os.Stdout

// InitLogging configures the standard logger output according to cfg. The returned
// closer releases the rotated log file; it is a no-op for stdout-only logging.
func InitLogging(cfg LoggingConfig) (io.Writer, func() error) {
	noop := func() error { return nil }

	if cfg.Output == "stdout" || cfg.FilePath == "" {
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return LogWriter, noop
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return LogWriter, noop
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		LogWriter = io.MultiWriter(os.Stdout, rotator)
	} else {
		LogWriter = rotator
	}
	log.SetOutput(LogWriter)

	return LogWriter, rotator.Close
}

// GormLogger builds the database logger writing through LogWriter
func GormLogger(cfg LoggingConfig, slowQuery time.Duration) logger.Interface {
	level := logger.Warn
	switch cfg.Level {
	case "debug":
		level = logger.Info
	case "error":
		level = logger.Error
	}

	return logger.New(
		log.New(LogWriter, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
