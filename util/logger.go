package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It discards everything until InitLogger is called.
var Logger = zap.NewNop()

// LogFile describes an optional rotating log file.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// InitLogger builds the logger for the given server mode ("release" selects the production encoder).
func InitLogger(mode string, file *LogFile) error {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	if file != nil && file.Path != "" {
		rotate := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxAge:     file.MaxAgeDays,
			MaxBackups: file.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		})
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, zapcore.NewCore(fileEncoder, rotate, config.Level))
		}))
	}

	Logger = logger
	return nil
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Fatal logs at error level, flushes and exits with status 1. It works
// before InitLogger too, in which case only the exit happens.
func Fatal(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
	Sync()
	os.Exit(1)
}
