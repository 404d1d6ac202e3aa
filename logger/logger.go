package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger = zap.Must(zap.NewProduction())

type LogConfig struct {
	Level       string
	Development bool
}

func InitLogger(conf LogConfig) error {
	level := zapcore.InfoLevel
	if len(conf.Level) > 0 {
		var err error
		level, err = zapcore.ParseLevel(conf.Level)
		if err != nil {
			return err
		}
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig := zap.NewProductionConfig()
	if conf.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.EncoderConfig = encoderConfig
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = logger
	return nil
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}
