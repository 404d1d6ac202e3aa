package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileUsageCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileUsageCollector(fileName string) (*LogFileUsageCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = "" // to hide stacktrace info
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	logger := zap.New(core)
	return &LogFileUsageCollector{
		fileName: fileName,
		logger:   logger,
	}, nil
}

func (lc *LogFileUsageCollector) RecordModelCall(modelName string, attempts int, estimatedTokens int, cost float64, success bool) {
	lc.logger.Info("model_call",
		zap.String("model", modelName),
		zap.Int("attempts", attempts),
		zap.Int("estimatedTokens", estimatedTokens),
		zap.Float64("cost", cost),
		zap.Bool("success", success))
}

func (lc *LogFileUsageCollector) RecordFlowOutcome(applicationId string, flowName string, ok bool, reason string) {
	lc.logger.Info("flow_outcome",
		zap.String("applicationId", applicationId),
		zap.String("flow", flowName),
		zap.Bool("ok", ok),
		zap.String("reason", reason))
}
