package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// UsageCollector receives one record per model invocation and per flow
// execution. Collection must never fail a request.
type UsageCollector interface {
	RecordModelCall(modelName string, attempts int, estimatedTokens int, cost float64, success bool)
	RecordFlowOutcome(applicationId string, flowName string, ok bool, reason string)
}

var usageCollector UsageCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileUsageCollector(config.FileName)
		if err != nil {
			return err
		}
		usageCollector = c
	default:
		usageCollector = noopCollector{}
	}
	return nil
}

func RecordModelCall(modelName string, attempts int, estimatedTokens int, cost float64, success bool) {
	usageCollector.RecordModelCall(modelName, attempts, estimatedTokens, cost, success)
}

func RecordFlowOutcome(applicationId string, flowName string, ok bool, reason string) {
	usageCollector.RecordFlowOutcome(applicationId, flowName, ok, reason)
}

type noopCollector struct{}

func (noopCollector) RecordModelCall(string, int, int, float64, bool) {}

func (noopCollector) RecordFlowOutcome(string, string, bool, string) {}
