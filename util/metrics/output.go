package metrics

import (
	"time"

	"github.com/mistermingming/ProcurementManagement/util/log"
)

type Output interface {
	ReportInterval() time.Duration
	Report(data []byte) error
}

// LogOutput writes metric reports to the module log.
type LogOutput struct {
	interval time.Duration
}

func NewLogOutput(interval time.Duration) *LogOutput {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LogOutput{interval: interval}
}

func (o *LogOutput) ReportInterval() time.Duration {
	return o.interval
}

func (o *LogOutput) Report(data []byte) error {
	log.Info("metrics: %s", string(data))
	return nil
}
