package output

import "time"

// Metrics records engine activity.
type Metrics interface {
	ObserveRefresh(result string, took time.Duration)
	TickDropped(task string)
	EligibilityQuery(result string)
	UserAction(action, result string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveRefresh(string, time.Duration) {}
func (NopMetrics) TickDropped(string)                   {}
func (NopMetrics) EligibilityQuery(string)              {}
func (NopMetrics) UserAction(string, string)            {}
