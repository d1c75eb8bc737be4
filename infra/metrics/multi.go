package metrics

import coremetrics "github.com/villaops/dispatchd/core/metrics"

// MultiSink fans offer cycle records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOfferCycle forwards the records to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordOfferCycle(recs []coremetrics.OfferCycleRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordOfferCycle(recs); err != nil {
			return err
		}
	}
	return nil
}
