package report

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
)

const maxLatencyMicros = int64(time.Hour / time.Microsecond)

// Latency summarises case durations in milliseconds. Values are recorded
// with microsecond precision up to one hour; longer durations are clamped.
func Latency(durations []time.Duration) model.LatencySummary {
	if len(durations) == 0 {
		return model.LatencySummary{}
	}

	h := hdrhistogram.New(1, maxLatencyMicros, 3)
	for _, d := range durations {
		us := d.Microseconds()
		if us < 1 {
			us = 1
		}
		if limit := h.HighestTrackableValue(); us > limit {
			us = limit
		}
		_ = h.RecordValue(us)
	}

	ms := func(us int64) float64 {
		return float64(us) / 1000
	}
	return model.LatencySummary{
		P50:  ms(h.ValueAtQuantile(50)),
		P95:  ms(h.ValueAtQuantile(95)),
		P99:  ms(h.ValueAtQuantile(99)),
		Max:  ms(h.Max()),
		Mean: h.Mean() / 1000,
	}
}
