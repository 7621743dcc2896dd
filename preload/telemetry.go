package preload

import "sync"

// DefaultHistory is the number of reading samples kept by default.
const DefaultHistory = 10

// Sample is the time spent reading one page.
type Sample struct {
	Page    int
	Seconds float64
}

// Telemetry is a bounded history of reading samples. Old samples fall off
// once the history is full. It is safe for concurrent use.
type Telemetry struct {
	mu      sync.Mutex
	size    int
	samples []Sample
}

// NewTelemetry returns a telemetry history holding up to size samples.
func NewTelemetry(size int) *Telemetry {
	if size <= 0 {
		size = DefaultHistory
	}
	return &Telemetry{size: size}
}

// Record adds a sample. Negative durations are recorded as zero.
func (t *Telemetry) Record(page int, seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, Sample{Page: page, Seconds: max(0, seconds)})
	if over := len(t.samples) - t.size; over > 0 {
		t.samples = append(t.samples[:0], t.samples[over:]...)
	}
}

// Samples returns a copy of the history, oldest first.
func (t *Telemetry) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

// Len returns the number of samples held.
func (t *Telemetry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Reset drops every sample.
func (t *Telemetry) Reset() {
	t.mu.Lock()
	t.samples = nil
	t.mu.Unlock()
}

// PagesPerMinute returns the average reading speed, or 0 when nothing has
// been recorded yet.
func (t *Telemetry) PagesPerMinute() float64 {
	avg, ok := averageSeconds(t.Samples())
	if !ok || avg <= 0 {
		return 0
	}
	return 60 / avg
}

func averageSeconds(samples []Sample) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	var total float64
	for _, s := range samples {
		total += s.Seconds
	}
	return total / float64(len(samples)), true
}
