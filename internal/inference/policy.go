package inference

import (
	"context"
	"time"
)

// Sleeper abstracts the inter-batch pause so tests can inject a zero-delay
// implementation.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// BatchPolicy is the scheduler policy shared by the extraction and
// categorization engines: chunk/batch size and the mandatory delay between
// consecutive inference calls. The delay is a deliberate self-imposed rate
// limiter against the inference service, not a performance knob; it must
// elapse after failed batches too.
type BatchPolicy struct {
	Size    int
	Delay   time.Duration
	sleeper Sleeper
}

// NewBatchPolicy creates a policy with the production sleeper.
func NewBatchPolicy(size int, delay time.Duration) BatchPolicy {
	return BatchPolicy{Size: size, Delay: delay, sleeper: realSleeper{}}
}

// NewTestBatchPolicy creates a policy whose pauses route through the given
// sleeper; tests pass a no-op.
func NewTestBatchPolicy(size int, delay time.Duration, sleeper Sleeper) BatchPolicy {
	return BatchPolicy{Size: size, Delay: delay, sleeper: sleeper}
}

// Pause blocks for the configured inter-batch delay, returning early only if
// the context is cancelled.
func (p BatchPolicy) Pause(ctx context.Context) {
	if p.Delay <= 0 {
		return
	}
	sleeper := p.sleeper
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	done := make(chan struct{})
	go func() {
		sleeper.Sleep(p.Delay)
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}

// Chunks splits n items into index ranges of at most Size.
func (p BatchPolicy) Chunks(n int) [][2]int {
	size := p.Size
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
