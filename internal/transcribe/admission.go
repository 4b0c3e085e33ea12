package transcribe

import (
	"context"
	"sync/atomic"
	"time"
)

const defaultMaxWait = 30 * time.Second

// limiter bounds waiting and running transcriptions. A caller first takes a
// queue slot, then a run slot; both waits are capped by maxWait.
type limiter struct {
	queueCh  chan struct{}
	runCh    chan struct{}
	maxWait  time.Duration
	inflight atomic.Int64
}

func newLimiter(maxConcurrent, maxQueue int, maxWait time.Duration) *limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	if maxQueue < maxConcurrent {
		maxQueue = maxConcurrent
	}
	return &limiter{
		queueCh: make(chan struct{}, maxQueue),
		runCh:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// begin reserves a run slot. The returned release must be called once.
func (l *limiter) begin(ctx context.Context) (func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return noop, err
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()
	select {
	case l.queueCh <- struct{}{}:
	case <-ctx.Done():
		return noop, ctx.Err()
	case <-timer.C:
		return noop, ErrTooBusy
	}

	acquired := false
	defer func() {
		if !acquired {
			<-l.queueCh
		}
	}()
	timer2 := time.NewTimer(l.maxWait)
	defer timer2.Stop()
	select {
	case l.runCh <- struct{}{}:
		acquired = true
		l.inflight.Add(1)
		return func() {
			l.inflight.Add(-1)
			<-l.runCh
			<-l.queueCh
		}, nil
	case <-ctx.Done():
		return noop, ctx.Err()
	case <-timer2.C:
		return noop, ErrTooBusy
	}
}

func (l *limiter) running() int { return int(l.inflight.Load()) }
