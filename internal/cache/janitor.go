package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Janitor struct {
	cache    *TransactionCache
	interval time.Duration
	report   func(entries int)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewJanitor(c *TransactionCache, interval time.Duration, report func(entries int)) *Janitor {
	return &Janitor{
		cache:    c,
		interval: interval,
		report:   report,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	if j == nil {
		return
	}
	if j.cache == nil || j.interval <= 0 {
		close(j.done)
		return
	}
	go j.loop()
}

func (j *Janitor) loop() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			removed := j.cache.Sweep()
			entries := j.cache.Len()
			if removed > 0 {
				zap.L().Debug("cache swept", zap.Int("removed", removed), zap.Int("entries", entries))
			}
			if j.report != nil {
				j.report(entries)
			}
		}
	}
}

func (j *Janitor) Stop(ctx context.Context) error {
	if j == nil {
		return nil
	}
	j.stopOnce.Do(func() { close(j.stop) })
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
