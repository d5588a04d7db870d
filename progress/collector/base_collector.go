package collector

import (
	"math/rand"
	"sync/atomic"

	"github.com/konveyor-labs/tornado/progress"
)

// BaseCollector is a pass-through collector: every Report call is
// forwarded, with no throttling, so it's right for a batch replay's
// StageCompile and StageInit events where there are only a handful and
// none should be coalesced away.
type BaseCollector struct {
	id      int
	ch      chan progress.Event
	dropped atomic.Int64
}

// New creates a base collector with a 100-event buffer. A run that floods
// it faster than Progress drains it drops events rather than blocking the
// engine; call Dropped to see whether that happened.
func New() *BaseCollector {
	return &BaseCollector{
		id: rand.Int(),
		ch: make(chan progress.Event, 100),
	}
}

func (c *BaseCollector) ID() int {
	return c.id
}

func (c *BaseCollector) CollectChannel() chan progress.Event {
	return c.ch
}

// Dropped reports how many events this collector has discarded because its
// buffer was full, so a CLI run can warn the operator that --progress
// output under-represents what actually happened.
func (c *BaseCollector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *BaseCollector) Report(event progress.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}
