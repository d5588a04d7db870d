package progress

import (
	"sync"
	"time"
)

// Progress is the hub that ties Collectors to Reporters: it runs one pump
// goroutine per subscribed collector, which passes every event it receives
// to every configured reporter in turn. Reporters are called one after
// another on that goroutine, so a slow reporter delays the others and the
// draining of that collector's channel.
type Progress struct {
	mu         sync.Mutex
	reporters  []Reporter
	collectors map[int]chan struct{} // collector ID -> stop signal for its pump goroutine
	wg         sync.WaitGroup
}

// Option configures a Progress hub built by New.
type Option func(*Progress)

// WithReporters registers reporters that every subscribed collector's events
// are fanned out to.
func WithReporters(reporters ...Reporter) Option {
	return func(p *Progress) {
		p.reporters = append(p.reporters, reporters...)
	}
}

// WithCollectors subscribes collectors at construction time, equivalent to
// calling Subscribe for each one after New returns.
func WithCollectors(collectors ...Collector) Option {
	return func(p *Progress) {
		for _, c := range collectors {
			p.Subscribe(c)
		}
	}
}

// New builds a Progress hub. With no reporters configured, Subscribe still
// drains each collector's channel but every event is discarded, so reporting
// costs nothing beyond the drain goroutine when progress output isn't
// wanted.
func New(opts ...Option) (*Progress, error) {
	p := &Progress{collectors: make(map[int]chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.reporters) == 0 {
		p.reporters = []Reporter{NewNoopReporter()}
	}
	return p, nil
}

// Subscribe starts a pump goroutine that reads events from collector's
// channel and reports each one to every configured reporter. Subscribing the
// same collector twice is a no-op.
func (p *Progress) Subscribe(collector Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.collectors[collector.ID()]; ok {
		return
	}
	stop := make(chan struct{})
	p.collectors[collector.ID()] = stop
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ch := collector.CollectChannel()
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				normalize(&event)
				p.mu.Lock()
				reporters := p.reporters
				p.mu.Unlock()
				for _, r := range reporters {
					r.Report(event)
				}
			case <-stop:
				return
			}
		}
	}()
}

// normalize fills in Timestamp and Percent the way every reporter in this
// package otherwise has to do itself.
func normalize(e *Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Percent == 0 && e.Total > 0 {
		e.Percent = float64(e.Current) / float64(e.Total) * 100.0
	}
}

// Unsubscribe stops the pump goroutine for collector; its channel is left
// open (the collector owns its lifecycle), but no further events it produces
// reach the reporters.
func (p *Progress) Unsubscribe(collector Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stop, ok := p.collectors[collector.ID()]; ok {
		close(stop)
		delete(p.collectors, collector.ID())
	}
}

// Close stops every subscription and waits for their pump goroutines to
// exit.
func (p *Progress) Close() {
	p.mu.Lock()
	for id, stop := range p.collectors {
		close(stop)
		delete(p.collectors, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
