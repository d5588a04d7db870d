package progress

// NoopReporter discards every event. It's what New returns when called
// with no WithReporters option, so a Tornado run with --progress none never
// pays for formatting a bar/JSON/text line it won't print.
type NoopReporter struct{}

func NewNoopReporter() *NoopReporter {
	return &NoopReporter{}
}

func (n *NoopReporter) Report(event Event) {}
