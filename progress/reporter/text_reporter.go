package reporter

import (
	"fmt"
	"io"
	"sync"

	"github.com/konveyor-labs/tornado/progress"
)

// TextReporter writes progress events as human-readable text with timestamps.
//
// TextReporter formats events into timestamped text lines suitable for terminal
// output or log files. Each stage has its own formatting style to provide
// clear, readable progress information.
//
// The reporter is thread-safe and uses a mutex to ensure proper output ordering
// when multiple goroutines report progress concurrently (though Progress
// serializes each collector's events through that collector's pump goroutine).
//
// Example output:
//
//	[17:06:14] Compiling: loaded ruleset.yaml
//	[17:06:22] Processing events: 1/2000 (0.1%)
//	[17:06:22] Event: order.created
//	[17:06:26] Run complete!
//
// Usage:
//
//	reporter := reporter.NewTextReporter(os.Stderr)
//	prog, _ := progress.New(
//	    progress.WithReporters(reporter),
//	)
type TextReporter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewTextReporter creates a new text progress reporter that writes to w.
//
// The writer is typically os.Stderr for terminal output, but can be any io.Writer
// including files, buffers, or custom writers.
//
// Example:
//
//	// Terminal output
//	reporter := reporter.NewTextReporter(os.Stderr)
//
//	// File output
//	f, _ := os.Create("progress.log")
//	defer f.Close()
//	reporter := reporter.NewTextReporter(f)
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{
		writer: w,
	}
}

// Report writes a progress event as human-readable text.
//
// The output format varies by stage:
//   - StageInit: "[HH:MM:SS] Initializing..."
//   - StageCompile: "[HH:MM:SS] Compiling: <message>"
//   - StageEventProcessing: "[HH:MM:SS] Processing events: X/Y (Z%)" and/or "[HH:MM:SS] Event: <message>"
//   - StageComplete: "[HH:MM:SS] Run complete!"
//
// If the event's Timestamp is zero, it will be set to the current time.
// This method is safe for concurrent use.
func (t *TextReporter) Report(event progress.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Normalize event (set timestamp, calculate percent)
	normalize(&event)

	var output string

	switch event.Stage {
	case progress.StageInit:
		output = fmt.Sprintf("[%s] Initializing...\n", event.Timestamp.Format("15:04:05"))
	case progress.StageCompile:
		if event.Message != "" {
			output = fmt.Sprintf("[%s] Compiling: %s\n", event.Timestamp.Format("15:04:05"), event.Message)
		}
	case progress.StageEventProcessing:
		if event.Total > 0 {
			output += fmt.Sprintf("[%s] Processing events: %d/%d (%.1f%%)\n",
				event.Timestamp.Format("15:04:05"),
				event.Current,
				event.Total,
				event.Percent)
		}
		if event.Message != "" {
			output += fmt.Sprintf("[%s] Event: %s\n", event.Timestamp.Format("15:04:05"), event.Message)
		}
	case progress.StageComplete:
		output = fmt.Sprintf("[%s] Run complete!\n", event.Timestamp.Format("15:04:05"))
	default:
		if event.Message != "" {
			output = fmt.Sprintf("[%s] %s\n", event.Timestamp.Format("15:04:05"), event.Message)
		}
	}

	if output != "" {
		t.writer.Write([]byte(output))
	}
}
