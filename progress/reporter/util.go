package reporter

import (
	"time"

	"github.com/konveyor-labs/tornado/progress"
)

// normalize fills in fields a caller of col.Report typically leaves zero:
// Timestamp, Percent computed from Current/Total, and Percent pinned to
// 100 on StageComplete even when the run's event count was never tracked
// (e.g. a config that failed to compile before any event was processed).
func normalize(e *progress.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	switch {
	case e.Stage == progress.StageComplete:
		e.Percent = 100.0
	case e.Percent == 0.0 && e.Total > 0:
		e.Percent = float64(e.Current) / float64(e.Total) * 100.0
	}
}
