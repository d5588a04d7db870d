// Package progress provides real-time progress reporting for compiling a
// matcher graph and running it against a batch of events.
//
// A Progress hub fans events from one or more Collectors (package
// progress/collector) out to one or more Reporters (package
// progress/reporter: text, JSON, progress-bar, or a channel for
// programmatic consumption), and costs nothing beyond a drain goroutine per
// collector when no reporters are configured.
//
// Basic usage:
//
//	prog, _ := progress.New(progress.WithReporters(reporter.NewTextReporter(os.Stderr)))
//	defer prog.Close()
//
//	col := collector.New()
//	prog.Subscribe(col)
//	col.Report(progress.Event{Stage: progress.StageCompile, Message: "compiling matcher graph"})
//
// For programmatic consumption:
//
//	ch := reporter.NewChannelReporter(ctx)
//	prog, _ := progress.New(progress.WithReporters(ch))
//	go func() {
//	    for event := range ch.Events() {
//	        fmt.Printf("Progress: %d%%\n", int(event.Percent))
//	    }
//	}()
package progress
