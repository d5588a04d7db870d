// Command tornado compiles a matcher config and replays a batch of events
// through it, printing the per-event result tree and optionally dispatching
// resolved actions to a demo executor.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	logrusr "github.com/bombsimon/logrusr/v3"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/config"
	"github.com/konveyor-labs/tornado/dispatch"
	"github.com/konveyor-labs/tornado/event"
	"github.com/konveyor-labs/tornado/matcher"
	outtornado "github.com/konveyor-labs/tornado/output/v1/tornado"
	"github.com/konveyor-labs/tornado/progress"
	"github.com/konveyor-labs/tornado/progress/collector"
	"github.com/konveyor-labs/tornado/progress/reporter"
	"github.com/konveyor-labs/tornado/selector"
	"github.com/konveyor-labs/tornado/tracing"
)

const exitOnMatchCode = 3

var (
	configFile     string
	configV2       bool
	eventsFile     string
	outputFile     string
	outputFormat   string
	selectorExprs  []string
	logLevel       int
	enableJaeger   bool
	jaegerEndpoint string
	progressMode   string
	dispatchDemo   bool
	dispatchConcur int
	errorOnMatch   bool

	rootCmd = &cobra.Command{
		Use:   "tornado",
		Short: "Compile a matcher config and replay events through it",
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "config.yaml", "path to the matcher config document")
	rootCmd.Flags().BoolVar(&configV2, "config-v2", false, "decode --config as the v2 (apiVersion-marked) document instead of v1")
	rootCmd.Flags().StringVar(&eventsFile, "events", "events.ndjson", "path to a newline-delimited JSON file of events to replay")
	rootCmd.Flags().StringVar(&outputFile, "output-file", "output.yaml", "filepath to store the per-event result tree")
	rootCmd.Flags().StringVar(&outputFormat, "output-format", "yaml", "one of yaml or json")
	rootCmd.Flags().StringArrayVar(&selectorExprs, "selector", nil, "label selector expression (spec §4.8); repeatable, ANDed together")
	rootCmd.Flags().IntVar(&logLevel, "verbose", 4, "level for logging output")
	rootCmd.Flags().BoolVar(&enableJaeger, "enable-jaeger", false, "enable tracer exports to jaeger endpoint")
	rootCmd.Flags().StringVar(&jaegerEndpoint, "jaeger-endpoint", tracing.DefaultJaegerEndpoint, "jaeger collector endpoint, used when --enable-jaeger is set")
	rootCmd.Flags().StringVar(&progressMode, "progress", "none", "one of none, text, json, bar")
	rootCmd.Flags().BoolVar(&dispatchDemo, "dispatch", false, "dispatch resolved actions to a logging executor")
	rootCmd.Flags().IntVar(&dispatchConcur, "dispatch-concurrency", 4, "max concurrent dispatches when --dispatch is set")
	rootCmd.Flags().BoolVar(&errorOnMatch, "error-on-match", false, "exit with 3 if any rule matched across the replayed events")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logrusLog := logrus.New()
	logrusLog.SetOutput(os.Stderr)
	logrusLog.SetFormatter(&logrus.TextFormatter{})
	logrusLog.SetLevel(logrus.Level(logLevel))
	log := logrusr.New(logrusLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if enableJaeger {
		tp, err := tracing.InitTracerProvider(log, jaegerEndpoint)
		if err != nil {
			return fmt.Errorf("unable to initialize tracing: %w", err)
		}
		defer tracing.Shutdown(ctx, log, tp)
	}
	ctx, span := tracing.StartNewSpan(ctx, "tornado.run")
	defer span.End()

	prog, col, err := setupProgress()
	if err != nil {
		return fmt.Errorf("unable to set up progress reporting: %w", err)
	}
	defer prog.Close()

	col.Report(progress.Event{Stage: progress.StageInit, Message: "starting run"})

	cfgFile, err := os.Open(configFile)
	if err != nil {
		return fmt.Errorf("unable to open config: %w", err)
	}
	defer cfgFile.Close()

	col.Report(progress.Event{Stage: progress.StageCompile, Message: "loading " + configFile})

	var cfg *config.MatcherConfig
	if configV2 {
		cfg, err = config.LoadV2(cfgFile)
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	engine, err := matcher.Compile(cfg)
	if err != nil {
		log.Error(err, "unable to compile matcher config")
		return err
	}
	col.Report(progress.Event{Stage: progress.StageCompile, Message: "compiled " + configFile})

	var selectors []*selector.Selector
	for _, expr := range selectorExprs {
		sel, err := selector.New(expr, nil)
		if err != nil {
			return fmt.Errorf("invalid selector %q: %w", expr, err)
		}
		selectors = append(selectors, sel)
	}

	events, err := readEvents(eventsFile)
	if err != nil {
		return fmt.Errorf("unable to read events: %w", err)
	}

	var exec dispatch.Executor
	if dispatchDemo {
		exec = &loggingExecutor{log: log.WithName("dispatch")}
	}

	results := make([]matcher.ProcessedEvent, len(events))
	anyMatched := false
	for i, ev := range events {
		results[i] = engine.Process(ctx, ev, selectors...)
		if treeMatched(results[i].Root) {
			anyMatched = true
		}
		if exec != nil {
			dispatchResolved(ctx, exec, results[i].Root)
		}
		col.Report(progress.Event{
			Stage:   progress.StageEventProcessing,
			Current: i + 1,
			Total:   len(events),
			Message: ev.EventType,
		})
	}

	col.Report(progress.Event{Stage: progress.StageComplete, Message: fmt.Sprintf("processed %d events", len(events))})

	if err := writeResults(results); err != nil {
		return fmt.Errorf("unable to write results: %w", err)
	}

	if errorOnMatch && anyMatched {
		os.Exit(exitOnMatchCode)
	}
	return nil
}

// setupProgress wires a throttled collector into a Progress hub whose
// reporter is chosen by --progress (spec §9's batch-replay adaptation of
// the teacher's progress package).
func setupProgress() (*progress.Progress, progress.Collector, error) {
	var reporters []progress.Reporter
	switch progressMode {
	case "none":
		// leave reporters empty; New defaults to NewNoopReporter
	case "text":
		reporters = append(reporters, reporter.NewTextReporter(os.Stderr))
	case "json":
		reporters = append(reporters, reporter.NewJSONReporter(os.Stderr))
	case "bar":
		reporters = append(reporters, reporter.NewProgressBarReporter(os.Stderr))
	default:
		return nil, nil, fmt.Errorf("unknown --progress mode %q", progressMode)
	}

	col := collector.NewThrottledCollector(progress.StageEventProcessing)
	prog, err := progress.New(progress.WithReporters(reporters...), progress.WithCollectors(col))
	if err != nil {
		return nil, nil, err
	}
	return prog, col, nil
}

// readEvents decodes a newline-delimited JSON event log in full, since
// progress reporting needs the batch total up front (spec §9).
func readEvents(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []event.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func treeMatched(f matcher.ProcessedFilter) bool {
	if f.Status == matcher.FilterMatched {
		for _, c := range f.Children {
			switch {
			case c.Filter != nil && treeMatched(*c.Filter):
				return true
			case c.Ruleset != nil:
				for _, r := range c.Ruleset.Rules {
					if r.Status == matcher.RuleMatched || r.Status == matcher.RulePartiallyMatched {
						return true
					}
				}
			case c.Iterator != nil:
				for _, elem := range c.Iterator.Elements {
					if treeMatched(matcher.ProcessedFilter{Status: matcher.FilterMatched, Children: elem.Children}) {
						return true
					}
				}
			}
		}
	}
	return false
}

func dispatchResolved(ctx context.Context, exec dispatch.Executor, f matcher.ProcessedFilter) {
	for _, c := range f.Children {
		switch {
		case c.Filter != nil:
			dispatchResolved(ctx, exec, *c.Filter)
		case c.Ruleset != nil:
			for _, r := range c.Ruleset.Rules {
				if len(r.Actions) == 0 {
					continue
				}
				dispatch.DispatchAll(ctx, exec, r.Actions, dispatch.MaxRetries{N: 2}, dispatch.Fixed{D: 200 * time.Millisecond}, dispatchConcur)
			}
		case c.Iterator != nil:
			for _, elem := range c.Iterator.Elements {
				dispatchResolved(ctx, exec, matcher.ProcessedFilter{Children: elem.Children})
			}
		}
	}
}

func writeResults(results []matcher.ProcessedEvent) error {
	rendered := make([]outtornado.Result, len(results))
	for i, r := range results {
		rendered[i] = renderEvent(r)
	}

	var b []byte
	var err error
	switch outputFormat {
	case "yaml":
		b, err = yaml.Marshal(rendered)
	case "json":
		b, err = json.MarshalIndent(rendered, "", "  ")
	default:
		return fmt.Errorf("unknown --output-format %q", outputFormat)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, b, 0644)
}

// loggingExecutor is the CLI's built-in demo Executor: it logs every
// dispatched action instead of delivering it anywhere, so --dispatch can
// exercise the retry/backoff machinery without an external system.
type loggingExecutor struct {
	log logr.Logger
}

func (e *loggingExecutor) Execute(ctx context.Context, act *action.Resolved) error {
	e.log.Info("dispatched action", "id", act.ID)
	return nil
}
