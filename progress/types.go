package progress

import (
	"time"
)

// ProgressInterface defines the contract for managing collector subscriptions.
//
// This interface is implemented by the Progress struct and allows for
// dynamic subscription management - collectors can be added or removed
// at runtime.
type ProgressInterface interface {
	// Subscribe starts receiving events from a collector.
	Subscribe(collector Collector)

	// Unsubscribe stops receiving events from a collector.
	Unsubscribe(collector Collector)
}

// Reporter is the interface for outputting progress events.
//
// Reporters receive events from Progress and format/output them in various ways:
//   - TextReporter: Human-readable text output with timestamps
//   - JSONReporter: Structured JSON for logging or external consumers
//   - ProgressBarReporter: Interactive terminal progress bars
//   - ChannelReporter: Exposes events via a Go channel for programmatic use
//   - NoopReporter: Discards events (used as default when no reporter configured)
//
// Implementations must be safe for concurrent use. The Report method should
// not block to avoid impacting analysis performance, as it's called from
// Progress's per-collector pump goroutines.
//
// Reporters have no goroutine or buffer of their own: a pump goroutine calls
// every reporter in turn, so a slow reporter delays the others.
type Reporter interface {
	// Report outputs a progress event.
	//
	// This method is called by Progress's pump goroutines and should not block.
	// Events arrive pre-normalized with timestamps and calculated percentages.
	Report(event Event)
}

// Collector is the interface for gathering progress events from various sources.
//
// Collectors receive progress events (typically via a Collect or Report method on
// their concrete implementation) and make them available through a channel that
// Progress can subscribe to. Collectors enable decoupling of event generation
// from event reporting.
//
// Implementations must be safe for concurrent use and typically include:
//   - An event channel that Progress reads from via CollectChannel()
//   - A unique ID for subscription management via ID()
//   - Buffering and/or throttling to prevent overwhelming the system
//
// Common collector types include:
//   - ThrottledCollector: Throttles high-frequency events to a reasonable rate
//   - BaseCollector: Simple pass-through collector without throttling
//
// Collectors embed the Reporter interface, meaning they accept events via Report()
// and forward them through their collection channel.
type Collector interface {
	// Reporter embeds the ability to receive events.
	// Concrete collectors implement Report() to accept events and forward
	// them to their internal channel.
	Reporter

	// ID returns a unique identifier for this collector.
	// Used by Progress to manage subscriptions and unsubscriptions.
	// This should be auto-generated when creating a collector.
	ID() int

	// CollectChannel returns the channel from which Progress reads events.
	// Progress subscribes to this channel to receive events from the collector.
	CollectChannel() chan Event
}

// Event represents a progress update at a specific point in time.
//
// Events are emitted at key points during a run:
//   - Compile start/completion (ruleset count discovered)
//   - Event processing (per-event completion with percentage)
//   - Run completion
//
// Not all fields are populated for all events. For example, init events
// may only have Stage and Message, while event-processing events include
// Current, Total, and Percent.
type Event struct {
	// Timestamp is when the event occurred. If not set by the caller,
	// reporters will populate it automatically.
	Timestamp time.Time `json:"timestamp"`

	// Stage indicates which phase of the run this event relates to.
	Stage Stage `json:"stage"`

	// Message provides human-readable context (e.g., event type, config path).
	Message string `json:"message,omitempty"`

	// Current is the number of items completed so far (e.g., events processed).
	Current int `json:"current,omitempty"`

	// Total is the total number of items to process.
	Total int `json:"total,omitempty"`

	// Percent is the completion percentage (0-100).
	// This field is automatically calculated from Current and Total if not set.
	Percent float64 `json:"percent,omitempty"`

	// Metadata contains additional stage-specific information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Stage represents a phase of a compile-then-process run.
//
// Stages occur in sequence:
//  1. StageInit - run starting
//  2. StageCompile - turning a MatcherConfig into an executable graph
//  3. StageEventProcessing - running the compiled graph over a batch of events
//  4. StageComplete - run finished
type Stage string

const (
	// StageInit indicates the run is starting.
	StageInit Stage = "init"

	// StageCompile indicates the matcher graph is being compiled. Events
	// include the config path or ruleset count via Message/Total.
	StageCompile Stage = "compile"

	// StageEventProcessing indicates events are being run through the
	// compiled graph. Events include current/total counts and percentage
	// completion.
	StageEventProcessing Stage = "event_processing"

	// StageComplete indicates the run has finished.
	StageComplete Stage = "complete"
)
