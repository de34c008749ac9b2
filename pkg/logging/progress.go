package logging

import (
	"sync/atomic"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// DefaultLogEvery is how many records pass between progress log lines.
const DefaultLogEvery = 10000

// ProgressTracker tracks progress through a batch of records with ETA
// calculation. It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	processed atomic.Int64
	skipped   atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string
	logEvery  int64
}

// NewProgressTracker creates a new progress tracker that logs every
// DefaultLogEvery records.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
		log:       log,
		phase:     phase,
		logEvery:  DefaultLogEvery,
	}
}

// SetLogEvery changes the progress log interval. Values <= 0 disable
// periodic progress logging.
func (pt *ProgressTracker) SetLogEvery(n int64) {
	pt.logEvery = n
}

// RecordProcessed records that a record was accepted.
func (pt *ProgressTracker) RecordProcessed() {
	pt.processed.Add(1)
	pt.maybeLog()
}

// RecordSkip records that a record was skipped.
func (pt *ProgressTracker) RecordSkip() {
	pt.skipped.Add(1)
	pt.maybeLog()
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (processed, skipped, total int64) {
	return pt.processed.Load(), pt.skipped.Load(), pt.total
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	done := pt.processed.Load() + pt.skipped.Load()
	if pt.total == 0 {
		return 100.0
	}
	return float64(done) * 100.0 / float64(pt.total)
}

// Remaining returns how many records are remaining.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.processed.Load() - pt.skipped.Load()
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// ETA returns the estimated time remaining based on the average rate so far.
func (pt *ProgressTracker) ETA() time.Duration {
	done := pt.processed.Load() + pt.skipped.Load()
	if done == 0 {
		return 0
	}
	remaining := pt.total - done
	if remaining <= 0 {
		return 0
	}
	perRecord := pt.Elapsed() / time.Duration(done)
	return perRecord * time.Duration(remaining)
}

func (pt *ProgressTracker) maybeLog() {
	if pt.logEvery <= 0 {
		return
	}
	done := pt.processed.Load() + pt.skipped.Load()
	if done%pt.logEvery != 0 {
		return
	}

	e := pt.log.Info().
		Str("event", "progress").
		Str("phase", pt.phase).
		Int64("done", done).
		Int64("total", pt.total).
		Float64("progress_pct", pt.ProgressPct())
	if IsPrettyMode() {
		e = e.Str("progress_h", humanfmt.Percent(done, pt.total)).
			Str("eta_h", humanfmt.Duration(pt.ETA()))
	}
	e.Msg("progress")
}

// CompletionEvent helps build consistent completion log events.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  map[string]interface{}
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
		fields:  make(map[string]interface{}),
	}
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Count adds count with optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.fields[key] = n
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Count(n)
	}
	return ce
}

// Rate adds a records-per-second field computed from the elapsed time.
func (ce *CompletionEvent) Rate(n int64) *CompletionEvent {
	if ce.elapsed > 0 {
		ce.fields["records_per_sec"] = float64(n) / ce.elapsed.Seconds()
		if IsPrettyMode() {
			ce.fields["rate_h"] = humanfmt.Rate(n, ce.elapsed)
		}
	}
	return ce
}

// Log emits the completion event.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.
		Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}

	for k, v := range ce.fields {
		e = e.Interface(k, v)
	}

	e.Msg(msg)
}

// PhaseComplete logs a phase completion event.
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "phase_completed", phase, elapsed)
}

// BatchComplete logs a batch/transaction completion event.
func BatchComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "batch_completed", phase, elapsed)
}

// FileCreated logs a file creation completion event.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_created", phase, elapsed)
}
