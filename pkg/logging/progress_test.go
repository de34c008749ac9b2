package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProgressTracker_BasicOperations(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	pt := NewProgressTracker("test_phase", 10, log)
	pt.SetLogEvery(0)

	pt.RecordProcessed()
	pt.RecordProcessed()
	pt.RecordSkip()

	processed, skipped, total := pt.Progress()
	if processed != 2 {
		t.Errorf("expected processed=2, got %d", processed)
	}
	if skipped != 1 {
		t.Errorf("expected skipped=1, got %d", skipped)
	}
	if total != 10 {
		t.Errorf("expected total=10, got %d", total)
	}

	pct := pt.ProgressPct()
	if pct != 30.0 { // (2+1)/10 * 100
		t.Errorf("expected progress 30%%, got %.1f%%", pct)
	}

	if remaining := pt.Remaining(); remaining != 7 {
		t.Errorf("expected remaining=7, got %d", remaining)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no progress output with logging disabled, got: %s", buf.String())
	}
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	pt := NewProgressTracker("test_phase", 0, zerolog.New(&buf))

	if pct := pt.ProgressPct(); pct != 100.0 {
		t.Errorf("expected 100%% for zero total, got %.1f%%", pct)
	}
	if eta := pt.ETA(); eta != 0 {
		t.Errorf("expected 0 ETA for zero total, got %v", eta)
	}
}

func TestProgressTracker_LogsEveryN(t *testing.T) {
	var buf bytes.Buffer
	pt := NewProgressTracker("ingest", 10, zerolog.New(&buf))
	pt.SetLogEvery(5)

	for i := 0; i < 10; i++ {
		pt.RecordProcessed()
	}

	lines := strings.Count(buf.String(), `"event":"progress"`)
	if lines != 2 {
		t.Errorf("expected 2 progress lines, got %d: %s", lines, buf.String())
	}
	if !strings.Contains(buf.String(), `"done":10`) {
		t.Errorf("expected done=10 in output, got: %s", buf.String())
	}
}

func TestCompletionEvent_BasicFields(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	SetPrettyMode(false)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 500*time.Millisecond)
	ce.Str("key", "value").
		Int("count", 42).
		Log("test message")

	output := buf.String()

	for _, want := range []string{
		`"event":"test_event"`,
		`"phase":"test_phase"`,
		`"duration_ms":500`,
		`"key":"value"`,
		`"count":42`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s, got: %s", want, output)
		}
	}
}

func TestCompletionEvent_CountsPretty(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	SetPrettyMode(true)
	defer SetPrettyMode(false)

	NewCompletionEvent(log, "test_event", "test_phase", time.Second).
		Count("views", 1500000).
		Rate(1000).
		Log("test message")

	output := buf.String()
	if !strings.Contains(output, `"views":1500000`) {
		t.Errorf("expected raw views field, got: %s", output)
	}
	if !strings.Contains(output, `"views_h":"1.50M"`) {
		t.Errorf("expected human views field, got: %s", output)
	}
	if !strings.Contains(output, `"records_per_sec":1000`) {
		t.Errorf("expected rate field, got: %s", output)
	}
}

func TestHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	SetPrettyMode(false)

	PhaseComplete(log, "test_phase", time.Second).Log("phase done")
	if !strings.Contains(buf.String(), `"event":"phase_completed"`) {
		t.Errorf("expected phase_completed event, got: %s", buf.String())
	}

	buf.Reset()
	BatchComplete(log, "test_phase", 200*time.Millisecond).Int("batch_size", 1000).Log("batch done")
	if !strings.Contains(buf.String(), `"event":"batch_completed"`) {
		t.Errorf("expected batch_completed event, got: %s", buf.String())
	}

	buf.Reset()
	FileCreated(log, "test_phase", 100*time.Millisecond).Str("file", "views.parquet").Log("file done")
	if !strings.Contains(buf.String(), `"event":"file_created"`) {
		t.Errorf("expected file_created event, got: %s", buf.String())
	}
}

func TestCompletionEvent_LogDebug(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	SetPrettyMode(false)

	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(oldLevel)

	NewCompletionEvent(log, "test_event", "test_phase", time.Second).LogDebug("debug message")

	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Errorf("expected debug level, got: %s", buf.String())
	}
}

func TestProgressTracker_PrettyPercent(t *testing.T) {
	var buf bytes.Buffer
	SetPrettyMode(true)
	defer SetPrettyMode(false)

	pt := NewProgressTracker("ingest", 8, zerolog.New(&buf))
	pt.SetLogEvery(2)
	pt.RecordProcessed()
	pt.RecordSkip()

	if !strings.Contains(buf.String(), `"progress_h":"25.0%"`) {
		t.Errorf("expected human progress field, got: %s", buf.String())
	}
}
