package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngestCommitted(t *testing.T) {
	before := testutil.ToFloat64(IngestInserts.WithLabelValues("view"))
	beforeBatches := testutil.ToFloat64(IngestBatches.WithLabelValues("committed"))

	RecordIngestCommitted(BatchCounts{
		Processed:        3,
		Skipped:          1,
		ChannelsInserted: 1,
		VideosInserted:   2,
		ViewsInserted:    3,
	}, 10*time.Millisecond)

	if got := testutil.ToFloat64(IngestInserts.WithLabelValues("view")) - before; got != 3 {
		t.Errorf("view inserts delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(IngestBatches.WithLabelValues("committed")) - beforeBatches; got != 1 {
		t.Errorf("committed batches delta = %v, want 1", got)
	}
}

func TestRecordIngestRolledBack(t *testing.T) {
	before := testutil.ToFloat64(IngestBatches.WithLabelValues("rolled_back"))
	RecordIngestRolledBack(time.Millisecond)
	if got := testutil.ToFloat64(IngestBatches.WithLabelValues("rolled_back")) - before; got != 1 {
		t.Errorf("rolled back batches delta = %v, want 1", got)
	}
}

func TestObserveQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(QueryErrors.WithLabelValues("test_query"))

	ObserveQuery("test_query", time.Now(), nil)
	ObserveQuery("test_query", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(QueryErrors.WithLabelValues("test_query")) - before; got != 1 {
		t.Errorf("query errors delta = %v, want 1", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/overview", "200"))
	RecordHTTPRequest("GET", "/api/v1/overview", 200, time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/overview", "200")) - before; got != 1 {
		t.Errorf("http requests delta = %v, want 1", got)
	}
}
