package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPurchase(t *testing.T) {
	before := testutil.ToFloat64(purchaseOutcomes.WithLabelValues("completed"))
	RecordPurchase("completed")
	after := testutil.ToFloat64(purchaseOutcomes.WithLabelValues("completed"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestHTTPInFlight(t *testing.T) {
	done := HTTPStarted()
	if v := testutil.ToFloat64(httpInFlight); v < 1 {
		t.Fatalf("expected in-flight gauge >= 1, got %v", v)
	}
	done()
	RecordHTTP("GET", "", 200, time.Millisecond)
	if v := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "200")); v < 1 {
		t.Fatalf("expected unmatched route to be counted, got %v", v)
	}
}

func TestRecordLateSettlement(t *testing.T) {
	before := testutil.ToFloat64(lateSettlements)
	RecordLateSettlement()
	if got := testutil.ToFloat64(lateSettlements) - before; got != 1 {
		t.Fatalf("expected late settlements to grow by 1, grew by %v", got)
	}
}
