package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.TicketCreated()
	m.TicketCreated()
	m.ApprovalResolved("approved")
	m.InvalidToken()
	m.RecordRequest("/requests", "POST", 201, 15*time.Millisecond)

	if got := testutil.ToFloat64(m.ticketsCreated); got != 2 {
		t.Fatalf("tickets created = %v", got)
	}
	if got := testutil.ToFloat64(m.approvalsResolved.WithLabelValues("approved")); got != 1 {
		t.Fatalf("approvals resolved = %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/requests", "201")); got != 1 {
		t.Fatalf("http requests = %v", got)
	}

	expected := `
# HELP provisioning_invalid_tokens_total Approval callbacks with unknown or already resolved tokens.
# TYPE provisioning_invalid_tokens_total counter
provisioning_invalid_tokens_total 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "provisioning_invalid_tokens_total"); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.TicketCreated()
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "NOT_FOUND")
}
