package metrics

import "testing"

func TestGetReturnsSameRegistry(t *testing.T) {
	a := Get()
	b := Get()
	if a != b {
		t.Fatal("expected a single shared registry")
	}
	if a.Operations == nil || a.Reloads == nil || a.LockWait == nil {
		t.Fatal("registry not fully initialized")
	}
}

func TestCountersAreUsable(t *testing.T) {
	r := Get()
	r.Operations.WithLabelValues("create", "ok").Inc()
	r.Reloads.WithLabelValues("failure").Inc()
	r.APIRequests.WithLabelValues("GET", "/api/endpoints", "200").Inc()
	r.LockWait.Observe(0.002)
}
