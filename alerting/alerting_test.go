package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Notify_SendsExpectedPayload(t *testing.T) {
	var received payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New("test-integration-key")
	c.endpoint = srv.URL

	err := c.Notify(context.Background(), Event{
		Summary:  "block 19000000 failed: state root mismatch",
		Severity: SeverityError,
		Source:   "reth-processor-dispatcher",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received.RoutingKey != "test-integration-key" {
		t.Errorf("routing key = %q, want test-integration-key", received.RoutingKey)
	}
	if received.EventAction != "trigger" {
		t.Errorf("event action = %q, want trigger", received.EventAction)
	}
	if received.Payload.Severity != "error" {
		t.Errorf("severity = %q, want error", received.Payload.Severity)
	}
}

func TestClient_Notify_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c := New("bad-key")
	c.endpoint = srv.URL

	err := c.Notify(context.Background(), Event{Summary: "x", Severity: SeverityWarning, Source: "y"})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}
