// Package alerting implements the PagerDuty Events v2 client used when a
// block fails ([SPEC 6.3]). No PagerDuty SDK appears anywhere in the
// example corpus; the client is a thin stdlib net/http wrapper, grounded
// on the same http.Post/bytes.Buffer request-building style the teacher
// uses throughout its own HTTP call sites (see DESIGN.md).
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ProjectZKM/reth-processor/log"
)

const eventsEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Severity mirrors the PagerDuty Events v2 "severity" field.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event is one alert: severity, summary, and source, per block failure
// ([SPEC 6.3]).
type Event struct {
	Summary  string
	Severity Severity
	Source   string
}

// Client posts Events to PagerDuty's Events v2 API.
type Client struct {
	integrationKey string
	endpoint       string
	http           *http.Client
	log            *log.Logger
}

// New builds a Client. integrationKey is the PagerDuty routing/integration
// key configured for the eth-proofs daemon ([SPEC 6.4] --pager-duty-integration-key).
func New(integrationKey string) *Client {
	return &Client{
		integrationKey: integrationKey,
		endpoint:       eventsEndpoint,
		http:           &http.Client{Timeout: 10 * time.Second},
		log:            log.Default().Module("alerting"),
	}
}

type payload struct {
	RoutingKey  string      `json:"routing_key"`
	EventAction string      `json:"event_action"`
	Payload     eventDetail `json:"payload"`
}

type eventDetail struct {
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
}

// Notify sends one trigger event. A non-2xx response or transport error is
// returned to the caller, which only logs it: alerting failures never
// abort the Dispatcher loop ([SPEC 7] propagation policy).
func (c *Client) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(payload{
		RoutingKey:  c.integrationKey,
		EventAction: "trigger",
		Payload: eventDetail{
			Summary:  ev.Summary,
			Source:   ev.Source,
			Severity: string(ev.Severity),
		},
	})
	if err != nil {
		return errors.Wrap(err, "marshal pagerduty event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build pagerduty request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send pagerduty event")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Newf("pagerduty returned %d: %s", resp.StatusCode, string(respBody))
	}
	c.log.Debug("alert sent", "summary", ev.Summary, "severity", ev.Severity)
	return nil
}
