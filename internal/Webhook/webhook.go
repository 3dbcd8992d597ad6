package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
)

// Event describes one delta worth telling an external notifier about.
type Event struct {
	Artifact  string    `json:"artifact"`
	Project   string    `json:"project"`
	DeltaPath string    `json:"delta_path"`
	NewCount  int       `json:"new_count"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts events to a webhook URL. Delivery is fire-and-forget: the
// run never waits on it and a failed post is only a debug line. A Notifier
// with an empty URL drops everything, so callers never nil-check.
type Notifier struct {
	url    string
	client *http.Client
}

func New(webhookURL string) *Notifier {
	return &Notifier{
		url:    webhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Valid reports whether s looks like a usable webhook URL.
func Valid(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Notify dispatches e in the background. Events with nothing new are
// dropped.
func (n *Notifier) Notify(e Event) {
	if n == nil || n.url == "" || e.NewCount == 0 {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	go n.post(e)
}

func (n *Notifier) post(e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		gologger.Debug().Msgf("webhook delivery failed: %s", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		gologger.Debug().Msgf("webhook delivery status %d for %s", resp.StatusCode, e.Artifact)
	}
}
