// Package webhooks notifies HTTP endpoints after a board change is confirmed.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout     = 500 * time.Millisecond
	defaultConcurrency = 4
)

// Payload is the body POSTed to every target.
type Payload struct {
	BoardID string    `json:"board_id"`
	ETag    int64     `json:"etag"`
	Op      string    `json:"op"`
	At      time.Time `json:"at"`
}

// Notifier fans a payload out to the configured URLs. A nil Notifier, or
// one without URLs, does nothing.
type Notifier struct {
	urls   []string
	client *http.Client
	log    *log.Logger
}

// New returns a Notifier for urls. URLs may contain {board_id}, which is
// replaced per payload.
func New(urls []string, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Notifier{
		urls:   urls,
		client: &http.Client{Timeout: defaultTimeout},
		log:    logger,
	}
}

// Targets templates, normalizes and de-dupes the URLs for p.
func (n *Notifier) Targets(p Payload) []string {
	if n == nil || len(n.urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(n.urls))
	var normalized []string
	for _, raw := range n.urls {
		templated := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(raw), "{board_id}", p.BoardID))
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidWebhookURL(templated) {
			n.log.WithField("url", templated).Warn("webhooks: skipping invalid url")
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		normalized = append(normalized, templated)
	}
	return normalized
}

// Dispatch POSTs p to every target and waits for the requests to finish.
// Failures are logged, never returned.
func (n *Notifier) Dispatch(ctx context.Context, p Payload) {
	urls := n.Targets(p)
	if len(urls) == 0 {
		return
	}
	if p.At.IsZero() {
		p.At = time.Now().UTC()
	}

	body, err := json.Marshal(p)
	if err != nil {
		n.log.WithError(err).Error("webhooks: failed to encode payload")
		return
	}

	workers := defaultConcurrency
	if len(urls) < workers {
		workers = len(urls)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				n.send(ctx, endpoint, body)
			}
		}()
	}
	for _, endpoint := range urls {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()
}

func (n *Notifier) send(ctx context.Context, endpoint string, body []byte) {
	logger := n.log.WithField("url", endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Warn("webhooks: build request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logger.WithError(err).Warn("webhooks: request failed")
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.WithField("status", resp.StatusCode).Warn("webhooks: endpoint rejected notification")
	}
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
