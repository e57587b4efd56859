package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civicdesk/grievance/internal/complaint"
)

var (
	// ErrUnavailable wraps every failure to obtain a usable classification.
	ErrUnavailable = errors.New("classification unavailable")
	// ErrInvalidInput is returned before any request is sent.
	ErrInvalidInput = errors.New("classification input invalid")
)

// maxResponseBytes caps how much of the classifier body is read.
const maxResponseBytes = 64 << 10

// Result is the routing decision returned by the classifier.
type Result struct {
	Department string
	Severity   complaint.Severity
}

// Classifier assigns a department and severity to complaint text.
type Classifier interface {
	Classify(ctx context.Context, text string, location complaint.Location) (Result, error)
}

type request struct {
	Text     string             `json:"text"`
	Location complaint.Location `json:"location"`
}

type response struct {
	Department string `json:"department"`
	Severity   string `json:"severity"`
}

// Client calls the external classification service over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds a client for baseURL with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/classify",
		client:   &http.Client{Timeout: timeout},
	}
}

// Classify makes a single attempt; there is no retry.
func (c *Client) Classify(ctx context.Context, text string, location complaint.Location) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("%w: text required", ErrInvalidInput)
	}
	if !location.Resolvable() {
		return Result{}, fmt.Errorf("%w: location must name state and district", ErrInvalidInput)
	}

	body, err := json.Marshal(request{Text: text, Location: location.Normalize()})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	department := strings.TrimSpace(out.Department)
	if department == "" {
		return Result{}, fmt.Errorf("%w: empty department", ErrUnavailable)
	}
	severity, err := complaint.ParseSeverity(out.Severity)
	if err != nil {
		return Result{}, fmt.Errorf("%w: severity %q", ErrUnavailable, out.Severity)
	}

	return Result{Department: department, Severity: severity}, nil
}
