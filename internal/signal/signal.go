// Package signal delivers the completion callback CloudFormation waits on.
// Exactly one SUCCESS or FAILED signal may reach the orchestrator per logical
// lifecycle request; an invocation that registered deferred work must not
// emit one, because a later invocation owns the signal instead.
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rererecursive/hl-component-cloudfront/internal/logging"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Target identifies the pending orchestrator request a signal answers. It is
// serializable so deferred work can carry it across invocations.
type Target struct {
	ResponseURL       string `json:"ResponseURL"`
	StackID           string `json:"StackId"`
	RequestID         string `json:"RequestId"`
	LogicalResourceID string `json:"LogicalResourceId"`
}

type response struct {
	Status             string         `json:"Status"`
	Reason             string         `json:"Reason,omitempty"`
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	StackID            string         `json:"StackId"`
	RequestID          string         `json:"RequestId"`
	LogicalResourceID  string         `json:"LogicalResourceId"`
	NoEcho             bool           `json:"NoEcho"`
	Data               map[string]any `json:"Data,omitempty"`
}

// Emitter sends completion signals.
type Emitter interface {
	Success(ctx context.Context, target Target, physicalID string, data map[string]any, noEcho bool) error
	Failure(ctx context.Context, target Target, physicalID, reason string) error
}

// HTTPEmitter delivers signals with an HTTP PUT to the request's pre-signed
// response URL.
type HTTPEmitter struct {
	client *http.Client
}

func NewHTTPEmitter() *HTTPEmitter {
	return &HTTPEmitter{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPEmitter) Success(ctx context.Context, target Target, physicalID string, data map[string]any, noEcho bool) error {
	return e.send(ctx, target, response{
		Status:             StatusSuccess,
		PhysicalResourceID: physicalID,
		NoEcho:             noEcho,
		Data:               data,
	})
}

func (e *HTTPEmitter) Failure(ctx context.Context, target Target, physicalID, reason string) error {
	return e.send(ctx, target, response{
		Status:             StatusFailed,
		Reason:             reason,
		PhysicalResourceID: physicalID,
	})
}

func (e *HTTPEmitter) send(ctx context.Context, target Target, resp response) error {
	resp.StackID = target.StackID
	resp.RequestID = target.RequestID
	resp.LogicalResourceID = target.LogicalResourceID

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.ResponseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build response request: %w", err)
	}
	// The URL is pre-signed for an empty content type; setting one breaks
	// the signature.
	req.Header.Set("Content-Type", "")
	req.ContentLength = int64(len(body))

	logging.Info("sending completion signal",
		"status", resp.Status,
		"physicalResourceId", resp.PhysicalResourceID,
		"logicalResourceId", resp.LogicalResourceID)

	httpResp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver completion signal: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		return fmt.Errorf("completion signal rejected with status %d", httpResp.StatusCode)
	}
	return nil
}
