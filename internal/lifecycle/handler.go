package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rererecursive/hl-component-cloudfront/internal/event"
	"github.com/rererecursive/hl-component-cloudfront/internal/logging"
	"github.com/rererecursive/hl-component-cloudfront/internal/normalize"
	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
	"github.com/rererecursive/hl-component-cloudfront/internal/signal"
)

// resultOK is the sentinel every invocation returns. Failures are reported
// to the orchestrator through the completion signal, never as a Lambda
// fault, because a fault would leave the stack hanging until its timeout.
const resultOK = "OK"

// Handle is the Lambda entrypoint. It normalizes the payload, decides which
// of the three invocation shapes arrived, and dispatches.
func (c *Controller) Handle(ctx context.Context, raw json.RawMessage) (string, error) {
	normalized, err := normalizePayload(raw)
	if err != nil {
		logging.Error("failed to parse invocation payload", "error", err.Error())
		return resultOK, nil
	}

	parsed, err := event.Parse(normalized)
	if err != nil {
		logging.Error("unrecognized invocation", "error", err.Error())
		c.rejectRequest(ctx, normalized, err)
		return resultOK, nil
	}

	switch {
	case parsed.Request != nil:
		c.handleRequest(ctx, parsed.Request)

	case parsed.Poll != nil:
		// Poll firings never fail the invocation: the trigger stays
		// enabled and the next firing retries.
		if err := c.runPoll(ctx, parsed.Poll); err != nil {
			logging.Error("poll attempt failed", "id", parsed.Poll.DistributionID, "error", err.Error())
		}

	case parsed.Cleanup != nil:
		if err := c.runCleanup(ctx, parsed.Cleanup); err != nil {
			logging.Error("cleanup attempt failed", "id", parsed.Cleanup.DistributionID, "error", err.Error())
		}
	}

	return resultOK, nil
}

// handleRequest runs one custom resource operation and guarantees the
// orchestrator gets exactly one signal for it unless completion was
// deferred. Panics anywhere below are converted into failure signals.
func (c *Controller) handleRequest(ctx context.Context, req *event.Request) {
	// A valid physical id must exist before any work so that even an
	// early failure signal references one.
	if req.PhysicalResourceID == "" {
		req.PhysicalResourceID = uuid.NewString()
	}
	target := req.SignalTarget()

	logging.Info("handling request",
		"requestType", req.RequestType,
		"logicalResourceId", req.LogicalResourceID,
		"physicalResourceId", req.PhysicalResourceID)

	var result outcome
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		nodes, err := schema.Load()
		if err != nil {
			return err
		}
		result, err = c.runRequest(ctx, nodes, req)
		return err
	}()

	if err != nil {
		logging.Error("operation failed", "requestType", req.RequestType, "error", err.Error())
		if sigErr := c.Emitter.Failure(ctx, target, req.PhysicalResourceID, err.Error()); sigErr != nil {
			logging.Error("failed to deliver failure signal", "error", sigErr.Error())
		}
		return
	}

	if result.deferred {
		// A scheduled re-invocation owns the signal now; emitting one
		// here would double-signal the request.
		logging.Info("completion deferred", "physicalResourceId", result.physicalID)
		return
	}

	if sigErr := c.Emitter.Success(ctx, target, result.physicalID, result.data, false); sigErr != nil {
		logging.Error("failed to deliver success signal", "error", sigErr.Error())
	}
}

// rejectRequest answers a custom resource request that failed validation.
// The payload never made it into a Request, but when it still carries a
// response URL the orchestrator must hear FAILED; staying silent would hang
// the stack until its own timeout.
func (c *Controller) rejectRequest(ctx context.Context, raw []byte, cause error) {
	var probe struct {
		RequestType        string `json:"RequestType"`
		ResponseURL        string `json:"ResponseURL"`
		StackID            string `json:"StackId"`
		RequestID          string `json:"RequestId"`
		LogicalResourceID  string `json:"LogicalResourceId"`
		PhysicalResourceID string `json:"PhysicalResourceId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return
	}
	if probe.RequestType == "" || probe.ResponseURL == "" {
		return
	}

	if probe.PhysicalResourceID == "" {
		probe.PhysicalResourceID = uuid.NewString()
	}
	target := signal.Target{
		ResponseURL:       probe.ResponseURL,
		StackID:           probe.StackID,
		RequestID:         probe.RequestID,
		LogicalResourceID: probe.LogicalResourceID,
	}
	if err := c.Emitter.Failure(ctx, target, probe.PhysicalResourceID, cause.Error()); err != nil {
		logging.Error("failed to deliver failure signal", "error", err.Error())
	}
}

// normalizePayload undoes template stringification across the whole payload
// before any field is interpreted.
func normalizePayload(raw []byte) ([]byte, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	normalized, err := json.Marshal(normalize.Tree(tree))
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode payload: %w", err)
	}
	return normalized, nil
}
