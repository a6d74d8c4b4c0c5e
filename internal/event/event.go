// Package event models the three payload shapes that can invoke the handler:
// a CloudFormation custom resource request, a scheduled poll task, and a
// scheduled cleanup task. The raw payload is sniffed to decide which one
// arrived, since EventBridge re-invocations share the Lambda with the
// orchestrator.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rererecursive/hl-component-cloudfront/internal/signal"
)

const (
	TypeCreate = "Create"
	TypeUpdate = "Update"
	TypeDelete = "Delete"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is a CloudFormation custom resource request. PhysicalResourceId is
// optional on Create; the handler synthesizes one before any work begins so
// every signal references a valid id.
type Request struct {
	RequestType           string         `json:"RequestType" validate:"required,oneof=Create Update Delete"`
	ResponseURL           string         `json:"ResponseURL" validate:"required,url"`
	StackID               string         `json:"StackId" validate:"required"`
	RequestID             string         `json:"RequestId" validate:"required"`
	LogicalResourceID     string         `json:"LogicalResourceId" validate:"required"`
	PhysicalResourceID    string         `json:"PhysicalResourceId" validate:"required_unless=RequestType Create"`
	ResourceProperties    map[string]any `json:"ResourceProperties"`
	OldResourceProperties map[string]any `json:"OldResourceProperties,omitempty"`
}

// SignalTarget returns the identifiers a completion signal for this request
// must carry.
func (r *Request) SignalTarget() signal.Target {
	return signal.Target{
		ResponseURL:       r.ResponseURL,
		StackID:           r.StackID,
		RequestID:         r.RequestID,
		LogicalResourceID: r.LogicalResourceID,
	}
}

// UpdateConfig controls whether each operation waits for the distribution to
// reach its terminal state before signaling. All three default to waiting.
type UpdateConfig struct {
	WaitForCreation *bool `json:"WaitForCreation"`
	WaitForUpdate   *bool `json:"WaitForUpdate"`
	WaitForDeletion *bool `json:"WaitForDeletion"`
}

func (u UpdateConfig) Wait(requestType string) bool {
	var flag *bool
	switch requestType {
	case TypeCreate:
		flag = u.WaitForCreation
	case TypeUpdate:
		flag = u.WaitForUpdate
	case TypeDelete:
		flag = u.WaitForDeletion
	}
	if flag == nil {
		return true
	}
	return *flag
}

// Helpers names the pre-provisioned EventBridge rules and Lambda targets the
// deferred paths use. The stack that deploys this handler provisions them.
type Helpers struct {
	PollDistributionsRule           string `json:"PollDistributionsRule"`
	PollDistributionsFunctionArn    string `json:"PollDistributionsFunctionArn"`
	CleanUpDistributionsRule        string `json:"CleanUpDistributionsRule"`
	CleanUpDistributionsFunctionArn string `json:"CleanUpDistributionsFunctionArn"`
}

// UpdateConfig extracts the wait preferences from the resource properties.
func (r *Request) UpdateConfig() (UpdateConfig, error) {
	var cfg UpdateConfig
	if err := section(r.ResourceProperties, "UpdateConfig", &cfg); err != nil {
		return UpdateConfig{}, err
	}
	return cfg, nil
}

// Helpers extracts the deferred-work helper references from the resource
// properties.
func (r *Request) Helpers() (Helpers, error) {
	var h Helpers
	if err := section(r.ResourceProperties, "DistributionHelpers", &h); err != nil {
		return Helpers{}, err
	}
	return h, nil
}

// Tags extracts the user-supplied tag list from the resource properties.
func (r *Request) Tags() ([]struct{ Key, Value string }, error) {
	var tags []struct{ Key, Value string }
	if err := section(r.ResourceProperties, "Tags", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func section(props map[string]any, name string, out any) error {
	v, ok := props[name]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// PollTask is the payload a deferred-completion trigger carries. Each firing
// re-reads the distribution and, once it reaches DesiredState with the
// expected Enabled flag, signals the orchestrator and disables the trigger.
type PollTask struct {
	RuleName     string `json:"RuleName" validate:"required"`
	FunctionArn  string `json:"FunctionArn"`
	DesiredState string `json:"DesiredState" validate:"required"`
	Enabled      bool   `json:"Enabled"`

	// Teardown marks a task installed by a Delete: once the distribution
	// settles, the poll performs the actual delete. Enabled alone cannot
	// distinguish this, since creating or updating a distribution with
	// Enabled false is a legitimate request.
	Teardown bool `json:"Teardown"`

	DistributionID   string        `json:"DistributionId" validate:"required"`
	DistributionARN  string        `json:"DistributionARN"`
	Attempt          int           `json:"Attempt"`
	ResourceToSignal signal.Target `json:"ResourceToSignal"`
}

// CleanupTask is the payload of the recurring cleanup trigger installed by a
// no-wait delete. It carries no signal target: the orchestrator was already
// answered, and the trigger keeps firing until the distribution is gone.
type CleanupTask struct {
	RuleName        string `json:"RuleName" validate:"required"`
	DistributionID  string `json:"DistributionId" validate:"required"`
	DistributionARN string `json:"DistributionARN"`
}

// Parsed is the result of sniffing a raw invocation payload; exactly one
// field is non-nil.
type Parsed struct {
	Request *Request
	Poll    *PollTask
	Cleanup *CleanupTask
}

// Parse decides which payload shape arrived and validates it. A custom
// resource request carries RequestType; a poll task carries DesiredState; a
// cleanup task carries RuleName only.
func Parse(raw []byte) (Parsed, error) {
	var probe struct {
		RequestType  string `json:"RequestType"`
		DesiredState string `json:"DesiredState"`
		RuleName     string `json:"RuleName"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Parsed{}, fmt.Errorf("failed to parse invocation payload: %w", err)
	}

	switch {
	case probe.RequestType != "":
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return Parsed{}, fmt.Errorf("failed to parse custom resource request: %w", err)
		}
		if err := validate.Struct(&req); err != nil {
			return Parsed{}, fmt.Errorf("invalid custom resource request: %w", err)
		}
		return Parsed{Request: &req}, nil

	case probe.DesiredState != "":
		var task PollTask
		if err := json.Unmarshal(raw, &task); err != nil {
			return Parsed{}, fmt.Errorf("failed to parse poll task: %w", err)
		}
		if err := validate.Struct(&task); err != nil {
			return Parsed{}, fmt.Errorf("invalid poll task: %w", err)
		}
		return Parsed{Poll: &task}, nil

	case probe.RuleName != "":
		var task CleanupTask
		if err := json.Unmarshal(raw, &task); err != nil {
			return Parsed{}, fmt.Errorf("failed to parse cleanup task: %w", err)
		}
		if err := validate.Struct(&task); err != nil {
			return Parsed{}, fmt.Errorf("invalid cleanup task: %w", err)
		}
		return Parsed{Cleanup: &task}, nil
	}

	return Parsed{}, fmt.Errorf("unrecognized invocation payload")
}
