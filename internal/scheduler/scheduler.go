// Package scheduler manages the EventBridge rules that re-invoke the handler
// after the Lambda execution ceiling has passed. A rule plus a JSON target
// payload is the only "memory" a deferred operation has between invocations.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// DefaultCadence is the fixed polling interval for deferred work. CloudFront
// deployments settle in tens of minutes, so there is nothing to gain from
// anything fancier than a flat rate.
const DefaultCadence = "rate(5 minutes)"

// Scheduler is the trigger surface the lifecycle controller consumes.
// UpsertTrigger and SetTarget are idempotent: installing an already-installed
// trigger simply refreshes it.
type Scheduler interface {
	UpsertTrigger(ctx context.Context, name, cadence string) error
	SetTarget(ctx context.Context, triggerName, functionARN, id string, payload any) error
	DisableTrigger(ctx context.Context, name string) error
	RemoveTarget(ctx context.Context, triggerName, id string) error
}

// Client implements Scheduler against EventBridge.
type Client struct {
	api *eventbridge.Client
}

// NewClient builds a Client from the default AWS config chain.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &Client{api: eventbridge.NewFromConfig(cfg)}, nil
}

func (c *Client) UpsertTrigger(ctx context.Context, name, cadence string) error {
	_, err := c.api.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(cadence),
		State:              types.RuleStateEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to put rule %s: %w", name, err)
	}
	return nil
}

func (c *Client) SetTarget(ctx context.Context, triggerName, functionARN, id string, payload any) error {
	input, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode target payload: %w", err)
	}

	_, err = c.api.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(triggerName),
		Targets: []types.Target{
			{
				Id:    aws.String(id),
				Arn:   aws.String(functionARN),
				Input: aws.String(string(input)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put target on rule %s: %w", triggerName, err)
	}
	return nil
}

func (c *Client) DisableTrigger(ctx context.Context, name string) error {
	_, err := c.api.DisableRule(ctx, &eventbridge.DisableRuleInput{
		Name: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to disable rule %s: %w", name, err)
	}
	return nil
}

func (c *Client) RemoveTarget(ctx context.Context, triggerName, id string) error {
	_, err := c.api.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(triggerName),
		Ids:  []string{id},
	})
	if err != nil {
		return fmt.Errorf("failed to remove target from rule %s: %w", triggerName, err)
	}
	return nil
}
