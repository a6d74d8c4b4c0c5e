package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/rererecursive/hl-component-cloudfront/internal/cloudfront"
	"github.com/rererecursive/hl-component-cloudfront/internal/lifecycle"
	"github.com/rererecursive/hl-component-cloudfront/internal/scheduler"
	"github.com/rererecursive/hl-component-cloudfront/internal/signal"
)

// newController wires the controller against the real AWS clients. Clients
// are built once per cold start and reused across invocations.
func newController(ctx context.Context) (*lifecycle.Controller, error) {
	distributions, err := cloudfront.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build CloudFront client: %w", err)
	}
	triggers, err := scheduler.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build EventBridge client: %w", err)
	}

	return &lifecycle.Controller{
		Distributions: distributions,
		Scheduler:     triggers,
		Emitter:       signal.NewHTTPEmitter(),
	}, nil
}

func serve() error {
	controller, err := newController(context.Background())
	if err != nil {
		return err
	}

	lambda.Start(func(ctx context.Context, raw json.RawMessage) (string, error) {
		return controller.Handle(ctx, raw)
	})
	return nil
}
