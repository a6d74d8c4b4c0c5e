// Package lifecycle implements the custom resource operations against
// CloudFront and decides, per operation, whether completion can be signaled
// immediately or must be handed off to a scheduled re-invocation.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/rererecursive/hl-component-cloudfront/internal/cloudfront"
	"github.com/rererecursive/hl-component-cloudfront/internal/convert"
	"github.com/rererecursive/hl-component-cloudfront/internal/event"
	"github.com/rererecursive/hl-component-cloudfront/internal/logging"
	"github.com/rererecursive/hl-component-cloudfront/internal/scheduler"
	"github.com/rererecursive/hl-component-cloudfront/internal/schema"
	"github.com/rererecursive/hl-component-cloudfront/internal/signal"
)

const (
	statusDeployed = "Deployed"

	// deletionMarker prefixes the comment of a distribution that has been
	// disabled ahead of deletion, so the state is visible in the console.
	deletionMarker = "Scheduled for deletion - "
)

// Controller executes lifecycle operations. All collaborators are interfaces
// so tests can observe the calls.
type Controller struct {
	Distributions cloudfront.API
	Scheduler     scheduler.Scheduler
	Emitter       signal.Emitter
}

// outcome is what one lifecycle operation produced. When deferred is set, no
// completion signal may be emitted in this invocation; a later poll firing
// owns it.
type outcome struct {
	physicalID string
	data       map[string]any
	deferred   bool
}

func (c *Controller) runRequest(ctx context.Context, nodes []schema.Node, req *event.Request) (outcome, error) {
	props := convert.ApplyAliases(req.ResourceProperties)

	updateCfg, err := req.UpdateConfig()
	if err != nil {
		return outcome{}, err
	}
	helpers, err := req.Helpers()
	if err != nil {
		return outcome{}, err
	}

	switch req.RequestType {
	case event.TypeCreate:
		return c.create(ctx, nodes, req, props, updateCfg, helpers)
	case event.TypeUpdate:
		return c.update(ctx, nodes, req, props, updateCfg, helpers)
	case event.TypeDelete:
		return c.delete(ctx, req, updateCfg, helpers)
	}
	return outcome{}, fmt.Errorf("unknown request type %q", req.RequestType)
}

func (c *Controller) create(ctx context.Context, nodes []schema.Node, req *event.Request, props map[string]any, updateCfg event.UpdateConfig, helpers event.Helpers) (outcome, error) {
	config, err := distributionConfig(nodes, props)
	if err != nil {
		return outcome{}, err
	}

	// The fixed pair comes first; user tags are appended and never
	// override it.
	tags := []cloudfront.Tag{
		{Key: "Status", Value: "Created"},
		{Key: "StackARN", Value: req.StackID},
	}
	userTags, err := req.Tags()
	if err != nil {
		return outcome{}, err
	}
	for _, t := range userTags {
		tags = append(tags, cloudfront.Tag{Key: t.Key, Value: t.Value})
	}

	logging.Info("creating distribution", "logicalResourceId", req.LogicalResourceID)
	rec, err := c.Distributions.Create(ctx, config, tags)
	if err != nil {
		return outcome{}, err
	}
	logging.Info("created distribution", "id", rec.ID, "arn", rec.ARN)

	if updateCfg.Wait(event.TypeCreate) {
		if err := c.deferCompletion(ctx, helpers, req, rec, enabled(config), false); err != nil {
			return outcome{}, err
		}
		return outcome{physicalID: rec.ID, deferred: true}, nil
	}
	return outcome{physicalID: rec.ID, data: outputs(rec)}, nil
}

func (c *Controller) update(ctx context.Context, nodes []schema.Node, req *event.Request, props map[string]any, updateCfg event.UpdateConfig, helpers event.Helpers) (outcome, error) {
	config, err := distributionConfig(nodes, props)
	if err != nil {
		return outcome{}, err
	}

	id := req.PhysicalResourceID

	// The version token must come from a read in this invocation; a token
	// obtained earlier may have been invalidated by any other mutation.
	_, etag, err := c.Distributions.GetConfig(ctx, id)
	if err != nil {
		return outcome{}, err
	}

	logging.Info("updating distribution", "id", id)
	rec, err := c.Distributions.Update(ctx, id, config, etag)
	if err != nil {
		return outcome{}, err
	}

	if updateCfg.Wait(event.TypeUpdate) {
		if err := c.deferCompletion(ctx, helpers, req, rec, enabled(config), false); err != nil {
			return outcome{}, err
		}
		return outcome{physicalID: rec.ID, deferred: true}, nil
	}
	return outcome{physicalID: rec.ID, data: outputs(rec)}, nil
}

func (c *Controller) delete(ctx context.Context, req *event.Request, updateCfg event.UpdateConfig, helpers event.Helpers) (outcome, error) {
	id := req.PhysicalResourceID

	rec, err := c.Distributions.Get(ctx, id)
	if err != nil {
		if cloudfront.IsNotFound(err) {
			logging.Info("distribution already gone", "id", id)
			return outcome{physicalID: id, data: map[string]any{}}, nil
		}
		return outcome{}, err
	}

	if rec.Status == statusDeployed && !rec.Enabled {
		logging.Info("deleting distribution", "id", id)
		if err := c.Distributions.Delete(ctx, id, rec.ETag); err != nil {
			// The distribution may already be mid-deletion; the desired
			// end state likely holds, so the failure is not fatal.
			logging.Warn("ignoring delete failure", "id", id, "error", err.Error())
		}
		return outcome{physicalID: id, data: map[string]any{}}, nil
	}

	logging.Info("distribution must be disabled before deletion", "id", id, "status", rec.Status)

	config, etag, err := c.Distributions.GetConfig(ctx, id)
	if err != nil {
		return outcome{}, err
	}

	config["Enabled"] = false
	config["Aliases"] = map[string]any{"Quantity": 0}
	comment, _ := config["Comment"].(string)
	config["Comment"] = deletionMarker + comment

	rec, err = c.Distributions.Update(ctx, id, config, etag)
	if err != nil {
		return outcome{}, err
	}

	if err := c.Distributions.Tag(ctx, rec.ARN, []cloudfront.Tag{{Key: "Status", Value: "Deleting"}}); err != nil {
		return outcome{}, err
	}

	if updateCfg.Wait(event.TypeDelete) {
		// The later poll invocation observes the disable settling and
		// performs the actual delete.
		if err := c.deferCompletion(ctx, helpers, req, rec, false, true); err != nil {
			return outcome{}, err
		}
		return outcome{physicalID: id, deferred: true}, nil
	}

	if err := c.deferCleanup(ctx, helpers, rec); err != nil {
		return outcome{}, err
	}
	return outcome{physicalID: id, data: map[string]any{}}, nil
}

// deferCompletion installs the one-shot deferred completion: a scheduled
// trigger whose payload lets a later, stateless invocation finish the check
// and emit the signal. teardown is set only on the Delete path, where the
// poll also owns the final delete call.
func (c *Controller) deferCompletion(ctx context.Context, helpers event.Helpers, req *event.Request, rec cloudfront.Record, enabled, teardown bool) error {
	if helpers.PollDistributionsRule == "" || helpers.PollDistributionsFunctionArn == "" {
		return fmt.Errorf("waiting requested but DistributionHelpers.PollDistributionsRule/PollDistributionsFunctionArn are not set")
	}

	task := event.PollTask{
		RuleName:         helpers.PollDistributionsRule,
		FunctionArn:      helpers.PollDistributionsFunctionArn,
		DesiredState:     statusDeployed,
		Enabled:          enabled,
		Teardown:         teardown,
		DistributionID:   rec.ID,
		DistributionARN:  rec.ARN,
		ResourceToSignal: req.SignalTarget(),
	}

	logging.Info("deferring completion to scheduled poll",
		"rule", task.RuleName, "id", rec.ID, "desiredState", task.DesiredState)

	if err := c.Scheduler.SetTarget(ctx, task.RuleName, task.FunctionArn, rec.ID, task); err != nil {
		return err
	}
	return c.Scheduler.UpsertTrigger(ctx, task.RuleName, scheduler.DefaultCadence)
}

// deferCleanup installs the recurring cleanup trigger used by no-wait
// deletes: each firing re-attempts disable and delete until the distribution
// is gone, then disables itself.
func (c *Controller) deferCleanup(ctx context.Context, helpers event.Helpers, rec cloudfront.Record) error {
	if helpers.CleanUpDistributionsRule == "" || helpers.CleanUpDistributionsFunctionArn == "" {
		return fmt.Errorf("cleanup requested but DistributionHelpers.CleanUpDistributionsRule/CleanUpDistributionsFunctionArn are not set")
	}

	task := event.CleanupTask{
		RuleName:        helpers.CleanUpDistributionsRule,
		DistributionID:  rec.ID,
		DistributionARN: rec.ARN,
	}

	logging.Info("installing cleanup trigger", "rule", task.RuleName, "id", rec.ID)

	if err := c.Scheduler.SetTarget(ctx, task.RuleName, helpers.CleanUpDistributionsFunctionArn, rec.ID, task); err != nil {
		return err
	}
	return c.Scheduler.UpsertTrigger(ctx, task.RuleName, scheduler.DefaultCadence)
}

// distributionConfig converts the provided properties against the schema and
// extracts the distribution config subtree.
func distributionConfig(nodes []schema.Node, props map[string]any) (map[string]any, error) {
	converted, err := convert.Convert(nodes, props)
	if err != nil {
		return nil, err
	}
	config, ok := converted["DistributionConfig"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("converted structure is missing DistributionConfig")
	}
	return config, nil
}

func enabled(config map[string]any) bool {
	v, _ := config["Enabled"].(bool)
	return v
}

func outputs(rec cloudfront.Record) map[string]any {
	return map[string]any{
		"Id":         rec.ID,
		"ARN":        rec.ARN,
		"DomainName": rec.DomainName,
	}
}
