package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rererecursive/hl-component-cloudfront/internal/cloudfront"
	"github.com/rererecursive/hl-component-cloudfront/internal/event"
	"github.com/rererecursive/hl-component-cloudfront/internal/logging"
)

// maxPollAttempts bounds how long a deferred operation keeps polling. At the
// fixed five-minute cadence this is roughly ten hours, well past any sane
// distribution deployment.
const maxPollAttempts = 120

// runPoll is one firing of a deferred-completion trigger. It re-reads live
// distribution state; nothing from the installing invocation is trusted
// beyond the task payload itself. Firings are idempotent: once the terminal
// state is signaled the trigger is disabled, and a straggling firing finds
// nothing to do.
func (c *Controller) runPoll(ctx context.Context, task *event.PollTask) error {
	target := task.ResourceToSignal

	rec, err := c.Distributions.Get(ctx, task.DistributionID)
	if err != nil {
		if cloudfront.IsNotFound(err) && task.Teardown {
			// A teardown poll finding no distribution means the delete
			// already happened, possibly in a previous firing.
			if err := c.Emitter.Success(ctx, target, task.DistributionID, map[string]any{}, false); err != nil {
				return err
			}
			return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)
		}
		return err
	}

	if rec.Status != task.DesiredState || rec.Enabled != task.Enabled {
		logging.Info("distribution not yet in desired state",
			"id", task.DistributionID, "status", rec.Status, "enabled", rec.Enabled,
			"desiredState", task.DesiredState, "attempt", task.Attempt)
		return c.recordAttempt(ctx, task)
	}

	if task.Teardown {
		// A delete deferred to this poll: the distribution has settled
		// disabled, so perform the actual delete now.
		logging.Info("distribution disabled, deleting", "id", task.DistributionID)
		if err := c.Distributions.Delete(ctx, task.DistributionID, rec.ETag); err != nil {
			logging.Warn("ignoring delete failure", "id", task.DistributionID, "error", err.Error())
		}
		if err := c.Emitter.Success(ctx, target, task.DistributionID, map[string]any{}, false); err != nil {
			return err
		}
		return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)
	}

	logging.Info("distribution reached desired state", "id", task.DistributionID, "status", rec.Status)
	if err := c.Emitter.Success(ctx, target, task.DistributionID, outputs(rec), false); err != nil {
		return err
	}
	return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)
}

// recordAttempt rewrites the trigger's payload with an incremented attempt
// counter, or gives up with a failure signal once the ceiling is reached.
func (c *Controller) recordAttempt(ctx context.Context, task *event.PollTask) error {
	next := *task
	next.Attempt = task.Attempt + 1

	if next.Attempt >= maxPollAttempts {
		reason := fmt.Sprintf("distribution %s did not reach state %s after %d checks",
			task.DistributionID, task.DesiredState, next.Attempt)
		logging.Error("abandoning deferred operation", "id", task.DistributionID, "reason", reason)
		if err := c.Emitter.Failure(ctx, task.ResourceToSignal, task.DistributionID, reason); err != nil {
			return err
		}
		return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)
	}

	return c.Scheduler.SetTarget(ctx, task.RuleName, task.FunctionArn, task.DistributionID, next)
}

// runCleanup is one firing of the recurring cleanup trigger installed by a
// no-wait delete. The orchestrator was already answered, so no signal is
// emitted here; the trigger just keeps working towards "distribution gone"
// and disables itself once it gets there.
func (c *Controller) runCleanup(ctx context.Context, task *event.CleanupTask) error {
	rec, err := c.Distributions.Get(ctx, task.DistributionID)
	if err != nil {
		if cloudfront.IsNotFound(err) {
			return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)
		}
		return err
	}

	switch {
	case rec.Status == statusDeployed && !rec.Enabled:
		logging.Info("cleanup: deleting distribution", "id", task.DistributionID)
		if err := c.Distributions.Delete(ctx, task.DistributionID, rec.ETag); err != nil {
			// Leave the trigger enabled; the next firing retries.
			return err
		}
		return c.teardownTrigger(ctx, task.RuleName, task.DistributionID)

	case rec.Enabled:
		// The disable never landed (or was re-enabled); issue it again.
		logging.Info("cleanup: disabling distribution", "id", task.DistributionID)
		config, etag, err := c.Distributions.GetConfig(ctx, task.DistributionID)
		if err != nil {
			return err
		}
		config["Enabled"] = false
		config["Aliases"] = map[string]any{"Quantity": 0}
		// Firings repeat until the delete lands, so don't stack markers.
		if comment, _ := config["Comment"].(string); !strings.HasPrefix(comment, deletionMarker) {
			config["Comment"] = deletionMarker + comment
		}
		_, err = c.Distributions.Update(ctx, task.DistributionID, config, etag)
		return err

	default:
		// Disabled but still propagating; wait for the next firing.
		logging.Info("cleanup: distribution still settling", "id", task.DistributionID, "status", rec.Status)
		return nil
	}
}

func (c *Controller) teardownTrigger(ctx context.Context, rule, targetID string) error {
	if err := c.Scheduler.RemoveTarget(ctx, rule, targetID); err != nil {
		logging.Warn("failed to remove trigger target", "rule", rule, "error", err.Error())
	}
	return c.Scheduler.DisableTrigger(ctx, rule)
}
