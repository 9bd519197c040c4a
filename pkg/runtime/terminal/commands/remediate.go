package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/spf13/cobra"
)

type RemediateCmd struct {
	deps Dependencies
}

func NewRemediateCmd(deps Dependencies) *cobra.Command {
	rc := &RemediateCmd{deps: deps}
	return &cobra.Command{
		Use:   "remediate <resource-id>",
		Short: "Force remediation of a non-compliant resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(cmd.Context(), args[0])
		},
	}
}

func (rc *RemediateCmd) run(ctx context.Context, resourceID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	ref, err := resolveRef(ctx, rc.deps, resourceID)
	if err != nil {
		return err
	}

	snap, err := rc.deps.Observer.Observe(ctx, ref)
	if err != nil {
		return fmt.Errorf("observe %s: %w", ref, err)
	}

	verdicts := rc.deps.Evaluator.Evaluate(ctx, snap)
	failed := false
	dispatched := false

	for _, verdict := range verdicts {
		if verdict.Compliance != domain.NonCompliant {
			continue
		}
		rule, ok := rc.deps.Registry.Get(verdict.Rule)
		if !ok || rule.Action == nil {
			continue
		}

		dispatched = true
		outcome, err := rc.deps.Dispatcher.Remediate(ctx, verdict)
		if reportErr := rc.deps.Reporter.HandleOutcome(ref, verdict, outcome); reportErr != nil {
			return reportErr
		}
		if err != nil || outcome.Status == domain.RemediationFailed {
			failed = true
		}
	}

	if failed {
		return ErrRemediationFailed
	}
	if !dispatched {
		return rc.deps.Reporter.HandleVerdicts(ref, verdicts)
	}
	return nil
}
