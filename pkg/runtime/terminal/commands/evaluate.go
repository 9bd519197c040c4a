package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/spf13/cobra"
)

type EvaluateCmd struct {
	deps Dependencies
}

func NewEvaluateCmd(deps Dependencies) *cobra.Command {
	ec := &EvaluateCmd{deps: deps}
	return &cobra.Command{
		Use:   "evaluate <resource-id>",
		Short: "Force a one-shot evaluation of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ec.run(cmd.Context(), args[0])
		},
	}
}

func (ec *EvaluateCmd) run(ctx context.Context, resourceID string) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	ref, err := resolveRef(ctx, ec.deps, resourceID)
	if err != nil {
		return err
	}

	snap, err := ec.deps.Observer.Observe(ctx, ref)
	if err != nil {
		return fmt.Errorf("observe %s: %w", ref, err)
	}

	verdicts := ec.deps.Evaluator.Evaluate(ctx, snap)
	if err := ec.deps.Reporter.HandleVerdicts(ref, verdicts); err != nil {
		return err
	}

	for _, v := range verdicts {
		if v.Compliance == domain.NonCompliant {
			return ErrNonCompliant
		}
	}
	return nil
}
