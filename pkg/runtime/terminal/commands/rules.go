package commands

import (
	"github.com/spf13/cobra"
)

func NewRulesCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List registered compliance rules",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return deps.Reporter.HandleRules(deps.Registry.Rules())
		},
	}
}
