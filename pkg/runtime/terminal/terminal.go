package terminal

import (
	"io"
	"os"

	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/de-tools/cloud-warden/pkg/runtime/terminal/commands"
	"github.com/de-tools/cloud-warden/pkg/runtime/terminal/export"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/de-tools/cloud-warden/pkg/services/scheduler"
	"github.com/spf13/cobra"
)

// CLI is the operator surface: one-shot evaluation and remediation plus
// status against a running warden service.
type CLI struct {
	rootCmd *cobra.Command
}

// Options carry the wired components the commands run against.
type Options struct {
	Observer   observer.Observer
	Evaluator  *rules.Evaluator
	Dispatcher scheduler.Dispatcher
	Registry   *rules.Registry
	Provider   providers.Provider
	ServerAddr string
	Output     io.Writer
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	reporter := export.NewReporter(opts.Output)
	deps := commands.Dependencies{
		Observer:   opts.Observer,
		Evaluator:  opts.Evaluator,
		Dispatcher: opts.Dispatcher,
		Registry:   opts.Registry,
		Provider:   opts.Provider,
		ServerAddr: opts.ServerAddr,
		Reporter:   reporter,
	}

	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd(deps)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd(deps commands.Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "warden",
		Short:         "Continuous compliance and auto-remediation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(commands.NewEvaluateCmd(deps))
	cmd.AddCommand(commands.NewRemediateCmd(deps))
	cmd.AddCommand(commands.NewStatusCmd(deps))
	cmd.AddCommand(commands.NewRulesCmd(deps))

	return cmd
}
