package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	awsprovider "github.com/de-tools/cloud-warden/pkg/providers/aws"
	"github.com/de-tools/cloud-warden/pkg/providers/memory"
	"github.com/de-tools/cloud-warden/pkg/runtime/terminal"
	"github.com/de-tools/cloud-warden/pkg/runtime/terminal/commands"
	"github.com/de-tools/cloud-warden/pkg/services/config"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/remediation"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/de-tools/cloud-warden/pkg/services/rules/builtin"
)

func main() {
	cfg, err := config.Load(os.Getenv("WARDEN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	provider, err := buildProvider(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	obs := observer.New(provider, observer.Settings{
		Attempts:  cfg.Engine.ObserveAttempts,
		BaseDelay: cfg.Engine.ObserveDelay,
	})
	dispatcher := remediation.NewDispatcher(provider, obs, registry, remediation.Settings{
		Attempts:  cfg.Engine.RemediationAttempts,
		BaseDelay: cfg.Engine.RemediationDelay,
	})

	cli := terminal.NewCLI(terminal.Options{
		Observer:   obs,
		Evaluator:  rules.NewEvaluator(registry),
		Dispatcher: dispatcher,
		Registry:   registry,
		Provider:   provider,
		ServerAddr: cfg.Server.Addr,
		Output:     os.Stdout,
	})

	err = cli.Execute()
	switch {
	case err == nil:
	case errors.Is(err, commands.ErrNonCompliant), errors.Is(err, commands.ErrRemediationFailed):
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func buildRegistry(cfg *config.Config) (*rules.Registry, error) {
	ruleSet := []domain.Rule{
		builtin.NoOpenSSH(),
		builtin.S3BlockPublicAccess(),
		builtin.RDSNotPublic(),
	}
	if len(cfg.Rules.RequiredPolicyArns) > 0 {
		iamRule, err := builtin.IAMPolicyRequired(builtin.IAMPolicyRequiredParams{
			PolicyArns:  cfg.Rules.RequiredPolicyArns,
			ExemptRoles: cfg.Rules.ExemptRoles,
			ExemptUsers: cfg.Rules.ExemptUsers,
		})
		if err != nil {
			return nil, err
		}
		ruleSet = append(ruleSet, iamRule)
	}
	return rules.NewRegistry(ruleSet...)
}

func buildProvider(ctx context.Context, cfg *config.Config) (providers.Provider, error) {
	if cfg.AWS.Provider == "memory" {
		return memory.NewProvider(), nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return awsprovider.NewProvider(awsCfg), nil
}
