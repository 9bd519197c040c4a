package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	awsprovider "github.com/de-tools/cloud-warden/pkg/providers/aws"
	"github.com/de-tools/cloud-warden/pkg/providers/memory"
	"github.com/de-tools/cloud-warden/pkg/server"
	"github.com/de-tools/cloud-warden/pkg/services/audit"
	"github.com/de-tools/cloud-warden/pkg/services/config"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/remediation"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/de-tools/cloud-warden/pkg/services/rules/builtin"
	"github.com/de-tools/cloud-warden/pkg/services/scheduler"
	"github.com/de-tools/cloud-warden/pkg/store/duckdb"
	duckdbaudit "github.com/de-tools/cloud-warden/pkg/store/duckdb/audit"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the warden compliance service",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the warden config file (default searches . and ./configs)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build rule registry: %w", err)
	}

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build provider: %w", err)
	}

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: cfg.Audit.DbPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	auditStore, err := duckdbaudit.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}
	if err := duckdbaudit.Touch(ctx, db); err != nil {
		return fmt.Errorf("audit store unreachable: %w", err)
	}

	sink := audit.NewStoreSink(auditStore, logger, audit.Settings{
		FlushInterval: cfg.Audit.FlushInterval,
		MaxBacklog:    cfg.Audit.MaxBacklog,
	})
	sink.Start(ctx)
	defer sink.Close()

	obs := observer.New(provider, observer.Settings{
		Attempts:  cfg.Engine.ObserveAttempts,
		BaseDelay: cfg.Engine.ObserveDelay,
	})
	dispatcher := remediation.NewDispatcher(provider, obs, registry, remediation.Settings{
		Attempts:  cfg.Engine.RemediationAttempts,
		BaseDelay: cfg.Engine.RemediationDelay,
	})

	router := scheduler.NewRouter(scheduler.Dependencies{
		Observer:   obs,
		Evaluator:  rules.NewEvaluator(registry),
		Dispatcher: dispatcher,
		Registry:   registry,
		Sink:       sink,
		Provider:   provider,
		Logger:     logger,
	})
	router.Start(ctx)
	defer router.Close()

	go router.RunSweeps(ctx, cfg.Engine.SweepInterval)

	logger.Info().
		Int("rules", len(registry.Rules())).
		Str("provider", cfg.AWS.Provider).
		Dur("sweep_interval", cfg.Engine.SweepInterval).
		Msg("compliance loop started")

	webAPI := server.NewWebAPI(server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Triggers: router,
			States:   router,
			Audit:    auditStore,
			Rules:    registry,
			Logger:   logger,
		},
	})
	return webAPI.Start()
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

func buildProvider(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (providers.Provider, error) {
	if cfg.AWS.Provider == "memory" {
		return memory.NewProvider(), nil
	}

	if cfg.AWS.CredentialsFile != "" {
		profiles, err := config.NewProfileRegistry(cfg.AWS.CredentialsFile)
		if err != nil {
			return nil, err
		}
		names, _ := profiles.GetProfiles(ctx)
		logger.Info().Msgf("Credentials found at `%s` successfully loaded.", cfg.AWS.CredentialsFile)
		for _, name := range names {
			logger.Info().Msgf("Profile: `%s`", name)
		}
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
