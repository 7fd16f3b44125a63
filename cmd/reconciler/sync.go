package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/app"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/job"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/logging"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/metrics"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/secrets"
)

const pushJob = "order-payment-reconciler"

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "sync [pending|cancelled|all]",
		Short:     "Run one reconciliation pass and post the report",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"pending", "cancelled", job.KindAll},
		RunE:      runSync,
	}

	cmd.Flags().Bool("json", false, "Print the run summaries as JSON")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	kind := job.KindAll
	if len(args) == 1 {
		kind = args[0]
	}
	if _, err := job.Kinds(kind); err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bootstrapSecrets(ctx)

	var (
		runner *job.Runner
		reg    *prometheus.Registry
		cfg    config.Config
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module,
		fx.WithLogger(logging.FxLogger),
		fx.Populate(&runner, &reg, &cfg, &logger),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()

	summaries, runErr := runner.Run(ctx, kind)
	if err := printSummaries(cmd, summaries, asJSON); err != nil {
		return err
	}

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, pushJob, reg); err != nil {
			logger.Warn("pushgateway push failed", zap.Error(err))
		}
	}
	return runErr
}

func printSummaries(cmd *cobra.Command, summaries []job.Summary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(out, "%s run %s: %d orders in %s", s.Kind, s.RunID, s.Orders, s.Duration.Round(time.Millisecond))
		if s.Partial {
			fmt.Fprint(out, " (partial)")
		}
		fmt.Fprintln(out)
		for _, outcome := range slices.Sorted(maps.Keys(s.Outcomes)) {
			fmt.Fprintf(out, "  %-10s %d\n", outcome, s.Outcomes[outcome])
		}
		if s.ReportPath != "" {
			fmt.Fprintf(out, "  report     %s\n", s.ReportPath)
		}
	}
	return nil
}

// bootstrapSecrets exports OpenBao secrets before the configuration is read.
func bootstrapSecrets(ctx context.Context) {
	logger, err := zap.NewProduction()
	if err != nil {
		return
	}
	defer func() { _ = logger.Sync() }()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := secrets.BootstrapFromOpenBao(ctx, nil, logger); err != nil {
		logger.Warn("openbao bootstrap failed, continuing with the environment", zap.Error(err))
	}
}
