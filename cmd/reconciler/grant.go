package main

import (
	"fmt"
	"net/http"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/authz"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

const (
	runObject   = "job:reconcile"
	runRelation = "can_run"
)

// grantCmd writes the tuple that lets a principal trigger runs through the
// ops API, then verifies it with a check.
func grantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant [user]",
		Short: "Allow a principal to trigger reconciliation runs",
		Example: "  reconciler grant user:alice\n" +
			"  reconciler grant user:bob --relation operator",
		Args: cobra.ExactArgs(1),
		RunE: runGrant,
	}

	cmd.Flags().String("relation", runRelation, "Relation written on "+runObject)

	return cmd
}

func runGrant(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	relation, _ := cmd.Flags().GetString("relation")

	var cfg config.AuthzConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	client, err := authz.NewOpenFGA(cfg, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return err
	}

	user := args[0]
	if err := client.Write(cmd.Context(), user, runObject, relation); err != nil {
		return fmt.Errorf("write tuple: %w", err)
	}
	allowed, err := client.Check(cmd.Context(), user, runObject, runRelation)
	if err != nil {
		return fmt.Errorf("verify tuple: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%s was written as %s on %s but still lacks %s", user, relation, runObject, runRelation)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s can now run reconciliations\n", user)
	return nil
}
