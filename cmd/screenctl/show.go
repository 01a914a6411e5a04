package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mindwell-screening/internal/db"
	"mindwell-screening/pkg"
)

type screeningGetter interface {
	GetScreening(ctx context.Context, id string) (*pkg.Screening, error)
}

func newShowCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "show <screening-id>",
		Short: "Print a stored screening record read directly from Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			conn, err := db.Open(cmd.Context(), dsn, 5*time.Second)
			if err != nil {
				return err
			}
			defer conn.Close()
			return showScreening(cmd.Context(), cmd.OutOrStdout(), db.NewRepository(conn), args[0])
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	return cmd
}

func showScreening(ctx context.Context, w io.Writer, repo screeningGetter, id string) error {
	s, err := repo.GetScreening(ctx, id)
	if errors.Is(err, db.ErrScreeningNotFound) {
		return fmt.Errorf("no screening with id %s", id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", cyan("Record:"), s.ID)
	fmt.Fprintf(w, "%s %s\n", cyan("Recorded at:"), s.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "%s %s (%s)\n", cyan("Model:"), s.Model, s.Mode)
	fmt.Fprintf(w, "%s %s\n", yellow("Risk Score:"), white(s.RiskScore))
	if s.AgentRiskScore != nil {
		fmt.Fprintf(w, "%s %s\n", yellow("Agent Score:"), white(*s.AgentRiskScore))
	}
	fmt.Fprintf(w, "%s %s\n", yellow("Validation:"), s.Validation)
	fmt.Fprintf(w, "%s %s\n", cyan("Reasoning:"), s.Reasoning)
	fmt.Fprintf(w, "%s %s\n", cyan("Summary:"), s.Summary)
	return nil
}
