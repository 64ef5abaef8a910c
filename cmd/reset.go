package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/logger"
	"github.com/abhisek/docquiz/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the stored quiz session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil)
		ctx := context.Background()

		st, err := openStore(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		kv, closeKV, err := sessionKV(ctx, cfg, st, log)
		if err != nil {
			return fmt.Errorf("session storage: %w", err)
		}
		defer closeKV()

		if err := session.NewPersistence(kv).Clear(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stored quiz session cleared.")
		return nil
	},
}
