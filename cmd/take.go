package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/app"
	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/logger"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/setup"
	"github.com/abhisek/docquiz/internal/session"
)

var takeCmd = &cobra.Command{
	Use:   "take [file.pdf]",
	Short: "Take a quiz in the terminal",
	Long: "Generate a quiz from a PDF and take it in the terminal. Without a " +
		"file the setup screen asks for one. An unfinished quiz is kept and " +
		"can be continued with --resume.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("take needs an interactive terminal")
		}

		difficulty, _ := cmd.Flags().GetString("difficulty")
		d, err := quiz.ParseDifficulty(difficulty)
		if err != nil {
			return err
		}
		resume, _ := cmd.Flags().GetBool("resume")

		opts := app.Options{Difficulty: d, Resume: resume}
		if len(args) == 1 {
			opts.Path = args[0]
			if !resume {
				if opts.Document, err = setup.ReadDocument(args[0]); err != nil {
					return err
				}
			}
		}

		cfg := config.Load()
		ctx := context.Background()

		// The TUI owns the terminal, so logs go to a file.
		logFile, err := openLogFile(cmd)
		if err != nil {
			return err
		}
		defer logFile.Close()
		log := logger.Setup(cfg.LogLevel, "json", logFile)

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
		persist := session.NewPersistence(kv)

		gen := buildGenerator(ctx, st.EventRepo(), log)
		opts.Env = &screens.Env{
			Ctx:         ctx,
			Generator:   gen,
			Pipeline:    analysis.New(gen, persist, log),
			Persistence: persist,
			Log:         log,
		}

		return app.Run(ctx, opts)
	},
}

// openLogFile opens docquiz.log beside the database.
func openLogFile(cmd *cobra.Command) (*os.File, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}
	path := filepath.Join(filepath.Dir(dbPath), "docquiz.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func init() {
	takeCmd.Flags().StringP("difficulty", "d", "medium", "Quiz difficulty: easy, medium or hard")
	takeCmd.Flags().Bool("resume", false, "Continue the stored quiz instead of starting a new one")
}
