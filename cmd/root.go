package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sightline/internal/capture"
	"sightline/internal/db"
	"sightline/internal/ui"
)

var (
	logLevel string
	version  = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "sightline",
	Short: "Ask Gemini about your screen from an accessible terminal",
	Long: `Sightline is a multimodal assistant for screen reader users.

Type a question, attach a screenshot (Ctrl+E), a screen region (/region)
or a short screen recording (Ctrl+R), and the answer is spoken, shown on
the status line for braille displays and kept in a searchable history.

Quick Start:
  sightline key set                 # store the Gemini API key
  sightline                         # open the assistant
  sightline describe-screen         # one-shot screen description
  sightline record --seconds 10     # record, upload and analyze a clip`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runUI,
}

// Execute runs the root command; Ctrl+C cancels one-shot commands.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override SIGHTLINE_LOG_LEVEL (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	be, err := a.backend()
	if err != nil {
		return err
	}
	conn, dbErr := db.OpenDB(a.cfg.DataDir)
	if dbErr != nil {
		a.logger.Error("open history database", "err", dbErr)
	} else {
		defer conn.Close()
		purge(a, conn)
	}

	p, m := ui.NewProgram(ui.Deps{
		Config:   a.cfg,
		Backend:  be,
		DB:       conn,
		DBErr:    dbErr,
		Feedback: newFeedback(a.cfg, a.logger),
		Logger:   a.logger,
	})
	_, err = p.Run()
	m.Shutdown()
	return err
}

// purge removes temporary captures that no saved chat refers to. Without
// the list of referenced files nothing is removed.
func purge(a *app, conn *sql.DB) (int, error) {
	keep, err := db.AttachmentPaths(conn)
	if err != nil {
		a.logger.Warn("list chat attachments", "err", err)
		return 0, err
	}
	n, err := capture.PurgeStale(a.cfg.DataDir, keep)
	if err != nil {
		a.logger.Warn("purge temp captures", "err", err)
	} else if n > 0 {
		a.logger.Info("purged temp captures", "count", n, "kept", len(keep))
	}
	return n, err
}
