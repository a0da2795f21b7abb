package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"sightline/internal/db"
	"sightline/internal/export"
	"sightline/internal/models"
)

var (
	historyLimit int
	historyPage  int
	exportFormat string
	exportOutput string
)

// openHistory loads the configuration and opens the chat database.
func openHistory() (*app, *sql.DB, error) {
	a, err := setup()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.OpenDB(a.cfg.DataDir)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, conn, nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved chats, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 1 || historyPage < 0 {
			return fmt.Errorf("--limit must be positive and --page not negative")
		}
		a, conn, err := openHistory()
		if err != nil {
			return err
		}
		defer a.Close()
		defer conn.Close()

		total, chats, err := db.GetRecentChats(conn, historyLimit, historyPage*historyLimit)
		if err != nil {
			return err
		}
		printChats(cmd.OutOrStdout(), total, chats)
		return nil
	},
}

func printChats(w io.Writer, total int, chats []models.ChatListItem) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No chats")
		return
	}
	for _, c := range chats {
		prompt := c.LastUserPrompt
		if prompt == "" {
			prompt = "(attachments only)"
		}
		fmt.Fprintf(w, "%5d  %-16s  %-22s  %s\n",
			c.ID, humanize.Time(time.Unix(c.UpdatedAtUnix, 0)), c.ModelID, truncate(prompt, 60))
	}
	fmt.Fprintf(w, "%d of %s chats\n", len(chats), humanize.Comma(int64(total)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var exportCmd = &cobra.Command{
	Use:   "export <chat-id>",
	Short: "Export a saved chat (markdown, yaml or json)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscan(args[0], &id); err != nil {
			return fmt.Errorf("invalid chat id %q", args[0])
		}
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		a, conn, err := openHistory()
		if err != nil {
			return err
		}
		defer a.Close()
		defer conn.Close()

		chat, err := db.GetChat(conn, id)
		if err != nil {
			return fmt.Errorf("chat %d: %w", id, err)
		}
		blocks, err := db.GetChatBlocks(conn, id)
		if err != nil {
			return err
		}
		t := export.NewTranscript(chat, blocks)

		if exportOutput == "" {
			return exporter.Export(t, cmd.OutOrStdout())
		}
		path := exportOutput
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, fmt.Sprintf("chat_%d.%s", id, exporter.Extension()))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := exporter.Export(t, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove screenshots and recordings that no saved chat refers to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, conn, err := openHistory()
		if err != nil {
			return err
		}
		defer a.Close()
		defer conn.Close()
		n, err := purge(a, conn)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", english.Plural(n, "file", "files"))
		return err
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Chats per page")
	historyCmd.Flags().IntVar(&historyPage, "page", 0, "Page to show, starting at 0")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown, yaml or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory (default stdout)")
	rootCmd.AddCommand(historyCmd, exportCmd, cleanCmd)
}
