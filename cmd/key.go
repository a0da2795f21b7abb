package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sightline/internal/keystore"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the Gemini API key",
	Long: `Store, remove or inspect the API key kept in the OS credential store.

When the store has no key, GEMINI_API_KEY and then GOOGLE_API_KEY are used.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Save the API key (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = line
		}
		s := keys()
		if err := s.Set(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved key %s\n", keystore.Mask(strings.TrimSpace(key)))
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keys().Delete(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Key removed")
		return nil
	},
}

var keySourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Show where the API key comes from",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), keys().Source())
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd, keySourceCmd)
	rootCmd.AddCommand(keyCmd)
}
