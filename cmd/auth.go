package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tfischer/inboxpilot/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to a Gmail account",
		Long: `Authorize inboxpilot to access your Gmail account via OAuth.

The command prints an authorization URL. Open it in a browser, grant access,
and paste the resulting code back. The token is stored on disk and refreshed
automatically on later runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if google.HasTokenForAccount(account) {
				cmd.Printf("Account %q is already authorized. Re-authorizing replaces the stored token.\n\n", account)
			}

			url, err := google.GetAuthURL()
			if err != nil {
				return err
			}

			cmd.Printf("Open the following URL in your browser and authorize access:\n\n  %s\n\n", url)
			cmd.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveToken(context.Background(), account, code); err != nil {
				return err
			}

			cmd.Printf("Token stored for account %q.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	return cmd
}
