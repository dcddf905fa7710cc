package commands

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/auth"
)

func newLinkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link [server-url]",
		Short: "Point the CLI at a Foodstagram API server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "Please paste the API server URL: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read server url: %w", err)
				}
				raw = line
			}

			server, err := normalizeServerURL(raw)
			if err != nil {
				return err
			}

			creds, err := auth.Load()
			if err != nil {
				return err
			}
			if creds.Server != server {
				// Sessions belong to the server that issued them.
				creds.Token = ""
				creds.Email = ""
			}
			creds.Server = server
			if err := auth.Save(creds); err != nil {
				return err
			}

			logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Linked to %s", server))
			return nil
		},
	}
	return cmd
}

func normalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("server url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid server url %q", raw)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}
