package commands

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bit2swaz/foodstagram/internal/auth"
	"github.com/bit2swaz/foodstagram/internal/recipe"
)

type sessionResponse struct {
	User  recipe.User `json:"user"`
	Token string      `json:"token"`
}

func newRegisterCommand() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			var resp sessionResponse
			body := map[string]string{"name": strings.TrimSpace(name), "email": strings.TrimSpace(email)}
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/auth/register", body, &resp); err != nil {
				return err
			}
			if err := auth.SaveToken(client.base, resp.User.Email, resp.Token); err != nil {
				return err
			}

			logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Welcome, %s. You are logged in.", resp.User.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with your email and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			var resp sessionResponse
			body := map[string]string{"email": strings.TrimSpace(email)}
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/auth/login", body, &resp); err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
					return fmt.Errorf("no account for %s, run `foodstagram register` first", email)
				}
				return err
			}
			if err := auth.SaveToken(client.base, resp.User.Email, resp.Token); err != nil {
				return err
			}

			logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Logged in as %s.", resp.User.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if client.token != "" {
				err := client.do(cmd.Context(), http.MethodPost, "/api/v1/auth/logout", nil, nil)
				var apiErr *apiError
				if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
					logWarning(cmd.ErrOrStderr(), fmt.Sprintf("server logout failed: %v", err))
				}
			}
			if err := auth.ClearToken(); err != nil {
				return err
			}
			logInfo(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newSetKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Save the AI provider API key used by foodstagram-api",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "Please paste your Gemini API key: ")

			byteKey, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read api key: %w", err)
			}

			if err := auth.SaveAPIKey(string(byteKey)); err != nil {
				return err
			}

			logSuccess(cmd.OutOrStdout(), "API key saved successfully.")
			return nil
		},
	}
}
