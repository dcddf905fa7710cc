package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/auth"
	"github.com/bit2swaz/foodstagram/internal/recipe"
)

func loggedInClient(cmd *cobra.Command) (*apiClient, error) {
	client, err := newClient(cmd)
	if err != nil {
		return nil, err
	}
	if err := client.requireLogin(); err != nil {
		return nil, err
	}
	return client, nil
}

func newSavedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List the recipes in your cookbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loggedInClient(cmd)
			if err != nil {
				return err
			}

			var recipes []recipe.Recipe
			if err := client.do(cmd.Context(), http.MethodGet, "/api/v1/cookbook", nil, &recipes); err != nil {
				return err
			}
			if len(recipes) == 0 {
				logInfo(cmd.OutOrStdout(), "Your cookbook is empty.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cookbookTable(recipes))
			return nil
		},
	}
}

func cookbookTable(recipes []recipe.Recipe) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"ID", "Dish", "Origin", "Difficulty", "Rating", "Saved"})

	for _, r := range recipes {
		rating := "-"
		if r.UserRating > 0 {
			rating = fmt.Sprintf("%d/%d", r.UserRating, recipe.MaxRating)
		}
		saved := ""
		if !r.CreatedAt.IsZero() {
			saved = r.CreatedAt.Local().Format("2006-01-02")
		}
		t.AppendRow(table.Row{r.ID, r.DishName, r.Origin, r.Difficulty, rating, saved})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d saved", len(recipes))})
	return t.Render()
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loggedInClient(cmd)
			if err != nil {
				return err
			}

			var rec recipe.Recipe
			if err := client.do(cmd.Context(), http.MethodGet, "/api/v1/cookbook/"+url.PathEscape(args[0]), nil, &rec); err != nil {
				return err
			}
			renderRecipe(cmd.OutOrStdout(), &rec)
			return nil
		},
	}
}

func newSaveToggleCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save-toggle",
		Short: "Save the last generated recipe, or remove it if already saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loggedInClient(cmd)
			if err != nil {
				return err
			}

			var payload []byte
			if file != "" {
				payload, err = os.ReadFile(file)
			} else {
				payload, err = auth.LoadLastRecipe()
			}
			if err != nil {
				return err
			}

			var rec recipe.Recipe
			if err := json.Unmarshal(payload, &rec); err != nil {
				return fmt.Errorf("decode recipe: %w", err)
			}

			var resp struct {
				Saved bool   `json:"saved"`
				ID    string `json:"id"`
			}
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/cookbook/toggle", rec, &resp); err != nil {
				return err
			}

			if resp.Saved {
				logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved %s (%s).", rec.DishName, resp.ID))
			} else {
				logInfo(cmd.OutOrStdout(), fmt.Sprintf("Removed %s from your cookbook.", rec.DishName))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "recipe JSON file instead of the last generated recipe")
	return cmd
}

func newRateCommand() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "rate <id> <stars>",
		Short: "Rate a saved recipe from 0 to 5 stars",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("stars must be a number: %w", err)
			}
			if err := recipe.ValidateRating(n); err != nil {
				return err
			}

			client, err := loggedInClient(cmd)
			if err != nil {
				return err
			}

			body := map[string]any{"userRating": n}
			if cmd.Flags().Changed("notes") {
				body["userNotes"] = notes
			}

			var rec recipe.Recipe
			if err := client.do(cmd.Context(), http.MethodPatch, "/api/v1/cookbook/"+url.PathEscape(args[0]), body, &rec); err != nil {
				return err
			}
			logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Rated %s %s", rec.DishName, stars(rec.UserRating)))
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "personal notes")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a recipe from your cookbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loggedInClient(cmd)
			if err != nil {
				return err
			}
			if err := client.do(cmd.Context(), http.MethodDelete, "/api/v1/cookbook/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			logInfo(cmd.OutOrStdout(), "Recipe deleted.")
			return nil
		},
	}
}
