package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/auth"
	"github.com/bit2swaz/foodstagram/internal/chef"
	"github.com/bit2swaz/foodstagram/internal/recipe"
)

// Matches the server's limit once base64 overhead is added.
const maxImageBytes = 8 << 20

func newGenerateCommand() *cobra.Command {
	var (
		imagePath string
		random    bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "generate [dish name, description or link]",
		Short: "Generate a recipe from a photo, a query, a link or at random",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildInput(imagePath, random, strings.Join(args, " "))
			if err != nil {
				return err
			}

			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if in.Kind == chef.KindText && in.IsLink() {
				logInfo(out, "Reading the linked recipe...")
			} else {
				logInfo(out, "Cooking up a recipe...")
			}

			var rec recipe.Recipe
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/recipes/generate", in, &rec); err != nil {
				return err
			}

			payload, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encode recipe: %w", err)
			}
			if err := auth.SaveLastRecipe(payload); err != nil {
				logWarning(cmd.ErrOrStderr(), fmt.Sprintf("could not remember recipe: %v", err))
			}

			if asJSON {
				_, err := fmt.Fprintln(out, string(payload))
				return err
			}
			renderRecipe(out, &rec)
			fmt.Fprintf(out, "\n%s\n", subtleStyle.Sprint("Run `foodstagram save-toggle` to keep it in your cookbook."))
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "photo of a dish")
	cmd.Flags().BoolVar(&random, "random", false, "surprise me")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the recipe as JSON")
	return cmd
}

// buildInput picks exactly one of image, random or query.
func buildInput(imagePath string, random bool, query string) (chef.Input, error) {
	query = strings.TrimSpace(query)

	set := 0
	for _, ok := range []bool{imagePath != "", random, query != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return chef.Input{}, fmt.Errorf("provide exactly one of --image, --random or a query")
	}

	switch {
	case random:
		return chef.Input{Kind: chef.KindRandom}, nil
	case query != "":
		return chef.Input{Kind: chef.KindText, Value: query}, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return chef.Input{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return chef.Input{}, fmt.Errorf("image is larger than %d MB", maxImageBytes>>20)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return chef.Input{}, fmt.Errorf("%s does not look like an image (%s)", imagePath, mimeType)
	}

	return chef.Input{
		Kind:     chef.KindImage,
		Value:    base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

func newVideoCommand() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "video <dish name>",
		Short: "Render a short cooking video for a dish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			dish := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			logInfo(out, fmt.Sprintf("Filming %s. This can take a few minutes...", dish))

			var resp struct {
				VideoURI string `json:"videoUri"`
			}
			body := map[string]string{"dishName": dish, "origin": origin}
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/recipes/video", body, &resp); err != nil {
				return err
			}

			logSuccess(out, "Video ready: "+resp.VideoURI)
			return nil
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "country or region the dish comes from")
	return cmd
}
