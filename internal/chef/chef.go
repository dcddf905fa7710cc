// Package chef talks to the generative-AI provider that identifies dishes,
// writes recipes and renders cooking videos.
package chef

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

// Input kinds accepted by GenerateRecipe.
const (
	KindImage  = "image"
	KindText   = "text"
	KindRandom = "random"
)

// linkAccessSentinel is the dishName the provider returns when it cannot read a link.
const linkAccessSentinel = "LINK_ACCESS_ERROR"

var urlPattern = regexp.MustCompile(`^(http|https)://[^ "]+$`)

// Input describes what the user submitted.
type Input struct {
	Kind string `json:"kind"`
	// Value is base64 image data for KindImage, the query or link for KindText.
	Value    string `json:"value"`
	MIMEType string `json:"mimeType,omitempty"`
}

// IsLink reports whether a text input is a bare http(s) URL.
func (in Input) IsLink() bool {
	return in.Kind == KindText && urlPattern.MatchString(strings.TrimSpace(in.Value))
}

// Validate checks the input before it is sent anywhere.
func (in Input) Validate() error {
	switch in.Kind {
	case KindRandom:
		return nil
	case KindImage, KindText:
		if strings.TrimSpace(in.Value) == "" {
			return fmt.Errorf("%s input requires a value", in.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown input kind %q", in.Kind)
	}
}

// Provider is the generative-AI backend.
type Provider interface {
	GenerateRecipe(ctx context.Context, in Input) (*recipe.Recipe, error)
	GenerateVideo(ctx context.Context, dishName, origin string) (string, error)
}

// VideoFetcher is implemented by providers whose video URIs need
// authenticated downloads.
type VideoFetcher interface {
	FetchVideo(ctx context.Context, uri string) (io.ReadCloser, error)
}
