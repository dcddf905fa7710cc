package chef

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultModel      = "gemini-2.5-flash"
	defaultVideoModel = "veo-3.1-fast-generate-preview"
	defaultPollEvery  = 5 * time.Second
	defaultTimeout    = 60 * time.Second
)

// Gemini implements Provider against the Gemini REST API.
type Gemini struct {
	BaseURL    string
	APIKey     string
	Model      string
	VideoModel string
	// Timeout bounds a single recipe request. Video generation is bounded by
	// the caller's context only.
	Timeout time.Duration
	// PollEvery is the delay between video operation polls.
	PollEvery time.Duration

	client *retryablehttp.Client
	logger *zap.Logger
}

// GeminiConfig holds the settings for NewGemini.
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	VideoModel string
	Timeout    time.Duration
	RetryMax   int
}

// NewGemini returns a client with defaults applied.
func NewGemini(cfg GeminiConfig, logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	videoModel := cfg.VideoModel
	if videoModel == "" {
		videoModel = defaultVideoModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = time.Second
	client.RetryWaitMax = 4 * time.Second
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = retryLogger{logger.Sugar()}

	return &Gemini{
		BaseURL:    base,
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Model:      model,
		VideoModel: videoModel,
		Timeout:    timeout,
		PollEvery:  defaultPollEvery,
		client:     client,
		logger:     logger,
	}
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	Contents          []content       `json:"contents"`
	SafetySettings    []safetySetting `json:"safetySettings,omitempty"`
	Tools             []tool          `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

var safetySettings = []safetySetting{
	{"HARM_CATEGORY_HATE_SPEECH", "BLOCK_MEDIUM_AND_ABOVE"},
	{"HARM_CATEGORY_DANGEROUS_CONTENT", "BLOCK_MEDIUM_AND_ABOVE"},
	{"HARM_CATEGORY_SEXUALLY_EXPLICIT", "BLOCK_MEDIUM_AND_ABOVE"},
	{"HARM_CATEGORY_HARASSMENT", "BLOCK_MEDIUM_AND_ABOVE"},
}

// GenerateRecipe asks the model for a structured recipe.
func (g *Gemini) GenerateRecipe(ctx context.Context, in Input) (*recipe.Recipe, error) {
	op := OpRequest
	if in.Kind == KindImage {
		op = OpImage
	}

	r, err := g.generateRecipe(ctx, in)
	if err != nil {
		g.logger.Warn("recipe generation failed", zap.String("kind", in.Kind), zap.Error(err))
		return nil, MapError(err, op)
	}
	return r, nil
}

func (g *Gemini) generateRecipe(ctx context.Context, in Input) (*recipe.Recipe, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req := buildRecipeRequest(in)

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	var resp generateResponse
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.Model)
	if err := g.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no candidate in response")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		if reason := resp.Candidates[0].FinishReason; reason == "SAFETY" {
			return nil, errors.New("response blocked by safety filter")
		}
		return nil, errors.New("no response text from candidate")
	}

	return parseRecipe(text.String())
}

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	AspectRatio    string `json:"aspectRatio"`
	Resolution     string `json:"resolution"`
	NumberOfVideos int    `json:"numberOfVideos,omitempty"`
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// GenerateVideo starts a video generation and polls until it completes or
// ctx is done. It returns the provider URI of the first video.
func (g *Gemini) GenerateVideo(ctx context.Context, dishName, origin string) (string, error) {
	uri, err := g.generateVideo(ctx, dishName, origin)
	if err != nil {
		g.logger.Warn("video generation failed", zap.String("dish", dishName), zap.Error(err))
		return "", MapError(err, OpVideo)
	}
	return uri, nil
}

func (g *Gemini) generateVideo(ctx context.Context, dishName, origin string) (string, error) {
	if strings.TrimSpace(dishName) == "" {
		return "", errors.New("dish name is required")
	}

	req := videoRequest{
		Instances: []videoInstance{{Prompt: videoPrompt(dishName, origin)}},
		Parameters: videoParameters{
			AspectRatio:    "16:9",
			Resolution:     "720p",
			NumberOfVideos: 1,
		},
	}

	var op operation
	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", g.BaseURL, g.VideoModel)
	if err := g.doJSON(ctx, http.MethodPost, url, req, &op); err != nil {
		return "", err
	}

	poll := func() error {
		if op.Done {
			return nil
		}
		var next operation
		if err := g.doJSON(ctx, http.MethodGet, g.BaseURL+"/v1beta/"+op.Name, nil, &next); err != nil {
			return backoff.Permanent(err)
		}
		op = next
		if !op.Done {
			return errOperationPending
		}
		return nil
	}

	every := g.PollEvery
	if every <= 0 {
		every = defaultPollEvery
	}
	if err := backoff.Retry(poll, backoff.WithContext(backoff.NewConstantBackOff(every), ctx)); err != nil {
		if errors.Is(err, errOperationPending) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	if op.Error != nil {
		return "", fmt.Errorf("video operation failed: %d %s", op.Error.Code, op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return "", ErrNoVideo
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return "", ErrNoVideo
	}
	return uri, nil
}

var errOperationPending = errors.New("video operation pending")

// FetchVideo downloads a generated video. The caller closes the body.
func (g *Gemini) FetchVideo(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch video: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() // nolint:errcheck
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{Provider: "gemini", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return resp.Body, nil
}

func (g *Gemini) doJSON(ctx context.Context, method, url string, payload, out any) error {
	if strings.TrimSpace(g.APIKey) == "" {
		return errors.New("api key is required")
	}

	var body interface{}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &ProviderError{Provider: "gemini", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.NewDecoder(bytes.NewReader(respBody)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
