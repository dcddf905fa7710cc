package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/auth"
)

const (
	defaultServer = "http://localhost:8080"
	// ServerEnv overrides the stored API server URL.
	ServerEnv = "FOODSTAGRAM_SERVER"
)

// Video generation polls the provider for minutes.
const clientTimeout = 10 * time.Minute

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

type rateLimitedError struct {
	RetryIn time.Duration
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryIn)
}

type apiClient struct {
	base  string
	token string
	http  *http.Client
}

// newClient builds a client for the server selected by --server, the
// FOODSTAGRAM_SERVER env var, the stored credentials or the default, in that order.
func newClient(cmd *cobra.Command) (*apiClient, error) {
	creds, err := auth.Load()
	if err != nil {
		return nil, err
	}

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = strings.TrimSpace(os.Getenv(ServerEnv))
	}
	if server == "" {
		server = creds.Server
	}
	if server == "" {
		server = defaultServer
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = clientTimeout

	return &apiClient{
		base:  strings.TrimSuffix(server, "/"),
		token: creds.Token,
		http:  httpClient,
	}, nil
}

func (c *apiClient) requireLogin() error {
	if c.token == "" {
		return fmt.Errorf("%w: run `foodstagram login` first", auth.ErrNotLoggedIn)
	}
	return nil
}

// do sends in as JSON and decodes a 2xx response into out. A 429 becomes a
// *rateLimitedError and is never retried.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return parseRateLimited(resp.Header, payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(payload, &msg)
		return &apiError{Status: resp.StatusCode, Message: msg.Error}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseRateLimited(header http.Header, payload []byte) error {
	var body struct {
		ResetInMs int64 `json:"resetInMs"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.ResetInMs > 0 {
		return &rateLimitedError{RetryIn: time.Duration(body.ResetInMs) * time.Millisecond}
	}

	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
		return &rateLimitedError{RetryIn: time.Duration(secs) * time.Second}
	}
	return &rateLimitedError{RetryIn: time.Second}
}
