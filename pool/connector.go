package pool

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// BuildTransport constructs the SDK transport described by cfg. This is
// pure construction: no process is spawned and no network I/O happens
// until the returned transport is connected.
func BuildTransport(cfg ServerConfig) (mcp.Transport, error) {
	switch kind := cfg.Kind(); kind {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("%w: server %q", ErrMissingCommand, cfg.ID)
		}
		cmd := exec.Command(cfg.Command, cfg.Args...)
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
		return &mcp.CommandTransport{Command: cmd}, nil

	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: server %q", ErrMissingURL, cfg.ID)
		}
		return &mcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: newHTTPClient(cfg.Headers, cfg.ReadTimeout()),
		}, nil

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: server %q", ErrMissingURL, cfg.ID)
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: newHTTPClient(cfg.Headers, cfg.ConnectTimeout()),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, kind)
	}
}

func newHTTPClient(headers map[string]string, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if len(headers) > 0 {
		client.Transport = &headerRoundTripper{
			next:    http.DefaultTransport,
			headers: headers,
		}
	}
	return client
}

// headerRoundTripper injects static headers into every outgoing request.
type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range h.headers {
		clone.Header.Set(k, v)
	}
	return h.next.RoundTrip(clone)
}
