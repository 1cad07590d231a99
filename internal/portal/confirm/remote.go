package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// RemoteGenerator delegates letter generation to an external HTTP service
// (e.g. an LLM gateway). It falls back to the local template when the
// remote call fails, so status updates never block on the generator.
type RemoteGenerator struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	local      TemplateGenerator
	log        *logger.Logger
}

var _ Generator = (*RemoteGenerator)(nil)

// NewRemoteGenerator validates the endpoint and builds a generator.
func NewRemoteGenerator(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*RemoteGenerator, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("generator endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("confirm.remote")
	}
	return &RemoteGenerator{
		httpClient: client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		local:      NewTemplateGenerator(),
		log:        log,
	}, nil
}

// Generate posts the lead details and expects {"body": "..."} back.
func (g *RemoteGenerator) Generate(ctx context.Context, l lead.Lead) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_name": l.ClientName,
		"provider":    l.Provider,
		"amount":      l.ChargeDisplay,
		"llc":         l.LLC,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.WithError(err).Warn("remote generator unreachable, using local template")
		return g.local.Generate(ctx, l)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		g.log.WithField("status", resp.StatusCode).Warn("remote generator failed, using local template")
		return g.local.Generate(ctx, l)
	}

	var out struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || strings.TrimSpace(out.Body) == "" {
		return g.local.Generate(ctx, l)
	}
	return out.Body, nil
}
