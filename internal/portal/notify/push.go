package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/twh-ops/leadportal/pkg/logger"
)

// PushClient sends note-style push notifications over HTTP. A token
// bucket caps the send rate; pushes above the cap are silently dropped.
// The counter is process-local, which is acceptable while the portal runs
// as a single instance.
type PushClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	limiter    *rate.Limiter
	log        *logger.Logger
}

var _ Publisher = (*PushClient)(nil)

// NewPushClient builds a push client. perHour bounds how many notes go
// out in a rolling hour.
func NewPushClient(client *http.Client, endpoint, token string, perHour int, log *logger.Logger) (*PushClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("push endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if perHour <= 0 {
		perHour = 30
	}
	if log == nil {
		log = logger.NewDefault("notify.push")
	}
	return &PushClient{
		httpClient: client,
		endpoint:   endpoint,
		token:      token,
		limiter:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
		log:        log,
	}, nil
}

// Publish converts the event into a note. Events without a push rendering
// are ignored.
func (p *PushClient) Publish(ctx context.Context, e Event) error {
	title, body, ok := noteFor(e)
	if !ok {
		return nil
	}
	if !p.limiter.Allow() {
		p.log.WithField("event", e.Name).Warn("push rate limit reached, dropping note")
		return nil
	}
	return p.send(ctx, title, body)
}

func (p *PushClient) send(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"type":  "note",
		"title": title,
		"body":  body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Access-Token", p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}

// noteFor renders the events that warrant a phone notification.
func noteFor(e Event) (title, body string, ok bool) {
	str := func(key string) string {
		v, _ := e.Payload[key].(string)
		return v
	}
	switch e.Name {
	case EventNewLead:
		category := str("type")
		if category != "" {
			category = strings.ToUpper(category[:1]) + category[1:]
		}
		return fmt.Sprintf("New %s Lead", category),
			fmt.Sprintf("%s - %s", str("agent"), str("amount")), true
	case EventPaymentConfirmed:
		return "Payment Approved",
			fmt.Sprintf("%s - %s", str("agent"), str("client_name")), true
	default:
		return "", "", false
	}
}
