package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MailClient communicates with the internal mail relay service.
type MailClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewMailClient(baseURL string, timeout time.Duration, log *zap.Logger) *MailClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type mailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func (c *MailClient) Send(ctx context.Context, to []string, subject, body string) error {
	payload, err := json.Marshal(mailRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/mail", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail relay returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

