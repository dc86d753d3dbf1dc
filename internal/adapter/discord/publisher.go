// Package discord delivers scheduled reports to Discord channels over the
// REST API. The gateway side of the platform (message events, slash
// commands) lives outside this service; only message creation is needed here.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	requestTimeout = 10 * time.Second
)

// Publisher implements domain.ReportPublisher against the Discord REST API.
type Publisher struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
}

func NewPublisher(botToken string) *Publisher {
	return &Publisher{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		botToken:   botToken,
	}
}

// NewPublisherWithBaseURL is used by tests to point at a fake server.
func NewPublisherWithBaseURL(botToken, baseURL string) *Publisher {
	p := NewPublisher(botToken)
	p.baseURL = baseURL
	return p
}

func (p *Publisher) PublishReport(ctx context.Context, channelID, title string, sentLines, receivedLines []string) error {
	var b strings.Builder
	b.WriteString("**" + title + "**\n")
	b.WriteString(strings.Join(sentLines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(receivedLines, "\n"))
	return p.createMessage(ctx, channelID, b.String())
}

func (p *Publisher) PublishNotice(ctx context.Context, channelID, text string) error {
	return p.createMessage(ctx, channelID, text)
}

type createMessageRequest struct {
	Content string `json:"content"`
}

func (p *Publisher) createMessage(ctx context.Context, channelID, content string) error {
	body, err := json.Marshal(createMessageRequest{Content: content})
	if err != nil {
		return fmt.Errorf("failed to encode message body: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", p.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
