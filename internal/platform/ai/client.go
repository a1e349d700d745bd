// Package ai wraps a hosted chat-completion HTTP service used to extract
// structured lab results from OCR text.
package ai

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

// Config holds AI service connection settings.
type Config struct {
	URL    string
	APIKey string
	Model  string
}

// Client calls the AI service.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	Input     []message `json:"input"`
	Reasoning struct {
		Effort string `json:"effort"`
	} `json:"reasoning"`
}

type outputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Content []outputContent `json:"content"`
}

type response struct {
	Output []outputItem `json:"output"`
}

// Complete sends the system and user prompts to the AI service and returns
// the concatenated text of the model's reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := request{
		Model: c.cfg.Model,
		Input: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	reqBody.Reasoning.Effort = "minimal"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding AI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building AI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling AI service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding AI response: %w", err)
	}

	var text strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" {
				text.WriteString(content.Text)
			}
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("AI response contained no output text")
	}
	return text.String(), nil
}
