// Package ocr wraps a hosted OCR HTTP service that converts uploaded
// lab-report images and PDFs to plain text.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Config holds OCR service connection settings.
type Config struct {
	URL    string
	APIKey string
}

// Client calls the OCR service.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// parsedResult is a single page of OCR output.
type parsedResult struct {
	ParsedText string `json:"ParsedText"`
}

// response is the OCR service response envelope.
type response struct {
	ParsedResults         []parsedResult `json:"ParsedResults"`
	IsErroredOnProcessing bool           `json:"IsErroredOnProcessing"`
	ErrorMessage          any            `json:"ErrorMessage"`
}

// ParseFile sends the given file to the OCR service and returns the
// concatenated parsed text of all pages.
func (c *Client) ParseFile(ctx context.Context, filename string, file io.Reader) (string, error) {
	var body strings.Builder
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"language":                     "eng",
		"isOverlayRequired":            "false",
		"FileType":                     ".Auto",
		"IsCreateSearchablePDF":        "false",
		"isSearchablePdfHideTextLayer": "true",
		"detectOrientation":            "false",
		"isTable":                      "true",
		"scale":                        "true",
		"OCREngine":                    "2",
		"detectCheckbox":               "false",
		"checkboxTemplate":             "0",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("writing form field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copying file contents: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("building OCR request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OCR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("OCR service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding OCR response: %w", err)
	}

	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("OCR processing failed: %s", formatErrorMessage(parsed.ErrorMessage))
	}

	var text strings.Builder
	for _, r := range parsed.ParsedResults {
		text.WriteString(r.ParsedText)
	}
	return text.String(), nil
}

// formatErrorMessage renders the service's ErrorMessage field, which may be
// a string or an array of strings.
func formatErrorMessage(msg any) string {
	switch m := msg.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return "unknown error"
	}
}
