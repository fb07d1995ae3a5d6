// Package mailgun implements the primary mail transport against the
// Mailgun HTTP API. The platform deliberately does not depend on the
// hosting provider's built-in SMTP, which proved unreliable.
package mailgun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ce_platform/internal/notify"
)

type Client struct {
	apiKey  string
	domain  string
	baseURL string
	http    *http.Client
}

func New(apiKey, domain, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		domain:  domain,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "mailgun" }

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) Send(ctx context.Context, msg notify.Message) (string, error) {
	const op = "notify.mailgun.Send"

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.domain)

	var (
		body        io.Reader
		contentType string
		err         error
	)

	if len(msg.Attachment) > 0 {
		body, contentType, err = multipartBody(msg)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	} else {
		form := url.Values{}
		form.Set("from", msg.From)
		form.Set("to", msg.To)
		form.Set("subject", msg.Subject)
		form.Set("text", textOrPlaceholder(msg.Text))
		if msg.HTML != "" {
			form.Set("html", msg.HTML)
		}

		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: provider returned %d: %s", op, resp.StatusCode, providerError(respBody))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%s: unparsable provider response: %s", op, string(respBody))
	}

	return parsed.ID, nil
}

func multipartBody(msg notify.Message) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    textOrPlaceholder(msg.Text),
	}
	if msg.HTML != "" {
		fields["html"] = msg.HTML
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("attachment", msg.AttachmentName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(msg.Attachment); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func textOrPlaceholder(text string) string {
	if text == "" {
		return "Please view this email in HTML format."
	}
	return text
}

// providerError pulls the message field out of a Mailgun error body,
// falling back to the raw body when it is not JSON.
func providerError(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}

	return string(body)
}
