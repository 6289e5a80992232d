// Package client talks to the folio HTTP API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehmann314159/folio/internal/models"
)

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Messages is the guestbook client. It satisfies the Writer, Lister and Feed
// interfaces of the messages package.
type Messages struct {
	baseURL string
	http    *http.Client
}

func NewMessages(baseURL string, httpClient *http.Client) *Messages {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Messages{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Messages) Write(ctx context.Context, in models.MessageInput) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var env envelope[models.Message]
	if err := c.do(req, &env); err != nil {
		return "", err
	}
	return env.Data.ID, nil
}

func (c *Messages) List(ctx context.Context) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/messages", nil)
	if err != nil {
		return nil, err
	}

	var env envelope[[]models.Message]
	if err := c.do(req, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Messages) do(req *http.Request, v any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		var env envelope[json.RawMessage]
		if err := json.NewDecoder(res.Body).Decode(&env); err != nil || env.Message == "" {
			return &APIError{Code: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return &APIError{Code: res.StatusCode, Message: env.Message}
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Subscribe opens the server's event stream. Snapshots arrive in order; an
// "error" event or an undecodable snapshot goes to the error channel. Both
// channels close when the stream ends.
func (c *Messages) Subscribe(ctx context.Context) (<-chan []models.Message, <-chan error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/messages/stream", nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, nil, &APIError{Code: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	}

	snapshots := make(chan []models.Message)
	errs := make(chan error, 8)
	go func() {
		defer close(errs)
		defer close(snapshots)
		defer res.Body.Close()
		readEvents(ctx, res.Body, snapshots, errs)
	}()
	return snapshots, errs, nil
}

func readEvents(ctx context.Context, body io.Reader, snapshots chan<- []models.Message, errs chan<- error) {
	report := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) == 0 {
				event = ""
				continue
			}
			payload := strings.Join(data, "\n")
			if event == "error" {
				report(fmt.Errorf("stream error: %s", payload))
			} else {
				var snapshot []models.Message
				if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
					report(fmt.Errorf("failed to decode snapshot: %w", err))
				} else {
					select {
					case snapshots <- snapshot:
					case <-ctx.Done():
						return
					}
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment, used as keepalive
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		report(fmt.Errorf("stream interrupted: %w", err))
	}
}
