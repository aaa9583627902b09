package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// Client is a store.RemoteStore backed by a Server.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

var (
	_ store.RemoteStore = (*Client)(nil)
	_ store.Upserter    = (*Client)(nil)
)

// NewClient creates a client for the server at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// ListSheets implements store.RemoteStore.
func (c *Client) ListSheets(ctx context.Context) ([]schema.Sheet, error) {
	var out []schema.Sheet
	if err := c.do(ctx, http.MethodGet, "/api/sheets", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	return out, nil
}

// ListQuestions implements store.RemoteStore.
func (c *Client) ListQuestions(ctx context.Context, sheetID string) ([]schema.Question, error) {
	var out []schema.Question
	path := "/api/sheets/" + url.PathEscape(sheetID) + "/questions"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list questions for %s: %w", sheetID, err)
	}
	return out, nil
}

// ListStatuses implements store.RemoteStore.
func (c *Client) ListStatuses(ctx context.Context, userID string) ([]schema.StatusRecord, error) {
	var out []schema.StatusRecord
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, "/api/statuses", q, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list statuses for %s: %w", userID, err)
	}
	return out, nil
}

// ListStatusesFor implements store.RemoteStore.
func (c *Client) ListStatusesFor(ctx context.Context, userID string, questionIDs []string) ([]schema.StatusRecord, error) {
	// Without any question_id the server would return every status.
	if len(questionIDs) == 0 {
		return []schema.StatusRecord{}, nil
	}

	var out []schema.StatusRecord
	q := url.Values{"user_id": {userID}, "question_id": questionIDs}
	if err := c.do(ctx, http.MethodGet, "/api/statuses", q, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list statuses for %s: %w", userID, err)
	}
	return out, nil
}

// GetStatus implements store.RemoteStore.
func (c *Client) GetStatus(ctx context.Context, userID, questionID string) (*schema.StatusRecord, error) {
	var out schema.StatusRecord
	if err := c.do(ctx, http.MethodGet, statusPath(userID, questionID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get status %s/%s: %w", userID, questionID, err)
	}
	return &out, nil
}

// InsertStatus implements store.RemoteStore. rec is updated with the
// stored record, including its assigned id.
func (c *Client) InsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := c.do(ctx, http.MethodPost, "/api/statuses", nil, rec, rec); err != nil {
		return fmt.Errorf("failed to insert status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}
	return nil
}

// UpdateStatus implements store.RemoteStore.
func (c *Client) UpdateStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := c.do(ctx, http.MethodPatch, "/api/statuses", nil, rec, rec); err != nil {
		return fmt.Errorf("failed to update status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}
	return nil
}

// UpsertStatus implements store.Upserter.
func (c *Client) UpsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := c.do(ctx, http.MethodPut, "/api/statuses", nil, rec, rec); err != nil {
		return fmt.Errorf("failed to upsert status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}
	return nil
}

// DeleteStatus removes a record. Deleting a missing record succeeds.
func (c *Client) DeleteStatus(ctx context.Context, userID, questionID string) error {
	if err := c.do(ctx, http.MethodDelete, statusPath(userID, questionID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete status %s/%s: %w", userID, questionID, err)
	}
	return nil
}

func statusPath(userID, questionID string) string {
	return "/api/statuses/" + url.PathEscape(userID) + "/" + url.PathEscape(questionID)
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an error, mapping statuses
// back to store sentinels.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	if body.Error == "" {
		body.Error = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, body.Error)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrConflict, body.Error)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", store.ErrClosed, body.Error)
	default:
		return fmt.Errorf("remote error (%d): %s", resp.StatusCode, body.Error)
	}
}

// Subscribe implements store.RemoteStore over the /ws endpoint.
func (c *Client) Subscribe(ctx context.Context, userID string) (store.Subscription, error) {
	u := *c.base
	u.Path = c.base.Path + "/ws"
	u.RawQuery = url.Values{"user_id": {userID}}.Encode()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe for %s: %w", userID, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &wsSubscription{
		conn:   conn,
		cancel: cancel,
		events: make(chan store.ChangeEvent, 100),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
		logger: c.logger,
	}
	go sub.readLoop(subCtx)
	return sub, nil
}

// wsSubscription is a store.Subscription reading from a WebSocket.
type wsSubscription struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	events chan store.ChangeEvent
	errors chan error
	done   chan struct{}
	once   sync.Once
	logger *log.Logger
}

func (s *wsSubscription) Events() <-chan store.ChangeEvent { return s.events }

func (s *wsSubscription) Errors() <-chan error { return s.errors }

// Close ends the subscription. It is safe to call more than once.
func (s *wsSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

// readLoop decodes frames until the connection closes. It is the only
// sender on events and errors and closes both on exit.
func (s *wsSubscription) readLoop(ctx context.Context) {
	defer close(s.events)
	defer close(s.errors)
	defer s.Close()

	for {
		var ev store.ChangeEvent
		err := wsjson.Read(ctx, s.conn, &ev)
		if err != nil {
			select {
			case <-s.done:
			default:
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
					s.logger.Printf("Subscription read failed: %v", err)
					s.errors <- err
				}
			}
			return
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
