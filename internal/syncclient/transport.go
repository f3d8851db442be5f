package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

const maxEventSize = 4 << 20

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
}

// HTTPTransport talks to the REST API and the board websocket with one
// bearer token.
type HTTPTransport struct {
	base   *url.URL
	token  string
	client *http.Client
}

func NewHTTPTransport(baseURL, token string) (*HTTPTransport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("syncclient.NewHTTPTransport: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("syncclient.NewHTTPTransport: unsupported scheme %q", u.Scheme)
	}
	return &HTTPTransport{
		base:   u,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// CloseIdleConnections releases pooled keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *HTTPTransport) Subscribe(ctx context.Context, boardID uuid.UUID) (Stream, error) {
	u := *t.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/boards/" + boardID.String()

	// The shared client's timeout would cut the stream.
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + t.token}},
	})
	if err != nil {
		return nil, fmt.Errorf("syncclient.HTTPTransport.Subscribe: %w", err)
	}
	conn.SetReadLimit(maxEventSize)
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Next(ctx context.Context) (domain.BoardEvent, error) {
	var ev domain.BoardEvent
	if err := wsjson.Read(ctx, s.conn, &ev); err != nil {
		return domain.BoardEvent{}, err
	}
	return ev, nil
}

func (s *wsStream) Close() error {
	return s.conn.CloseNow()
}

type createRequest struct {
	ID     uuid.UUID     `json:"id"`
	Title  string        `json:"title"`
	Status domain.Status `json:"status"`
	Order  float64       `json:"order"`
}

type moveRequest struct {
	Status domain.Status `json:"status"`
	Order  float64       `json:"order"`
}

type mutation struct {
	Task    *domain.Task  `json:"task"`
	Tasks   []domain.Task `json:"tasks"`
	Changed bool          `json:"changed"`
}

func (t *HTTPTransport) Create(ctx context.Context, boardID uuid.UUID, task domain.Task, order float64) ([]domain.Task, error) {
	var m mutation
	err := t.do(ctx, http.MethodPost, t.tasksPath(boardID), createRequest{
		ID:     task.ID,
		Title:  task.Title,
		Status: task.Status,
		Order:  order,
	}, &m)
	if err != nil {
		return nil, fmt.Errorf("syncclient.HTTPTransport.Create: %w", err)
	}
	return m.records(), nil
}

func (t *HTTPTransport) Move(ctx context.Context, boardID, id uuid.UUID, status domain.Status, order float64) ([]domain.Task, error) {
	var m mutation
	err := t.do(ctx, http.MethodPut, t.tasksPath(boardID)+"/"+id.String()+"/position", moveRequest{
		Status: status,
		Order:  order,
	}, &m)
	if err != nil {
		return nil, fmt.Errorf("syncclient.HTTPTransport.Move: %w", err)
	}
	return m.records(), nil
}

func (t *HTTPTransport) Delete(ctx context.Context, boardID, id uuid.UUID) error {
	if err := t.do(ctx, http.MethodDelete, t.tasksPath(boardID)+"/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("syncclient.HTTPTransport.Delete: %w", err)
	}
	return nil
}

func (m mutation) records() []domain.Task {
	if len(m.Tasks) > 0 {
		return m.Tasks
	}
	if m.Task != nil && m.Changed {
		return []domain.Task{*m.Task}
	}
	return nil
}

func (t *HTTPTransport) tasksPath(boardID uuid.UUID) string {
	return "/api/v1/boards/" + boardID.String() + "/tasks"
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := *t.base
	u.Path += path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// readStatusError parses an RFC 9457 problem body when there is one.
func readStatusError(resp *http.Response) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &StatusError{Code: resp.StatusCode}
	if err := json.Unmarshal(raw, &problem); err == nil {
		se.Detail = problem.Detail
		if se.Detail == "" {
			se.Detail = problem.Title
		}
	}
	return se
}
