package syncclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
)

// ErrStale is returned for intents issued while the board is not live.
var ErrStale = errors.New("syncclient: board is not live")

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLive
	PhaseStale
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLive:
		return "live"
	case PhaseStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Stream is one live board subscription.
type Stream interface {
	Next(ctx context.Context) (domain.BoardEvent, error)
	Close() error
}

// Transport reaches the task store. Mutations return every record the store
// changed.
type Transport interface {
	Subscribe(ctx context.Context, boardID uuid.UUID) (Stream, error)
	Create(ctx context.Context, boardID uuid.UUID, t domain.Task, order float64) ([]domain.Task, error)
	Move(ctx context.Context, boardID, id uuid.UUID, status domain.Status, order float64) ([]domain.Task, error)
	Delete(ctx context.Context, boardID, id uuid.UUID) error
}

// View is what a renderer draws. Failure holds the last rejected mutation
// until it is dismissed or another intent is issued.
type View struct {
	Phase    Phase
	Tasks    []domain.Task
	Editable bool
	Failure  error
	Pending  int
}

// Client mirrors one board. It satisfies board.Source, board.Gate and
// board.Dispatcher so a board.Controller can run on top of it.
type Client struct {
	transport Transport
	boardID   uuid.UUID

	MinBackoff time.Duration
	MaxBackoff time.Duration

	mu       sync.Mutex
	phase    Phase
	auth     Authoritative
	pending  []board.Intent
	editable bool
	failure  error

	wake    chan struct{}
	updates chan struct{}
}

func New(transport Transport, boardID uuid.UUID) *Client {
	return &Client{
		transport:  transport,
		boardID:    boardID,
		MinBackoff: 250 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		auth:       NewAuthoritative(),
		wake:       make(chan struct{}, 1),
		updates:    make(chan struct{}, 1),
	}
}

func (c *Client) BoardID() uuid.UUID { return c.boardID }

// Updates signals after every change to the view. Signals coalesce.
func (c *Client) Updates() <-chan struct{} { return c.updates }

func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Phase:    c.phase,
		Tasks:    Reconcile(c.auth, c.pending),
		Editable: c.editable,
		Failure:  c.failure,
		Pending:  len(c.pending),
	}
}

func (c *Client) Tasks() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Reconcile(c.auth, c.pending)
}

func (c *Client) CanEdit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editable
}

// Dispatch queues an intent behind any earlier ones and returns at once.
func (c *Client) Dispatch(in board.Intent) error {
	c.mu.Lock()
	if c.phase != PhaseLive {
		c.mu.Unlock()
		return ErrStale
	}
	c.pending = append(c.pending, in)
	c.failure = nil
	c.mu.Unlock()

	signal(c.wake)
	signal(c.updates)
	return nil
}

func (c *Client) DismissFailure() {
	c.mu.Lock()
	c.failure = nil
	c.mu.Unlock()
	signal(c.updates)
}

// Run follows the board and drains the outbox until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.follow(ctx) })
	g.Go(func() error { return c.drain(ctx) })
	return g.Wait()
}

func (c *Client) follow(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.MinBackoff
	bo.MaxInterval = c.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		err := c.stream(ctx, bo)
		if ctx.Err() != nil {
			return nil
		}
		c.lost()

		wait := bo.NextBackOff()
		log.Warn().Err(err).Str("board_id", c.boardID.String()).Dur("retry_in", wait).Msg("board stream lost")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) stream(ctx context.Context, bo backoff.BackOff) error {
	s, err := c.transport.Subscribe(ctx, c.boardID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.Close()

	for {
		ev, err := s.Next(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if ev.BoardID != uuid.Nil && ev.BoardID != c.boardID {
			continue
		}
		if ev.Type == domain.EventSnapshot {
			bo.Reset()
			log.Debug().Str("board_id", c.boardID.String()).Int("tasks", len(ev.Tasks)).Msg("board snapshot")
		}
		c.apply(ev)
	}
}

func (c *Client) apply(ev domain.BoardEvent) {
	c.mu.Lock()
	c.auth = ApplyEvent(c.auth, ev)
	if ev.Type == domain.EventSnapshot {
		c.phase = PhaseLive
		c.editable = ev.Editable
	}
	c.mu.Unlock()
	signal(c.updates)
}

func (c *Client) lost() {
	c.mu.Lock()
	if c.phase == PhaseLive {
		c.phase = PhaseStale
	}
	c.mu.Unlock()
	signal(c.updates)
}

// drain sends queued intents one at a time, in the order they were issued.
func (c *Client) drain(ctx context.Context) error {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil
			case <-c.wake:
				continue
			}
		}
		in := c.pending[0]
		c.mu.Unlock()

		settle, err := c.send(ctx, in)
		if ctx.Err() != nil {
			return nil
		}

		c.mu.Lock()
		if err != nil {
			c.failure = err
			log.Warn().Err(err).Str("intent", in.Kind.String()).Str("task_id", in.TaskID.String()).Msg("mutation rejected")
		} else {
			c.auth = settle(c.auth)
		}
		c.pending = c.pending[1:]
		c.mu.Unlock()
		signal(c.updates)
	}
}

// send performs one intent and returns how to fold the result into the
// authoritative state.
func (c *Client) send(ctx context.Context, in board.Intent) (func(Authoritative) Authoritative, error) {
	switch in.Kind {
	case board.IntentCreate:
		tasks, err := c.transport.Create(ctx, c.boardID, in.Task, in.Order)
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", in.Task.Title, err)
		}
		return func(a Authoritative) Authoritative { return Confirm(a, tasks) }, nil
	case board.IntentMove:
		tasks, err := c.transport.Move(ctx, c.boardID, in.TaskID, in.Status, in.Order)
		if err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		return func(a Authoritative) Authoritative { return Confirm(a, tasks) }, nil
	case board.IntentDelete:
		if err := c.transport.Delete(ctx, c.boardID, in.TaskID); err != nil {
			return nil, fmt.Errorf("delete: %w", err)
		}
		return func(a Authoritative) Authoritative { return Burned(a, in.TaskID) }, nil
	default:
		return nil, fmt.Errorf("unknown intent %s", in.Kind)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
