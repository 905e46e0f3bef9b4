// Package manager implements the orchestration layer: one entry point per
// user turn that loads state, routes, dispatches, composes the reply, and
// persists what changed.
package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	memoryx "github.com/tanpawarit/orbita/agent/memory"
	nodex "github.com/tanpawarit/orbita/agent/nodes/manager"
	routerx "github.com/tanpawarit/orbita/agent/router"
	statex "github.com/tanpawarit/orbita/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidUser    = nodex.ErrInvalidUser
)

// Manager owns the turn pipeline. Turns for the same user run strictly one
// at a time; turns for different users run concurrently.
type Manager struct {
	conversations statex.Store
	memory        memoryx.Store
	router        *routerx.Router
	agents        contractx.Registry
	direct        contractx.Completer
	extractor     memoryx.Extractor

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	tracer      trace.Tracer

	userLocks sync.Map // user id -> *sync.Mutex
	writes    sync.WaitGroup

	now func() time.Time
}

func New(
	conversations statex.Store,
	memory memoryx.Store,
	router *routerx.Router,
	agents contractx.Registry,
	direct contractx.Completer,
	extractor memoryx.Extractor,
) (*Manager, error) {
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if memory == nil {
		return nil, errors.New("memory store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if direct == nil {
		return nil, errors.New("direct completer is required")
	}
	if extractor == nil {
		extractor = memoryx.KeywordExtractor{}
	}

	m := &Manager{
		conversations: conversations,
		memory:        memory,
		router:        router,
		agents:        agents,
		direct:        direct,
		extractor:     extractor,
		tracer:        otel.Tracer("orbita/manager"),
		now:           time.Now,
	}

	graphRunner, err := m.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	m.graphRunner = graphRunner

	return m, nil
}

// HandleTurn runs one full turn for a user and returns the reply. Memory
// writes detected during the turn happen after the reply is available and
// never delay it; call Drain to wait for them.
func (m *Manager) HandleTurn(ctx context.Context, userID string, text string) (string, error) {
	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "Manager.HandleTurn", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	out, err := m.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID: userID,
		Text:   text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		return "", err
	}
	span.SetAttributes(attribute.String("route.decision", string(out.Route)))

	m.persistFactsAsync(userID, text)
	return out.Reply, nil
}

// Drain blocks until all in-flight memory writes finish.
func (m *Manager) Drain() {
	m.writes.Wait()
}

func (m *Manager) lockFor(userID string) *sync.Mutex {
	if v, ok := m.userLocks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// persistFactsAsync extracts durable facts from the user message and merges
// them into the memory store. Best effort: failures are logged, never
// surfaced to the user, and the reply is already on its way.
func (m *Manager) persistFactsAsync(userID, text string) {
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		facts, err := m.extractor.Extract(ctx, text)
		if err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("step", "persist_memory").
				Msg("fact extraction failed")
			return
		}

		for _, f := range facts {
			if err := m.memory.Merge(ctx, userID, f.Section, f.Key, f.Value); err != nil {
				log.Error().
					Err(err).
					Str("user_id", userID).
					Str("section", string(f.Section)).
					Str("key", f.Key).
					Str("step", "persist_memory").
					Msg("memory merge failed")
			}
		}
	}()
}
