package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	memoryx "github.com/tanpawarit/orbita/agent/memory"
	routerx "github.com/tanpawarit/orbita/agent/router"
	statex "github.com/tanpawarit/orbita/agent/state"
)

type fakeStore struct {
	mu        sync.Mutex
	loadState *statex.ConversationState
	loadErr   error
	saveErr   error
	saved     []*statex.ConversationState
}

func (f *fakeStore) Load(ctx context.Context, userID string) (*statex.ConversationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.loadState == nil {
		return nil, statex.ErrStateNotFound
	}
	return f.loadState.Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, st *statex.ConversationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, st.Clone())
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID string) error { return nil }

type memoryWrite struct {
	userID  string
	section memoryx.Section
	key     string
	value   string
}

type fakeMemoryStore struct {
	mu       sync.Mutex
	profile  *memoryx.Profile
	loadErr  error
	mergeErr error
	merged   []memoryWrite
}

func (f *fakeMemoryStore) Load(ctx context.Context, userID string) (*memoryx.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.profile == nil {
		return memoryx.NewProfile(userID), nil
	}
	return f.profile.Clone(), nil
}

func (f *fakeMemoryStore) Merge(ctx context.Context, userID string, sec memoryx.Section, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged = append(f.merged, memoryWrite{userID: userID, section: sec, key: key, value: value})
	return nil
}

type fakeClassifier struct {
	labels []contractx.Label
	err    error
}

func (f *fakeClassifier) Classify(context.Context, string, []contractx.Turn, string) ([]contractx.Label, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.labels, nil
}

type fakeAgent struct {
	result  contractx.AgentResult
	err     error
	calls   int
	lastReq contractx.AgentRequest
}

func (f *fakeAgent) Handle(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return contractx.AgentResult{}, f.err
	}
	return f.result, nil
}

type fakeRegistry struct {
	email    contractx.CapabilityAgent
	calendar contractx.CapabilityAgent
	budget   contractx.CapabilityAgent
}

func (f *fakeRegistry) Email() contractx.CapabilityAgent    { return f.email }
func (f *fakeRegistry) Calendar() contractx.CapabilityAgent { return f.calendar }
func (f *fakeRegistry) Budget() contractx.CapabilityAgent   { return f.budget }

type fakeCompleter struct {
	reply   string
	err     error
	calls   int
	lastReq contractx.AgentRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req contractx.AgentRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeExtractor struct {
	facts []memoryx.Fact
	err   error
}

func (f *fakeExtractor) Extract(context.Context, string) ([]memoryx.Fact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func newTestManager(
	t *testing.T,
	store statex.Store,
	memory memoryx.Store,
	classifier contractx.Classifier,
	registry contractx.Registry,
	direct contractx.Completer,
	extractor memoryx.Extractor,
) *Manager {
	t.Helper()

	router, err := routerx.New(classifier)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	m, err := New(store, memory, router, registry, direct, extractor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func emptyRegistry() *fakeRegistry {
	return &fakeRegistry{email: &fakeAgent{}, calendar: &fakeAgent{}, budget: &fakeAgent{}}
}

func TestHandleTurnInvalidInput(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeStore{}, &fakeMemoryStore{}, &fakeClassifier{}, emptyRegistry(), &fakeCompleter{}, nil)

	_, err := m.HandleTurn(context.Background(), "   ", "hello")
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	_, err = m.HandleTurn(context.Background(), "user-1", "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestHandleTurnRoutesToBudgetAgent(t *testing.T) {
	t.Parallel()

	profile := memoryx.NewProfile("user-1")
	if err := profile.Set(memoryx.SectionPreferences, "currency", "EUR"); err != nil {
		t.Fatalf("profile.Set() error = %v", err)
	}

	store := &fakeStore{}
	memStore := &fakeMemoryStore{profile: profile}
	budget := &fakeAgent{result: contractx.AgentResult{Reply: "Your balance is 1234.50 EUR."}}
	registry := &fakeRegistry{email: &fakeAgent{}, calendar: &fakeAgent{}, budget: budget}
	completer := &fakeCompleter{}

	m := newTestManager(t, store, memStore,
		&fakeClassifier{labels: []contractx.Label{{Domain: contractx.RouteBudget, Confidence: 0.9}}},
		registry, completer, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "how much money do I have?")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "Your balance is 1234.50 EUR." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if budget.calls != 1 {
		t.Fatalf("expected budget agent called once, got %d", budget.calls)
	}
	if completer.calls != 0 {
		t.Fatalf("direct completer must not run on a budget route, got %d calls", completer.calls)
	}
	if !strings.Contains(budget.lastReq.MemoryContext, "currency: EUR") {
		t.Fatalf("agent request missing memory context: %q", budget.lastReq.MemoryContext)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if len(saved.Turns) != 2 {
		t.Fatalf("expected user and assistant turns, got %d", len(saved.Turns))
	}
	if saved.Turns[0].Role != contractx.RoleUser || saved.Turns[1].Role != contractx.RoleAssistant {
		t.Fatalf("unexpected turn roles: %s, %s", saved.Turns[0].Role, saved.Turns[1].Role)
	}
	if saved.Route != "" {
		t.Fatalf("in-flight route must not be persisted, got %s", saved.Route)
	}
}

func TestHandleTurnManagerAnswersDirectly(t *testing.T) {
	t.Parallel()

	registry := emptyRegistry()
	completer := &fakeCompleter{reply: "Hello! How can I help?"}

	m := newTestManager(t, &fakeStore{}, &fakeMemoryStore{}, &fakeClassifier{}, registry, completer, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "hi there")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "Hello! How can I help?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if completer.calls != 1 {
		t.Fatalf("expected one direct completion, got %d", completer.calls)
	}
	for _, agent := range []*fakeAgent{registry.email.(*fakeAgent), registry.calendar.(*fakeAgent), registry.budget.(*fakeAgent)} {
		if agent.calls != 0 {
			t.Fatal("no capability agent may run on a manager route")
		}
	}
}

func TestHandleTurnMemoryOfflineDegrades(t *testing.T) {
	t.Parallel()

	memStore := &fakeMemoryStore{loadErr: errors.New("postgres down")}
	completer := &fakeCompleter{reply: "Sure."}

	m := newTestManager(t, &fakeStore{}, memStore, &fakeClassifier{}, emptyRegistry(), completer, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "thanks")
	if err != nil {
		t.Fatalf("turn must survive a memory outage, got %v", err)
	}
	if reply != "Sure." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if completer.lastReq.MemoryContext != "" {
		t.Fatalf("degraded turn must carry no memory context, got %q", completer.lastReq.MemoryContext)
	}
}

func TestHandleTurnAgentFailureBecomesApology(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	email := &fakeAgent{err: errors.New("imap timeout")}
	registry := &fakeRegistry{email: email, calendar: &fakeAgent{}, budget: &fakeAgent{}}

	m := newTestManager(t, store, &fakeMemoryStore{},
		&fakeClassifier{labels: []contractx.Label{{Domain: contractx.RouteEmail, Confidence: 0.9}}},
		registry, &fakeCompleter{}, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "check my inbox")
	if err != nil {
		t.Fatalf("agent failure must not fail the turn, got %v", err)
	}
	if !strings.Contains(reply, "Sorry") {
		t.Fatalf("expected an apology, got %q", reply)
	}
	if !strings.Contains(reply, "email") {
		t.Fatalf("apology must name the failed action, got %q", reply)
	}
	if len(store.saved) != 1 {
		t.Fatalf("degraded turn must still be persisted, got %d saves", len(store.saved))
	}
}

func TestHandleTurnClassifierFailureFallsBackToManager(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "Let me help with that."}

	m := newTestManager(t, &fakeStore{}, &fakeMemoryStore{},
		&fakeClassifier{err: errors.New("model offline")},
		emptyRegistry(), completer, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "check my calendar")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "Let me help with that." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if completer.calls != 1 {
		t.Fatalf("expected the manager to answer, got %d completer calls", completer.calls)
	}
}

func TestHandleTurnDirectCompletionFailureIsFatal(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeStore{}, &fakeMemoryStore{}, &fakeClassifier{}, emptyRegistry(),
		&fakeCompleter{err: errors.New("backend unreachable")}, nil)

	_, err := m.HandleTurn(context.Background(), "user-1", "hi")
	if !errors.Is(err, contractx.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestHandleTurnConversationLoadFailureIsFatal(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeStore{loadErr: errors.New("redis down")}, &fakeMemoryStore{},
		&fakeClassifier{}, emptyRegistry(), &fakeCompleter{reply: "hi"}, nil)

	_, err := m.HandleTurn(context.Background(), "user-1", "hi")
	if !errors.Is(err, contractx.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestHandleTurnSaveFailureStillReplies(t *testing.T) {
	t.Parallel()

	store := &fakeStore{saveErr: errors.New("disk full")}
	m := newTestManager(t, store, &fakeMemoryStore{}, &fakeClassifier{}, emptyRegistry(),
		&fakeCompleter{reply: "Done."}, nil)

	reply, err := m.HandleTurn(context.Background(), "user-1", "thanks")
	if err != nil {
		t.Fatalf("save failure must not fail the turn, got %v", err)
	}
	if reply != "Done." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleTurnAgentSeesHistory(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	prior := statex.NewConversationState("user-1", now)
	prior.Append(contractx.RoleUser, "any meetings today?", now)
	prior.Append(contractx.RoleAssistant, "You have two.", now)

	calendar := &fakeAgent{result: contractx.AgentResult{Reply: "Moved it to 3pm."}}
	registry := &fakeRegistry{email: &fakeAgent{}, calendar: calendar, budget: &fakeAgent{}}

	m := newTestManager(t, &fakeStore{loadState: prior}, &fakeMemoryStore{},
		&fakeClassifier{labels: []contractx.Label{{Domain: contractx.RouteCalendar, Confidence: 0.8}}},
		registry, &fakeCompleter{}, nil)

	if _, err := m.HandleTurn(context.Background(), "user-1", "move the first one to 3pm"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	// prior two turns plus the one just appended
	if len(calendar.lastReq.History) != 3 {
		t.Fatalf("expected 3 history turns, got %d", len(calendar.lastReq.History))
	}
	if calendar.lastReq.History[0].Content != "any meetings today?" {
		t.Fatalf("unexpected first history turn: %q", calendar.lastReq.History[0].Content)
	}
}

func TestHandleTurnPersistsExtractedFacts(t *testing.T) {
	t.Parallel()

	memStore := &fakeMemoryStore{}
	extractor := &fakeExtractor{facts: []memoryx.Fact{
		{Section: memoryx.SectionProfile, Key: "name", Value: "Alice"},
	}}

	m := newTestManager(t, &fakeStore{}, memStore, &fakeClassifier{}, emptyRegistry(),
		&fakeCompleter{reply: "Nice to meet you, Alice."}, extractor)

	if _, err := m.HandleTurn(context.Background(), "user-1", "my name is Alice"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	m.Drain()

	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	if len(memStore.merged) != 1 {
		t.Fatalf("expected one memory write, got %d", len(memStore.merged))
	}
	got := memStore.merged[0]
	if got.userID != "user-1" || got.section != memoryx.SectionProfile || got.key != "name" || got.value != "Alice" {
		t.Fatalf("unexpected memory write: %+v", got)
	}
}

func TestHandleTurnExtractionFailureIsSilent(t *testing.T) {
	t.Parallel()

	memStore := &fakeMemoryStore{}
	m := newTestManager(t, &fakeStore{}, memStore, &fakeClassifier{}, emptyRegistry(),
		&fakeCompleter{reply: "Okay."}, &fakeExtractor{err: errors.New("extractor offline")})

	reply, err := m.HandleTurn(context.Background(), "user-1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "Okay." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	m.Drain()

	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	if len(memStore.merged) != 0 {
		t.Fatalf("expected no memory writes, got %d", len(memStore.merged))
	}
}

func TestHandleTurnConcurrentUsers(t *testing.T) {
	t.Parallel()

	const turnsPerUser = 5
	users := []string{"user-a", "user-b"}

	store := statex.NewInMemoryStore()
	m := newTestManager(t, store, &fakeMemoryStore{}, &fakeClassifier{}, emptyRegistry(),
		&fakeCompleter{reply: "Hi."}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, len(users)*turnsPerUser)
	for _, user := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			for i := 1; i <= turnsPerUser; i++ {
				if _, err := m.HandleTurn(context.Background(), u, fmt.Sprintf("%s message %d", u, i)); err != nil {
					errs <- err
					return
				}
			}
		}(user)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent HandleTurn() error = %v", err)
	}

	// each user's history must be a strict user/assistant alternation of that
	// user's own messages, in send order
	for _, user := range users {
		st, err := store.Load(context.Background(), user)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", user, err)
		}
		if len(st.Turns) != 2*turnsPerUser {
			t.Fatalf("user=%s: expected %d turns, got %d", user, 2*turnsPerUser, len(st.Turns))
		}
		for i, turn := range st.Turns {
			if i%2 == 0 {
				want := fmt.Sprintf("%s message %d", user, i/2+1)
				if turn.Role != contractx.RoleUser || turn.Content != want {
					t.Fatalf("user=%s turn=%d: got role=%s content=%q, want user turn %q",
						user, i, turn.Role, turn.Content, want)
				}
				continue
			}
			if turn.Role != contractx.RoleAssistant || turn.Content != "Hi." {
				t.Fatalf("user=%s turn=%d: got role=%s content=%q, want assistant reply",
					user, i, turn.Role, turn.Content)
			}
		}
	}
}
