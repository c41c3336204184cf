package funnel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	redisrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
)

func TestStartRegistersUserAndCountsEntry(t *testing.T) {
	users := newFakeUsers()
	interactions := &fakeInteractionLog{}
	metrics := &fakeMetricsStore{}
	svc := newTestService(users, newFakeStates(), newFakeCache(), interactions, metrics, &fakeRegistrar{}, nil)

	user, err := svc.Start(context.Background(), 101, "Ada", "ada_trades")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if user.UserID != 101 || user.FirstName != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if len(interactions.items) != 1 || interactions.items[0].kind != "start_verification" {
		t.Fatalf("expected a start_verification interaction, got %+v", interactions.items)
	}
	if len(metrics.deltas) != 1 || metrics.deltas[0].Starts != 1 {
		t.Fatalf("expected a single start counted, got %+v", metrics.deltas)
	}
}

func TestStartRefusesWhenRateLimited(t *testing.T) {
	limiter := &fakeLimiter{retryAfter: 30}
	svc := newTestService(newFakeUsers(), newFakeStates(), newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, limiter)

	_, err := svc.Start(context.Background(), 102, "Bea", "")
	tooFast, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tooFast.RetryAfter() != 30 {
		t.Fatalf("expected retry after 30s, got %d", tooFast.RetryAfter())
	}
	if len(limiter.actions) != 1 || limiter.actions[0] != "start" {
		t.Fatalf("expected the start action limited, got %v", limiter.actions)
	}
}

func TestStartFailsClosedOnLimiterOutage(t *testing.T) {
	limiter := &fakeLimiter{allowed: true, err: errors.New("redis down")}
	svc := newTestService(newFakeUsers(), newFakeStates(), newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, limiter)

	_, err := svc.Start(context.Background(), 103, "Cal", "")
	if err == nil {
		t.Fatalf("expected an error when the limiter store is down")
	}
	if _, ok := IsTooFast(err); ok {
		t.Fatalf("limiter outage must not read as throttling")
	}
}

func TestRegisteredMovesConversationToUIDPrompt(t *testing.T) {
	states := newFakeStates()
	interactions := &fakeInteractionLog{}
	svc := newTestService(newFakeUsers(), states, newFakeCache(), interactions, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if err := svc.Registered(context.Background(), 201); err != nil {
		t.Fatalf("registered: %v", err)
	}

	state := states.get(201)
	if state.Stage != enums.ConversationStageAwaitingUID {
		t.Fatalf("expected awaiting_uid stage, got %s", state.Stage)
	}
	if state.VIP {
		t.Fatalf("plain registration must not flag VIP")
	}
	if len(interactions.items) != 1 || interactions.items[0].kind != "registered_confirmation" {
		t.Fatalf("expected a registered_confirmation interaction, got %+v", interactions.items)
	}
}

func TestVIPContinueFlagsConversation(t *testing.T) {
	states := newFakeStates()
	svc := newTestService(newFakeUsers(), states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if err := svc.VIPContinue(context.Background(), 202); err != nil {
		t.Fatalf("vip continue: %v", err)
	}

	state := states.get(202)
	if state.Stage != enums.ConversationStageAwaitingUID || !state.VIP {
		t.Fatalf("expected VIP awaiting_uid stage, got %+v", state)
	}
}

func TestSubmitUIDAdvancesToScreenshotPrompt(t *testing.T) {
	states := newFakeStates()
	states.set(model.ConversationState{UserID: 301, Stage: enums.ConversationStageAwaitingUID, VIP: true})
	registrar := &fakeRegistrar{}
	svc := newTestService(newFakeUsers(), states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, registrar, nil)

	uid, err := svc.SubmitUID(context.Background(), 301, "  87654321 ")
	if err != nil {
		t.Fatalf("submit uid: %v", err)
	}
	if uid != "87654321" {
		t.Fatalf("expected normalized uid, got %q", uid)
	}

	state := states.get(301)
	if state.Stage != enums.ConversationStageAwaitingScreenshot {
		t.Fatalf("expected awaiting_screenshot stage, got %s", state.Stage)
	}
	if state.UID != "87654321" {
		t.Fatalf("expected uid carried on the state, got %q", state.UID)
	}
	if !state.VIP {
		t.Fatalf("VIP flag must survive the uid step")
	}
}

func TestSubmitUIDWorksWithoutPriorState(t *testing.T) {
	states := newFakeStates()
	svc := newTestService(newFakeUsers(), states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if _, err := svc.SubmitUID(context.Background(), 302, "12345678"); err != nil {
		t.Fatalf("submit uid without state: %v", err)
	}

	state := states.get(302)
	if state.Stage != enums.ConversationStageAwaitingScreenshot || state.VIP {
		t.Fatalf("expected plain awaiting_screenshot stage, got %+v", state)
	}
}

func TestSubmitUIDPropagatesRegistrarRejection(t *testing.T) {
	rejection := errors.New("invalid broker uid")
	registrar := &fakeRegistrar{err: rejection}
	states := newFakeStates()
	svc := newTestService(newFakeUsers(), states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, registrar, nil)

	if _, err := svc.SubmitUID(context.Background(), 303, "??"); !errors.Is(err, rejection) {
		t.Fatalf("expected registrar rejection to surface, got %v", err)
	}
	if len(states.states) != 0 {
		t.Fatalf("rejected uid must not advance the conversation")
	}
}

func TestFlowStateDefaultsToIdle(t *testing.T) {
	svc := newTestService(newFakeUsers(), newFakeStates(), newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	state, err := svc.FlowState(context.Background(), 401)
	if err != nil {
		t.Fatalf("flow state: %v", err)
	}
	if state.UserID != 401 || state.Stage != enums.ConversationStageIdle {
		t.Fatalf("expected idle state, got %+v", state)
	}
}

func TestFinishSubmissionClearsConversation(t *testing.T) {
	states := newFakeStates()
	states.set(model.ConversationState{UserID: 402, Stage: enums.ConversationStageAwaitingScreenshot, UID: "12345678"})
	svc := newTestService(newFakeUsers(), states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if err := svc.FinishSubmission(context.Background(), 402); err != nil {
		t.Fatalf("finish submission: %v", err)
	}
	if _, ok := states.states[402]; ok {
		t.Fatalf("expected conversation state cleared")
	}
}

func TestOptOutDeactivatesAndClearsConversation(t *testing.T) {
	users := newFakeUsers(model.User{UserID: 501, FirstName: "Dee", IsActive: true})
	states := newFakeStates()
	states.set(model.ConversationState{UserID: 501, Stage: enums.ConversationStageAwaitingUID})
	svc := newTestService(users, states, newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if err := svc.OptOut(context.Background(), 501); err != nil {
		t.Fatalf("opt out: %v", err)
	}
	if users.get(501).IsActive {
		t.Fatalf("expected user deactivated")
	}
	if _, ok := states.states[501]; ok {
		t.Fatalf("expected conversation state cleared")
	}
}

func TestProfileServesSnapshotOnRepeatReads(t *testing.T) {
	users := newFakeUsers(model.User{UserID: 601, FirstName: "Eve", IsActive: true})
	cache := newFakeCache()
	svc := newTestService(users, newFakeStates(), cache, &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	first, err := svc.Profile(context.Background(), 601)
	if err != nil {
		t.Fatalf("first profile read: %v", err)
	}
	if first.FirstName != "Eve" {
		t.Fatalf("unexpected user: %+v", first)
	}
	if users.getCalls != 1 {
		t.Fatalf("expected one store read, got %d", users.getCalls)
	}

	second, err := svc.Profile(context.Background(), 601)
	if err != nil {
		t.Fatalf("second profile read: %v", err)
	}
	if second.FirstName != "Eve" {
		t.Fatalf("unexpected cached user: %+v", second)
	}
	if users.getCalls != 1 {
		t.Fatalf("expected the second read served from cache, store reads %d", users.getCalls)
	}
}

func TestProfileSurvivesCacheOutage(t *testing.T) {
	users := newFakeUsers(model.User{UserID: 602, FirstName: "Fay", IsActive: true})
	cache := newFakeCache()
	cache.err = errors.New("redis down")
	svc := newTestService(users, newFakeStates(), cache, &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	user, err := svc.Profile(context.Background(), 602)
	if err != nil {
		t.Fatalf("profile with cache outage: %v", err)
	}
	if user.FirstName != "Fay" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	svc := newTestService(newFakeUsers(), newFakeStates(), newFakeCache(), &fakeInteractionLog{}, &fakeMetricsStore{}, &fakeRegistrar{}, nil)

	if _, err := svc.Start(context.Background(), 0, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func newTestService(users *fakeUsers, states *fakeStates, cache *fakeCache, interactions *fakeInteractionLog, metrics *fakeMetricsStore, registrar *fakeRegistrar, limiter RateLimiter) *Service {
	svc := NewService(Dependencies{
		Users:        users,
		States:       states,
		Cache:        cache,
		Interactions: interactions,
		Metrics:      metrics,
		Registrar:    registrar,
		RateLimiter:  limiter,
	}, Config{}, nil)
	svc.now = func() time.Time {
		return time.Date(2026, time.July, 4, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

type fakeUsers struct {
	users    map[int64]*model.User
	getCalls int
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*model.User, len(users))}
	for i := range users {
		user := users[i]
		f.users[user.UserID] = &user
	}
	return f
}

func (f *fakeUsers) get(userID int64) model.User {
	return *f.users[userID]
}

func (f *fakeUsers) Get(_ context.Context, userID int64) (model.User, error) {
	f.getCalls++
	user, ok := f.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return *user, nil
}

func (f *fakeUsers) Upsert(_ context.Context, userID int64, firstName, username string) (model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		user = &model.User{
			UserID:             userID,
			RegistrationStatus: enums.RegistrationStatusNotStarted,
			IsActive:           true,
		}
		f.users[userID] = user
	}
	user.FirstName = firstName
	user.Username = username
	user.LastInteraction = time.Now().UTC()
	return *user, nil
}

func (f *fakeUsers) Deactivate(_ context.Context, userID int64) error {
	user, ok := f.users[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	user.IsActive = false
	return nil
}

type fakeStates struct {
	states map[int64]model.ConversationState
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[int64]model.ConversationState)}
}

func (f *fakeStates) set(state model.ConversationState) {
	f.states[state.UserID] = state
}

func (f *fakeStates) get(userID int64) model.ConversationState {
	return f.states[userID]
}

func (f *fakeStates) Set(_ context.Context, state model.ConversationState, _ time.Duration) error {
	f.states[state.UserID] = state
	return nil
}

func (f *fakeStates) Get(_ context.Context, userID int64) (model.ConversationState, error) {
	state, ok := f.states[userID]
	if !ok {
		return model.ConversationState{}, redisrepo.ErrStateNotFound
	}
	return state, nil
}

func (f *fakeStates) Clear(_ context.Context, userID int64) error {
	delete(f.states, userID)
	return nil
}

type fakeCache struct {
	users map[int64]model.User
	err   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{users: make(map[int64]model.User)}
}

func (f *fakeCache) GetUser(_ context.Context, userID int64) (model.User, bool, error) {
	if f.err != nil {
		return model.User{}, false, f.err
	}
	user, ok := f.users[userID]
	return user, ok, nil
}

func (f *fakeCache) SetUser(_ context.Context, user model.User, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.users[user.UserID] = user
	return nil
}

func (f *fakeCache) InvalidateUser(_ context.Context, userID int64) error {
	if f.err != nil {
		return f.err
	}
	delete(f.users, userID)
	return nil
}

type loggedInteraction struct {
	userID int64
	kind   string
	data   string
}

type fakeInteractionLog struct {
	items []loggedInteraction
}

func (f *fakeInteractionLog) Insert(_ context.Context, userID int64, interactionType, data string) error {
	f.items = append(f.items, loggedInteraction{userID: userID, kind: interactionType, data: data})
	return nil
}

type fakeMetricsStore struct {
	deltas []pgrepo.DailyMetricsDelta
}

func (f *fakeMetricsStore) Increment(_ context.Context, _ time.Time, delta pgrepo.DailyMetricsDelta) error {
	f.deltas = append(f.deltas, delta)
	return nil
}

type fakeRegistrar struct {
	err error
}

func (f *fakeRegistrar) RegisterUID(_ context.Context, _ int64, raw string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSpace(raw), nil
}

type fakeLimiter struct {
	retryAfter int64
	allowed    bool
	err        error
	actions    []string
}

func (f *fakeLimiter) Allow(_ context.Context, action string, _ int64) (int64, bool, error) {
	f.actions = append(f.actions, action)
	if f.err != nil {
		return 0, false, f.err
	}
	return f.retryAfter, f.allowed, nil
}
