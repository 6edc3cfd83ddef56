package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/backend"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/expressions"
	"github.com/Ramsey-B/clover/pkg/hivemind"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/session"
)

type fakeBackend struct {
	mu            sync.Mutex
	platforms     map[string][]models.Platform
	modules       []models.Module
	platformCalls []backend.Query
	patches       []models.PatchPayload
	patchErr      error

	// optional gates: the call signals started, then waits for release
	platformGates map[string]chan struct{}
	patchGate     chan struct{}
	started       chan string
}

func (f *fakeBackend) ListPlatforms(_ context.Context, query backend.Query) (*models.PlatformList, error) {
	f.mu.Lock()
	f.platformCalls = append(f.platformCalls, query)
	gate := f.platformGates[query.Name]
	results := f.platforms[query.Name]
	f.mu.Unlock()

	if gate != nil {
		f.started <- query.Name
		<-gate
	}
	return &models.PlatformList{Results: results}, nil
}

func (f *fakeBackend) ListModules(_ context.Context, _ backend.Query) (*models.ModuleList, error) {
	return &models.ModuleList{Results: f.modules}, nil
}

func (f *fakeBackend) PatchModule(_ context.Context, moduleID string, payload models.PatchPayload) (*models.Module, error) {
	if f.patchGate != nil {
		f.started <- "patch"
		<-f.patchGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, payload)
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	return &models.Module{ID: moduleID}, nil
}

type recordingPublisher struct {
	events []*events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt *events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

type fixture struct {
	backend   *fakeBackend
	sessions  *session.MemoryStore
	notifier  *notify.Notifier
	publisher *recordingPublisher
	manager   *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	disconnected := time.Now()

	f := &fixture{
		backend: &fakeBackend{
			platforms: map[string][]models.Platform{
				"discord": {
					{ID: "d-old", Name: models.PlatformDiscord, Community: "c1", DisconnectedAt: &disconnected},
					{ID: "d-1", Name: models.PlatformDiscord, Community: "c1", Metadata: map[string]any{"id": "g1", "icon": "i1", "name": "Guild"}},
				},
				"github": {
					{ID: "gh-1", Name: models.PlatformGithub, Community: "c1", Metadata: map[string]any{"account": map[string]any{"login": "octo"}}},
				},
			},
			modules: []models.Module{
				{ID: "m-other", Name: models.HivemindModuleName, Community: "c2"},
				{ID: "m-1", Name: models.HivemindModuleName, Community: "c1", Options: models.ModuleOptions{
					Platforms: []models.ModulePlatform{
						{Platform: "gh-1", Name: models.PlatformGithub, Metadata: map[string]any{"activated": true}},
					},
				}},
			},
		},
		sessions:  session.NewMemoryStore(time.Hour),
		notifier:  notify.NewNotifier(10, logger),
		publisher: &recordingPublisher{},
	}

	f.manager = NewManager(Dependencies{
		Backend:   f.backend,
		Sessions:  f.sessions,
		Builder:   hivemind.NewRegistry(),
		Displayer: platforms.NewDisplayer(expressions.NewEvaluator(), "https://cdn.discordapp.com/", logger),
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Logger:    logger,
	})

	require.NoError(t, f.sessions.SetCommunity(context.Background(), "u1", &models.Community{ID: "c1"}))
	return f
}

func TestSelectTab_FetchesTabPlatform(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")

	view, err := screen.SelectTab(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []backend.Query{{Name: "github", Community: "c1"}}, f.backend.platformCalls)
	assert.Equal(t, "Github", view.Active.Label)
	require.Len(t, view.Platforms, 1)
	assert.Equal(t, "octo", view.Platforms[0].Label)
	require.NotNil(t, view.Module)
	assert.Equal(t, "m-1", view.Module.ID)
	assert.Equal(t, models.GithubConfig{Activated: true}, view.Config)
	assert.True(t, view.CanSave)
}

func TestSelectTab_DisabledTabDoesNotFetch(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")

	_, err := screen.SelectTab(context.Background(), 4)
	assert.ErrorIs(t, err, platforms.ErrTabDisabled)

	_, err = screen.SelectTab(context.Background(), 42)
	assert.ErrorIs(t, err, platforms.ErrTabOutOfRange)

	assert.Empty(t, f.backend.platformCalls)
	assert.Equal(t, "Discord", screen.View().Active.Label)
}

func TestLoad_NoCommunity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sessions.DeleteCommunity(context.Background(), "u1"))
	screen := f.manager.Screen("u1")

	view := screen.Load(context.Background())

	assert.Empty(t, f.backend.platformCalls)
	assert.Empty(t, view.Platforms)
	assert.Nil(t, view.Module)
	assert.False(t, view.CanSave)

	outcome, _ := screen.Save(context.Background(), []byte(`{"activated":true}`))
	assert.Equal(t, notify.StatusSkipped, outcome.Status)
	assert.Empty(t, f.backend.patches)
}

func TestLoad_DiscordDefaultsToFirstActiveServer(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")

	view := screen.Load(context.Background())

	assert.Equal(t, 1, view.Connection)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "d-1", view.Selected.ID)
	assert.Equal(t, "https://cdn.discordapp.com/icons/g1/i1", view.Selected.AvatarURL)
	// no fromDate stored yet
	assert.False(t, view.CanSave)
}

func TestSelectConnection(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")
	screen.Load(context.Background())

	view, err := screen.SelectConnection(0)
	require.NoError(t, err)
	assert.Equal(t, "d-old", view.Selected.ID)

	_, err = screen.SelectConnection(2)
	assert.ErrorIs(t, err, ErrConnectionOutOfRange)
}

func TestSave_PatchesSelectedPlatform(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")
	_, err := screen.SelectTab(context.Background(), 1)
	require.NoError(t, err)

	outcome, view := screen.Save(context.Background(), []byte(`{"activated":false}`))

	assert.Equal(t, notify.Success(MessageSaved), outcome)
	require.Len(t, f.backend.patches, 1)
	assert.Equal(t, models.PatchPayload{Platforms: []models.ModulePlatform{
		{Platform: "gh-1", Name: models.PlatformGithub, Metadata: map[string]any{"activated": false}},
	}}, f.backend.patches[0])

	// re-fetched after the patch
	assert.Len(t, f.backend.platformCalls, 2)
	assert.False(t, view.Saving)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeModulePatched, f.publisher.events[0].Type)
	assert.Equal(t, "m-1", f.publisher.events[0].ModuleID)

	notifications := f.notifier.Drain("u1")
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.SeveritySuccess, notifications[0].Severity)
	assert.Equal(t, MessageSaved, notifications[0].Message)
}

func TestSave_InvalidConfigNeverReachesBackend(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")
	screen.Load(context.Background())

	outcome, _ := screen.Save(context.Background(), []byte(`{"learning":{"selectedChannels":["ch1"],"fromDate":""}}`))

	assert.Equal(t, notify.StatusValidation, outcome.Status)
	assert.Empty(t, f.backend.patches)

	notifications := f.notifier.Drain("u1")
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.SeverityWarning, notifications[0].Severity)
}

func TestSave_NoModule(t *testing.T) {
	f := newFixture(t)
	f.backend.modules = nil
	screen := f.manager.Screen("u1")
	screen.Load(context.Background())

	outcome, _ := screen.Save(context.Background(), []byte(`{"learning":{"fromDate":"2024-01-01"}}`))

	assert.Equal(t, notify.Validation(MessageNoModule), outcome)
	assert.Empty(t, f.backend.patches)
}

func TestSave_NoPlatform(t *testing.T) {
	f := newFixture(t)
	screen := f.manager.Screen("u1")
	_, err := screen.SelectTab(context.Background(), 2)
	require.NoError(t, err)

	outcome, _ := screen.Save(context.Background(), []byte(`{"databaseIds":[],"pageIds":[]}`))

	assert.Equal(t, notify.Validation(MessageNoPlatform), outcome)
	assert.Empty(t, f.backend.patches)
}

func TestSave_BackendFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.backend.patchErr = errors.New("boom")
	screen := f.manager.Screen("u1")
	screen.Load(context.Background())

	outcome, view := screen.Save(context.Background(), []byte(`{"learning":{"selectedChannels":["ch1"],"fromDate":"2024-01-01T00:00:00Z"},"answering":{"selectedChannels":[]}}`))

	assert.Equal(t, notify.Failure(MessageSaveFailed), outcome)
	assert.False(t, view.Saving)
	assert.Empty(t, f.publisher.events)

	notifications := f.notifier.Drain("u1")
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.SeverityError, notifications[0].Severity)
}

func TestView_PrefillFollowsSelectedConnection(t *testing.T) {
	f := newFixture(t)
	f.backend.platforms["discord"] = []models.Platform{
		{ID: "d-1", Name: models.PlatformDiscord, Community: "c1"},
		{ID: "d-2", Name: models.PlatformDiscord, Community: "c1"},
		{ID: "d-3", Name: models.PlatformDiscord, Community: "c1"},
	}
	f.backend.modules = []models.Module{
		{ID: "m-1", Name: models.HivemindModuleName, Community: "c1", Options: models.ModuleOptions{
			Platforms: []models.ModulePlatform{
				{Platform: "d-1", Name: models.PlatformDiscord, Metadata: map[string]any{
					"learning":  map[string]any{"selectedChannels": []any{"a"}, "fromDate": "2024-01-01"},
					"answering": map[string]any{"selectedChannels": []any{}},
				}},
				{Platform: "d-2", Name: models.PlatformDiscord, Metadata: map[string]any{
					"learning":  map[string]any{"selectedChannels": []any{"b", "c"}, "fromDate": "2025-06-01"},
					"answering": map[string]any{"selectedChannels": []any{"b"}},
				}},
			},
		}},
	}
	screen := f.manager.Screen("u1")

	view := screen.Load(context.Background())
	require.Equal(t, "d-1", view.Selected.ID)
	first, ok := view.Config.(models.DiscordConfig)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", first.Learning.FromDate)
	assert.Equal(t, []string{"a"}, first.Learning.SelectedChannels)

	view, err := screen.SelectConnection(1)
	require.NoError(t, err)
	require.Equal(t, "d-2", view.Selected.ID)
	second, ok := view.Config.(models.DiscordConfig)
	require.True(t, ok)
	assert.Equal(t, "2025-06-01", second.Learning.FromDate)
	assert.Equal(t, []string{"b", "c"}, second.Learning.SelectedChannels)
	assert.Equal(t, []string{"b"}, second.Answering.SelectedChannels)
	assert.True(t, view.CanSave)

	// nothing stored for this server yet
	view, err = screen.SelectConnection(2)
	require.NoError(t, err)
	third, ok := view.Config.(models.DiscordConfig)
	require.True(t, ok)
	assert.Empty(t, third.Learning.FromDate)
	assert.Empty(t, third.Learning.SelectedChannels)
	assert.False(t, view.CanSave)
}

func TestSave_ConcurrentSaveIsRejected(t *testing.T) {
	f := newFixture(t)
	f.backend.patchGate = make(chan struct{})
	f.backend.started = make(chan string, 1)
	screen := f.manager.Screen("u1")
	_, err := screen.SelectTab(context.Background(), 1)
	require.NoError(t, err)

	first := make(chan notify.Outcome)
	go func() {
		outcome, _ := screen.Save(context.Background(), []byte(`{"activated":true}`))
		first <- outcome
	}()
	<-f.backend.started
	assert.True(t, screen.View().Saving)

	outcome, view := screen.Save(context.Background(), []byte(`{"activated":false}`))
	assert.Equal(t, notify.Validation(MessageSaving), outcome)
	assert.True(t, view.Saving)

	close(f.backend.patchGate)
	assert.Equal(t, notify.Success(MessageSaved), <-first)

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	require.Len(t, f.backend.patches, 1)
	assert.Equal(t, map[string]any{"activated": true}, f.backend.patches[0].Platforms[0].Metadata)
}

func TestSelectTab_SlowResponseForEarlierTabIsDropped(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.backend.platformGates = map[string]chan struct{}{"github": release}
	f.backend.started = make(chan string, 1)
	f.backend.platforms["notion"] = []models.Platform{
		{ID: "n-1", Name: models.PlatformNotion, Community: "c1"},
	}
	screen := f.manager.Screen("u1")

	slow := make(chan View)
	go func() {
		view, _ := screen.SelectTab(context.Background(), 1)
		slow <- view
	}()
	<-f.backend.started

	view, err := screen.SelectTab(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformNotion, view.Active.Platform)

	close(release)
	<-slow

	view = screen.View()
	assert.Equal(t, models.PlatformNotion, view.Active.Platform)
	require.Len(t, view.Platforms, 1)
	assert.Equal(t, "n-1", view.Platforms[0].ID)
	assert.Equal(t, 0, view.Connection)
	assert.False(t, view.Loading)
}

func TestManager_ScreenPerUser(t *testing.T) {
	f := newFixture(t)

	a := f.manager.Screen("u1")
	assert.Same(t, a, f.manager.Screen("u1"))
	assert.NotSame(t, a, f.manager.Screen("u2"))

	f.manager.Forget("u1")
	assert.NotSame(t, a, f.manager.Screen("u1"))
}
