package settings

import (
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/fetcher"
	"github.com/Ramsey-B/clover/pkg/hivemind"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tabs"
)

type Dependencies struct {
	Backend       Backend
	Sessions      session.Store
	Builder       *hivemind.Registry
	Displayer     *platforms.Displayer
	Notifier      *notify.Notifier
	Publisher     events.Publisher
	Logger        ectologger.Logger
	GDriveEnabled bool
}

// Manager owns one Screen per user
type Manager struct {
	deps    Dependencies
	mu      sync.Mutex
	screens map[string]*Screen
}

func NewManager(deps Dependencies) *Manager {
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &Manager{
		deps:    deps,
		screens: make(map[string]*Screen),
	}
}

// Screen returns the user's screen, creating it on first use
func (m *Manager) Screen(userID string) *Screen {
	m.mu.Lock()
	defer m.mu.Unlock()

	if screen, ok := m.screens[userID]; ok {
		return screen
	}

	screen := &Screen{
		userID:    userID,
		backend:   m.deps.Backend,
		sessions:  m.deps.Sessions,
		tabs:      tabs.NewController(platforms.NewHivemindRegistry(m.deps.GDriveEnabled)),
		fetcher:   fetcher.NewFetcher(m.deps.Backend, m.deps.Logger),
		builder:   m.deps.Builder,
		displayer: m.deps.Displayer,
		notifier:  m.deps.Notifier,
		publisher: m.deps.Publisher,
		logger:    m.deps.Logger.WithField("user_id", userID),
	}
	m.screens[userID] = screen
	return screen
}

// Forget drops the user's screen, e.g. after the active community changed
func (m *Manager) Forget(userID string) {
	m.mu.Lock()
	delete(m.screens, userID)
	m.mu.Unlock()
}
