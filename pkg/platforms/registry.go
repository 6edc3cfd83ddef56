package platforms

import (
	"errors"
	"fmt"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	// ContextHivemind is the tab strip of the Hivemind settings screen
	ContextHivemind = "hivemind"
	// ContextCommunity is the tab strip of the community platforms screen
	ContextCommunity = "community"
)

var (
	ErrTabOutOfRange  = errors.New("tab index out of range")
	ErrTabDisabled    = errors.New("tab is disabled")
	ErrUnknownContext = errors.New("unknown registry context")
)

// Tab is one entry of a platform tab strip
type Tab struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	// Platform is the backend platform fetched when the tab is active, empty when none exists yet
	Platform   models.PlatformName `json:"platform,omitempty"`
	Enabled    bool                `json:"enabled"`
	ComingSoon bool                `json:"comingSoon"`
}

type entry struct {
	label    string
	platform models.PlatformName
}

// order is fixed for every context
var order = []entry{
	{label: "Discord", platform: models.PlatformDiscord},
	{label: "Github", platform: models.PlatformGithub},
	{label: "Notion", platform: models.PlatformNotion},
	{label: "MediaWiki", platform: models.PlatformMediaWiki},
	{label: "Discourse"},
	{label: "Telegram"},
	{label: "X"},
	{label: "Snapshot"},
	{label: "GDrive", platform: models.PlatformGoogle},
}

// Registry is an immutable, ordered tab strip
type Registry struct {
	context string
	tabs    []Tab
}

func newRegistry(context string, enabled []string, comingSoon []string) *Registry {
	tabs := make([]Tab, len(order))
	for i, e := range order {
		tabs[i] = Tab{
			Index:      i,
			Label:      e.label,
			Platform:   e.platform,
			Enabled:    ectolinq.Contains(enabled, e.label),
			ComingSoon: ectolinq.Contains(comingSoon, e.label),
		}
	}
	return &Registry{context: context, tabs: tabs}
}

// NewHivemindRegistry enables Discord, Github, Notion and MediaWiki. GDrive stays
// "coming soon" unless gdriveEnabled is set.
func NewHivemindRegistry(gdriveEnabled bool) *Registry {
	enabled := []string{"Discord", "Github", "Notion", "MediaWiki"}
	comingSoon := []string{"GDrive"}
	if gdriveEnabled {
		enabled = append(enabled, "GDrive")
		comingSoon = nil
	}
	return newRegistry(ContextHivemind, enabled, comingSoon)
}

// NewCommunityRegistry only enables Discord
func NewCommunityRegistry() *Registry {
	return newRegistry(ContextCommunity, []string{"Discord"}, nil)
}

// ForContext returns the registry for a named screen
func ForContext(context string, gdriveEnabled bool) (*Registry, error) {
	switch context {
	case ContextHivemind:
		return NewHivemindRegistry(gdriveEnabled), nil
	case ContextCommunity:
		return NewCommunityRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, context)
	}
}

func (r *Registry) Context() string {
	return r.context
}

func (r *Registry) Len() int {
	return len(r.tabs)
}

// Tabs returns a copy of the tab strip
func (r *Registry) Tabs() []Tab {
	out := make([]Tab, len(r.tabs))
	copy(out, r.tabs)
	return out
}

// Selectable returns the tab at index, or an error when it is out of range or disabled
func (r *Registry) Selectable(index int) (Tab, error) {
	if index < 0 || index >= len(r.tabs) {
		return Tab{}, fmt.Errorf("%w: %d", ErrTabOutOfRange, index)
	}
	tab := r.tabs[index]
	if !tab.Enabled {
		return tab, fmt.Errorf("%w: %s", ErrTabDisabled, tab.Label)
	}
	return tab, nil
}

// IsEnabled reports whether the tab with the given label can be selected
func (r *Registry) IsEnabled(label string) bool {
	for _, tab := range r.tabs {
		if tab.Label == label {
			return tab.Enabled
		}
	}
	return false
}
