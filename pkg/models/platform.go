package models

import "time"

// PlatformName is the backend's wire name for a platform type
type PlatformName string

const (
	PlatformDiscord   PlatformName = "discord"
	PlatformGithub    PlatformName = "github"
	PlatformNotion    PlatformName = "notion"
	PlatformMediaWiki PlatformName = "mediaWiki"
	PlatformGoogle    PlatformName = "google"
)

// KnownPlatforms lists every platform type a module can be configured for
var KnownPlatforms = []PlatformName{
	PlatformDiscord,
	PlatformGithub,
	PlatformNotion,
	PlatformMediaWiki,
	PlatformGoogle,
}

func (n PlatformName) Valid() bool {
	for _, known := range KnownPlatforms {
		if n == known {
			return true
		}
	}
	return false
}

// Platform is a connected integration owned by a community
type Platform struct {
	ID             string         `json:"id"`
	Name           PlatformName   `json:"name"`
	Community      string         `json:"community"`
	ConnectedAt    *time.Time     `json:"connectedAt,omitempty"`
	DisconnectedAt *time.Time     `json:"disconnectedAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Active reports whether the platform is still connected
func (p Platform) Active() bool {
	return p.DisconnectedAt == nil
}

// PlatformDisplay is what the dashboard renders for a connected platform
type PlatformDisplay struct {
	Platform
	AvatarURL string `json:"avatarUrl"`
	Label     string `json:"label"`
}

type PlatformList struct {
	Results      []Platform `json:"results"`
	Limit        int        `json:"limit,omitempty"`
	Page         int        `json:"page,omitempty"`
	TotalPages   int        `json:"totalPages,omitempty"`
	TotalResults int        `json:"totalResults,omitempty"`
}
