// Package hivemind builds the per-platform settings payloads of the Hivemind module.
package hivemind

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	// ErrModuleRequired is returned when no module exists yet for the community
	ErrModuleRequired   = errors.New("module is required")
	ErrUnknownPlatform  = errors.New("unknown platform type")
	ErrPlatformRequired = errors.New("platform id is required")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Registry is the dispatch table of platform handlers
type Registry struct {
	handlers map[models.PlatformName]Handler
}

// NewRegistry returns the handlers for every platform Hivemind can learn from
func NewRegistry() *Registry {
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := []Handler{
		&typedHandler[models.DiscordConfig]{
			name: models.PlatformDiscord,
			defaults: func() models.DiscordConfig {
				return models.DiscordConfig{
					Learning:  models.DiscordLearning{SelectedChannels: []string{}, FromDate: ""},
					Answering: models.DiscordAnswering{SelectedChannels: []string{}},
				}
			},
			normalize: func(c *models.DiscordConfig) {
				c.Learning.SelectedChannels = orEmpty(c.Learning.SelectedChannels)
				c.Answering.SelectedChannels = orEmpty(c.Answering.SelectedChannels)
			},
			metadata: func(c models.DiscordConfig) map[string]any {
				return map[string]any{
					"learning": map[string]any{
						"selectedChannels": c.Learning.SelectedChannels,
						"fromDate":         c.Learning.FromDate,
					},
					"answering": map[string]any{
						"selectedChannels": c.Answering.SelectedChannels,
					},
				}
			},
			validate: validate,
		},
		&typedHandler[models.GithubConfig]{
			name:      models.PlatformGithub,
			defaults:  func() models.GithubConfig { return models.GithubConfig{Activated: false} },
			normalize: func(*models.GithubConfig) {},
			metadata: func(c models.GithubConfig) map[string]any {
				return map[string]any{"activated": c.Activated}
			},
			validate: validate,
		},
		&typedHandler[models.NotionConfig]{
			name: models.PlatformNotion,
			defaults: func() models.NotionConfig {
				return models.NotionConfig{DatabaseIDs: []string{}, PageIDs: []string{}}
			},
			normalize: func(c *models.NotionConfig) {
				c.DatabaseIDs = orEmpty(c.DatabaseIDs)
				c.PageIDs = orEmpty(c.PageIDs)
			},
			metadata: func(c models.NotionConfig) map[string]any {
				return map[string]any{"databaseIds": c.DatabaseIDs, "pageIds": c.PageIDs}
			},
			validate: validate,
		},
		&typedHandler[models.MediaWikiConfig]{
			name:      models.PlatformMediaWiki,
			defaults:  func() models.MediaWikiConfig { return models.MediaWikiConfig{PageIDs: []string{}} },
			normalize: func(c *models.MediaWikiConfig) { c.PageIDs = orEmpty(c.PageIDs) },
			metadata: func(c models.MediaWikiConfig) map[string]any {
				return map[string]any{"pageIds": c.PageIDs}
			},
			validate: validate,
		},
		&passthroughHandler{
			name: models.PlatformGoogle,
			defaults: func() map[string]any {
				return map[string]any{"driveIds": []string{}, "folderIds": []string{}, "fileIds": []string{}}
			},
		},
	}

	r := &Registry{handlers: make(map[models.PlatformName]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Platform()] = h
	}
	return r
}

// Handler returns the handler for a platform type
func (r *Registry) Handler(platform models.PlatformName) (Handler, error) {
	h, ok := r.handlers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return h, nil
}

// Default returns the empty configuration for a platform type
func (r *Registry) Default(platform models.PlatformName) (any, error) {
	h, err := r.Handler(platform)
	if err != nil {
		return nil, err
	}
	return h.Default(), nil
}

// Prefill returns the module's stored configuration for a platform type, or its default
func (r *Registry) Prefill(module *models.Module, platform models.PlatformName) (any, error) {
	h, err := r.Handler(platform)
	if err != nil {
		return nil, err
	}
	return h.Prefill(module.PlatformMetadata(platform)), nil
}

// Decode parses and validates a submitted configuration
func (r *Registry) Decode(platform models.PlatformName, raw []byte) (any, error) {
	h, err := r.Handler(platform)
	if err != nil {
		return nil, err
	}
	cfg, err := h.Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildPatchPayload addresses exactly one platform of the module with the
// metadata keys of its type. Other platforms' settings are left to the backend merge.
func (r *Registry) BuildPatchPayload(module *models.Module, moduleType models.PlatformName, platformID string, userConfig any) (*models.PatchPayload, error) {
	if module == nil {
		return nil, ErrModuleRequired
	}
	if platformID == "" {
		return nil, ErrPlatformRequired
	}

	h, err := r.Handler(moduleType)
	if err != nil {
		return nil, err
	}

	metadata, err := h.Metadata(userConfig)
	if err != nil {
		return nil, err
	}

	return &models.PatchPayload{
		Platforms: []models.ModulePlatform{
			{
				Platform: platformID,
				Name:     moduleType,
				Metadata: metadata,
			},
		},
	}, nil
}
