package models

// HivemindModuleName is the backend name of the Hivemind AI-assistant module
const HivemindModuleName = "hivemind"

// Module holds one community's configuration for a named module
type Module struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Community string        `json:"community"`
	Options   ModuleOptions `json:"options"`
}

type ModuleOptions struct {
	Platforms []ModulePlatform `json:"platforms"`
}

// ModulePlatform is a module's settings for one connected platform
type ModulePlatform struct {
	Platform string         `json:"platform"`
	Name     PlatformName   `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// PlatformMetadata returns the stored metadata for a platform type, nil when unset
func (m *Module) PlatformMetadata(name PlatformName) map[string]any {
	if m == nil {
		return nil
	}
	for _, p := range m.Options.Platforms {
		if p.Name == name {
			return p.Metadata
		}
	}
	return nil
}

// PlatformMetadataFor returns the stored metadata of one connected platform.
// An entry bound to another platform id is never used; an entry of the same
// type without a platform id is the fallback.
func (m *Module) PlatformMetadataFor(platformID string, name PlatformName) map[string]any {
	if m == nil {
		return nil
	}
	if platformID == "" {
		return m.PlatformMetadata(name)
	}
	for _, p := range m.Options.Platforms {
		if p.Platform == platformID && p.Name == name {
			return p.Metadata
		}
	}
	for _, p := range m.Options.Platforms {
		if p.Platform == "" && p.Name == name {
			return p.Metadata
		}
	}
	return nil
}

type ModuleList struct {
	Results      []Module `json:"results"`
	Limit        int      `json:"limit,omitempty"`
	Page         int      `json:"page,omitempty"`
	TotalPages   int      `json:"totalPages,omitempty"`
	TotalResults int      `json:"totalResults,omitempty"`
}

// PatchPayload is the body of PATCH /modules/{id}
type PatchPayload struct {
	Platforms []ModulePlatform `json:"platforms"`
}

// CreateModuleRequest is the body of POST /modules
type CreateModuleRequest struct {
	Name      string `json:"name" validate:"required"`
	Community string `json:"community" validate:"required"`
}
