package hivemind

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Handler owns everything platform-specific about a Hivemind configuration
type Handler interface {
	Platform() models.PlatformName
	// Default is the configuration shown when the module has nothing stored for the platform
	Default() any
	// Decode parses a user-submitted configuration
	Decode(raw []byte) (any, error)
	// Prefill turns stored module metadata into a configuration, falling back to Default
	Prefill(metadata map[string]any) any
	Validate(config any) error
	// Metadata builds the exact metadata sent to the backend for this platform
	Metadata(config any) (map[string]any, error)
}

type typedHandler[T any] struct {
	name      models.PlatformName
	defaults  func() T
	normalize func(*T)
	metadata  func(T) map[string]any
	validate  *validator.Validate
}

func (h *typedHandler[T]) Platform() models.PlatformName {
	return h.name
}

func (h *typedHandler[T]) Default() any {
	return h.defaults()
}

func (h *typedHandler[T]) Decode(raw []byte) (any, error) {
	cfg := h.defaults()
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty %s configuration", ErrInvalidConfig, h.name)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	h.normalize(&cfg)
	return cfg, nil
}

func (h *typedHandler[T]) Prefill(metadata map[string]any) any {
	if metadata == nil {
		return h.defaults()
	}
	cfg, err := h.coerce(metadata)
	if err != nil {
		return h.defaults()
	}
	return cfg
}

func (h *typedHandler[T]) Validate(config any) error {
	cfg, err := h.coerce(config)
	if err != nil {
		return err
	}
	if err := h.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(err))
	}
	return nil
}

func (h *typedHandler[T]) Metadata(config any) (map[string]any, error) {
	cfg, err := h.coerce(config)
	if err != nil {
		return nil, err
	}
	return h.metadata(cfg), nil
}

// coerce accepts the typed config, a pointer to it, or any JSON-shaped value
func (h *typedHandler[T]) coerce(config any) (T, error) {
	switch v := config.(type) {
	case T:
		h.normalize(&v)
		return v, nil
	case *T:
		if v == nil {
			return h.defaults(), fmt.Errorf("%w: nil %s configuration", ErrInvalidConfig, h.name)
		}
		out := *v
		h.normalize(&out)
		return out, nil
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return h.defaults(), fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	decoded, err := h.Decode(raw)
	if err != nil {
		return h.defaults(), err
	}
	return decoded.(T), nil
}

// passthroughHandler forwards the configuration object untouched (Google Drive)
type passthroughHandler struct {
	name     models.PlatformName
	defaults func() map[string]any
}

func (h *passthroughHandler) Platform() models.PlatformName {
	return h.name
}

func (h *passthroughHandler) Default() any {
	return h.defaults()
}

func (h *passthroughHandler) Decode(raw []byte) (any, error) {
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil || cfg == nil {
		return nil, fmt.Errorf("%w: %s configuration must be an object", ErrInvalidConfig, h.name)
	}
	return cfg, nil
}

func (h *passthroughHandler) Prefill(metadata map[string]any) any {
	if metadata == nil {
		return h.defaults()
	}
	return metadata
}

func (h *passthroughHandler) Validate(config any) error {
	_, err := h.Metadata(config)
	return err
}

func (h *passthroughHandler) Metadata(config any) (map[string]any, error) {
	if m, ok := config.(map[string]any); ok && m != nil {
		return m, nil
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	cfg, err := h.Decode(raw)
	if err != nil {
		return nil, err
	}
	return cfg.(map[string]any), nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("%s failed on the '%s' rule", fe.Namespace(), fe.Tag())
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
