package model

import "errors"

// Routing constants. These are deliberate product decisions, not tuning
// knobs: the override model is the only image-generation-capable entry,
// and the default is the model that is always safe to call.
const (
	// ImageGenerationModel is returned unconditionally for the
	// image_generation task type.
	ImageGenerationModel = "gemini-2.0-flash-exp"

	// DefaultModel is the hard-coded safe answer when no registry entry
	// and no fallback candidate survives filtering.
	DefaultModel = "gemini-1.5-flash"

	// LargeInputThreshold is the input size, in characters, above which
	// the router prefers deeper reasoning over registry order.
	LargeInputThreshold = 10000
)

// fallbackOrder is the fixed priority list of general-purpose models
// tried when no affinity match exists, and walked by the generation
// executor after a model failure.
var fallbackOrder = []string{
	"gemini-2.0-flash-exp",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
}

// FallbackOrder returns a copy of the fixed fallback priority list.
func FallbackOrder() []string {
	return append([]string(nil), fallbackOrder...)
}

// ErrNilRegistry is returned when a Router is constructed without a registry.
var ErrNilRegistry = errors.New("registry cannot be nil")

// Router selects a model for a request shape. Selection is a pure
// function of (task type, vision requirement, input length) and the
// registry snapshot; it has no side effects and performs no I/O.
type Router struct {
	registry *Registry
}

// NewRouter creates a Router over the given registry.
func NewRouter(registry *Registry) (*Router, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	return &Router{registry: registry}, nil
}

// Registry returns the registry snapshot the router selects from.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Select returns the model ID to use for the given request shape.
//
// Image generation short-circuits to the designated model. Otherwise
// candidates are the registry entries whose affinity includes the task
// type, minus vision-incapable models when vision is required. With no
// candidates the fallback order is scanned under the same vision filter.
// With several candidates, inputs above LargeInputThreshold pick the
// deepest reasoning tier; smaller inputs pick the first candidate in
// registry order. If nothing survives at all, DefaultModel is returned.
func (r *Router) Select(task TaskType, needsVision bool, inputLen int) string {
	if task == TaskImageGeneration {
		return ImageGenerationModel
	}

	var candidates []Descriptor
	for _, d := range r.registry.Descriptors() {
		if needsVision && !d.SupportsVision {
			continue
		}
		if d.PrefersTask(task) {
			candidates = append(candidates, d)
		}
	}

	if len(candidates) == 0 {
		for _, id := range fallbackOrder {
			d, ok := r.registry.Get(id)
			if !ok {
				continue
			}
			if needsVision && !d.SupportsVision {
				continue
			}
			return d.ID
		}
		return DefaultModel
	}

	if len(candidates) > 1 && inputLen > LargeInputThreshold {
		best := candidates[0]
		for _, d := range candidates[1:] {
			if d.Reasoning > best.Reasoning {
				best = d
			}
		}
		return best.ID
	}

	return candidates[0].ID
}
