package model

import (
	"errors"
	"fmt"
)

// Registry validation errors
var (
	ErrEmptyRegistry    = errors.New("registry requires at least one descriptor")
	ErrEmptyModelID     = errors.New("model descriptor requires an ID")
	ErrDuplicateModelID = errors.New("duplicate model ID in registry")
)

// Registry is an immutable snapshot of the known models. Iteration
// order is the declaration order, which the router relies on for
// first-match selection, so the backing slice is never mutated or
// exposed directly.
type Registry struct {
	descriptors []Descriptor
	byID        map[string]Descriptor
}

// NewRegistry builds a Registry from the given descriptors.
// Returns an error on empty input, a missing ID, or a duplicate ID.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyRegistry
	}

	reg := &Registry{
		descriptors: make([]Descriptor, len(descriptors)),
		byID:        make(map[string]Descriptor, len(descriptors)),
	}

	for i, d := range descriptors {
		if d.ID == "" {
			return nil, ErrEmptyModelID
		}
		if _, exists := reg.byID[d.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModelID, d.ID)
		}
		d.Affinity = append([]TaskType(nil), d.Affinity...)
		reg.descriptors[i] = d
		reg.byID[d.ID] = d
	}

	return reg, nil
}

// Get returns the descriptor for the given model ID.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Descriptors returns the registry contents in declaration order.
// The returned slice is a copy.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// DefaultRegistry returns the built-in capability table. The entries
// and their order mirror the production model lineup; order matters
// because the router picks the first affinity match for small inputs.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		Descriptor{
			ID:                "gemini-2.0-flash-exp",
			SupportsVision:    true,
			SupportsStreaming: true,
			MaxOutputTokens:   8192,
			Reasoning:         ReasoningMedium,
			Affinity:          []TaskType{TaskChatSimple, TaskTranslation, TaskRewriting},
		},
		Descriptor{
			ID:                "gemini-1.5-flash",
			SupportsVision:    true,
			SupportsStreaming: true,
			MaxOutputTokens:   8192,
			Reasoning:         ReasoningMedium,
			Affinity:          []TaskType{TaskChatSimple, TaskTranslation, TaskRewriting},
		},
		Descriptor{
			ID:                "gemini-1.5-flash-8b",
			SupportsVision:    true,
			SupportsStreaming: true,
			MaxOutputTokens:   8192,
			Reasoning:         ReasoningLight,
			Affinity:          []TaskType{TaskChatSimple, TaskTranslation},
		},
		Descriptor{
			ID:                "gemini-1.5-pro",
			SupportsVision:    true,
			SupportsStreaming: true,
			MaxOutputTokens:   8192,
			Reasoning:         ReasoningHigh,
			Affinity: []TaskType{
				TaskChatComplex, TaskSummarization, TaskInsights, TaskDocumentAnalysis,
			},
		},
		Descriptor{
			ID:                "gemini-pro-vision",
			SupportsVision:    true,
			SupportsStreaming: false,
			MaxOutputTokens:   4096,
			Reasoning:         ReasoningMedium,
			Affinity:          []TaskType{TaskImageAnalysis},
		},
		Descriptor{
			ID:                "gemini-exp-1206",
			SupportsVision:    false,
			SupportsStreaming: true,
			MaxOutputTokens:   8192,
			Reasoning:         ReasoningHighest,
			Affinity: []TaskType{
				TaskChatComplex, TaskInsights, TaskCodeGeneration, TaskCreative,
			},
		},
	)
	if err != nil {
		// The table above is static; a construction failure is a bug.
		panic(fmt.Sprintf("model: invalid default registry: %v", err))
	}
	return reg
}
