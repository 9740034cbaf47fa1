package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := NewRegistry()
		assert.ErrorIs(t, err, ErrEmptyRegistry)
	})

	t.Run("missing ID", func(t *testing.T) {
		t.Parallel()
		_, err := NewRegistry(Descriptor{})
		assert.ErrorIs(t, err, ErrEmptyModelID)
	})

	t.Run("duplicate ID", func(t *testing.T) {
		t.Parallel()
		_, err := NewRegistry(
			Descriptor{ID: "model-a"},
			Descriptor{ID: "model-a"},
		)
		assert.ErrorIs(t, err, ErrDuplicateModelID)
	})

	t.Run("lookup", func(t *testing.T) {
		t.Parallel()
		registry, err := NewRegistry(
			Descriptor{ID: "model-a", Reasoning: ReasoningHigh},
			Descriptor{ID: "model-b"},
		)
		require.NoError(t, err)

		d, ok := registry.Get("model-a")
		require.True(t, ok)
		assert.Equal(t, ReasoningHigh, d.Reasoning)

		_, ok = registry.Get("model-c")
		assert.False(t, ok)

		assert.Equal(t, 2, registry.Len())
	})
}

func TestRegistryDescriptorsCopy(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Descriptor{ID: "model-a"})
	require.NoError(t, err)

	ds := registry.Descriptors()
	ds[0].ID = "mutated"

	fresh := registry.Descriptors()
	assert.Equal(t, "model-a", fresh[0].ID)
}

func TestRegistryAffinityIsolated(t *testing.T) {
	t.Parallel()

	affinity := []TaskType{TaskChatSimple}
	registry, err := NewRegistry(Descriptor{ID: "model-a", Affinity: affinity})
	require.NoError(t, err)

	// Mutating the caller's slice must not reach the registry.
	affinity[0] = TaskCreative

	d, ok := registry.Get("model-a")
	require.True(t, ok)
	assert.True(t, d.PrefersTask(TaskChatSimple))
	assert.False(t, d.PrefersTask(TaskCreative))
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	assert.Equal(t, 6, registry.Len())

	// Registry order is part of the routing contract.
	ds := registry.Descriptors()
	assert.Equal(t, "gemini-2.0-flash-exp", ds[0].ID)

	// Every fallback-order member must exist in the default registry.
	for _, id := range FallbackOrder() {
		_, ok := registry.Get(id)
		assert.True(t, ok, "fallback model %q missing from default registry", id)
	}

	// The image-generation override must support vision input.
	d, ok := registry.Get(ImageGenerationModel)
	require.True(t, ok)
	assert.True(t, d.SupportsVision)
}

func TestParseTaskType(t *testing.T) {
	t.Parallel()

	task, err := ParseTaskType("summarization")
	require.NoError(t, err)
	assert.Equal(t, TaskSummarization, task)

	_, err = ParseTaskType("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownTaskType)
}
