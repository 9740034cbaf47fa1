// Package model describes the generation models available to the
// application: what each model supports, which model should serve a
// given request shape, and the fixed fallback order used when a model
// misbehaves. Routing is a pure function over an immutable registry
// snapshot so it can be tested without any backend.
package model

import (
	"errors"
	"fmt"
)

// TaskType classifies a generation request for routing purposes only.
// It is never persisted; task records carry a tool tag instead.
type TaskType string

// The closed set of task types the router understands.
const (
	TaskChatSimple       TaskType = "chat_simple"
	TaskChatComplex      TaskType = "chat_complex"
	TaskSummarization    TaskType = "summarization"
	TaskTranslation      TaskType = "translation"
	TaskRewriting        TaskType = "rewriting"
	TaskInsights         TaskType = "insights"
	TaskDocumentAnalysis TaskType = "document_analysis"
	TaskImageAnalysis    TaskType = "image_analysis"
	TaskImageGeneration  TaskType = "image_generation"
	TaskVideoAnalysis    TaskType = "video_analysis"
	TaskCodeGeneration   TaskType = "code_generation"
	TaskCreative         TaskType = "creative"
)

// ErrUnknownTaskType is returned when a string does not name a task type.
var ErrUnknownTaskType = errors.New("unknown task type")

var allTaskTypes = map[TaskType]struct{}{
	TaskChatSimple:       {},
	TaskChatComplex:      {},
	TaskSummarization:    {},
	TaskTranslation:      {},
	TaskRewriting:        {},
	TaskInsights:         {},
	TaskDocumentAnalysis: {},
	TaskImageAnalysis:    {},
	TaskImageGeneration:  {},
	TaskVideoAnalysis:    {},
	TaskCodeGeneration:   {},
	TaskCreative:         {},
}

// ParseTaskType converts a wire string into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if _, ok := allTaskTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, s)
	}
	return t, nil
}

// ReasoningTier ranks models by reasoning depth. Higher is stronger.
// The ordering is used as a tie-break for large inputs.
type ReasoningTier int

const (
	ReasoningLight ReasoningTier = iota
	ReasoningMedium
	ReasoningHigh
	ReasoningHighest
)

// String returns the human-readable tier name.
func (r ReasoningTier) String() string {
	switch r {
	case ReasoningLight:
		return "light"
	case ReasoningMedium:
		return "medium"
	case ReasoningHigh:
		return "high"
	case ReasoningHighest:
		return "highest"
	default:
		return fmt.Sprintf("ReasoningTier(%d)", int(r))
	}
}

// Descriptor is the immutable capability record for one model. Values
// are fixed at registry construction and shared read-only by all
// workers.
type Descriptor struct {
	ID                string
	SupportsVision    bool
	SupportsStreaming bool
	MaxOutputTokens   int32
	Reasoning         ReasoningTier
	Affinity          []TaskType
}

// PrefersTask reports whether the descriptor lists the task type in its
// affinity set.
func (d Descriptor) PrefersTask(task TaskType) bool {
	for _, t := range d.Affinity {
		if t == task {
			return true
		}
	}
	return false
}
