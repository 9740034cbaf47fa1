// Package tools defines the closed set of document tools and the
// pipeline that turns a tool invocation into a generation call and a
// structured result payload.
//
// Each tool carries a routing task type, a sampling temperature, a
// prompt builder, and a result shape. Most tools produce {"text": ...};
// the exceptions (taglines, redact, enhance_image_prompt) are shaped in
// their pipeline.
package tools

import "errors"

// Tool identifies a document tool by its wire tag.
type Tool string

const (
	ToolSummarize          Tool = "summarize"
	ToolTranslate          Tool = "translate"
	ToolImprove            Tool = "improve"
	ToolReview             Tool = "review"
	ToolInsights           Tool = "insights"
	ToolExtract            Tool = "extract"
	ToolRedact             Tool = "redact"
	ToolResume             Tool = "resume"
	ToolProposal           Tool = "proposal"
	ToolTaglines           Tool = "taglines"
	ToolChat               Tool = "chat"
	ToolEnhanceImagePrompt Tool = "enhance_image_prompt"
)

var (
	// ErrUnknownTool rejects tags outside the closed tool set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidParams rejects malformed or out-of-range tool parameters.
	ErrInvalidParams = errors.New("invalid tool parameters")
)

var allTools = map[Tool]struct{}{
	ToolSummarize:          {},
	ToolTranslate:          {},
	ToolImprove:            {},
	ToolReview:             {},
	ToolInsights:           {},
	ToolExtract:            {},
	ToolRedact:             {},
	ToolResume:             {},
	ToolProposal:           {},
	ToolTaglines:           {},
	ToolChat:               {},
	ToolEnhanceImagePrompt: {},
}

// Parse validates a wire tag against the closed tool set.
func Parse(s string) (Tool, error) {
	t := Tool(s)
	if _, ok := allTools[t]; !ok {
		return "", ErrUnknownTool
	}
	return t, nil
}

// All returns every known tool tag, for documentation and validation
// messages.
func All() []Tool {
	out := make([]Tool, 0, len(allTools))
	for t := range allTools {
		out = append(out, t)
	}
	return out
}
