package tools

// Parameter structs for each tool, decoded from the task's params JSON.
// Optional enum fields validate with omitempty and are defaulted by the
// pipeline; zero-value structs are always valid for tools without
// required parameters.

// SummarizeParams controls summary length and layout.
type SummarizeParams struct {
	Length string `json:"length"  validate:"omitempty,oneof=short medium long"`
	Format string `json:"format"  validate:"omitempty,oneof=paragraph bullets"`
}

// TranslateParams names the target language and, optionally, the source.
type TranslateParams struct {
	TargetLanguage string `json:"target_language" validate:"required"`
	SourceLanguage string `json:"source_language"`
}

// ImproveParams picks the rewriting goal.
type ImproveParams struct {
	Goal string `json:"goal" validate:"omitempty,oneof=clarity tone grammar"`
}

// ReviewParams picks the critique lens.
type ReviewParams struct {
	Type string `json:"type" validate:"omitempty,oneof=general legal technical business"`
}

// InsightsParams optionally focuses the analysis on one question.
type InsightsParams struct {
	Question string `json:"question"`
}

// ExtractParams is empty; extraction is parameterless.
type ExtractParams struct{}

// RedactParams is empty; the redaction kinds are fixed.
type RedactParams struct{}

// ResumeParams tailor the rewrite toward a role and keyword set.
type ResumeParams struct {
	TargetRole string   `json:"target_role"`
	Keywords   []string `json:"keywords"`
}

// ProposalParams feed the proposal's addressee and scope.
type ProposalParams struct {
	ClientName   string `json:"client_name"`
	ProjectScope string `json:"project_scope"`
}

// TaglinesParams control how many taglines come back and their voice.
type TaglinesParams struct {
	Count int    `json:"count" validate:"omitempty,min=1,max=20"`
	Style string `json:"style" validate:"omitempty,oneof=catchy professional creative"`
}

// ChatParams carry the user message and an optional persona.
type ChatParams struct {
	Message     string `json:"message"     validate:"required"`
	Personality string `json:"personality" validate:"omitempty,oneof=helpful professional creative technical casual academic"`
}

// EnhanceImagePromptParams carry the prompt to enrich and a visual style.
type EnhanceImagePromptParams struct {
	Prompt string `json:"prompt" validate:"required"`
	Style  string `json:"style"  validate:"omitempty,oneof=realistic anime cyberpunk 3d watercolor oil_painting neon minimalist"`
}
