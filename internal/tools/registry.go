package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quilldocs/quill-api/internal/generation"
	"github.com/quilldocs/quill-api/internal/model"
	"github.com/quilldocs/quill-api/internal/redact"
)

// TextGenerator is the generation surface tool pipelines run on.
// *generation.Executor satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, task model.TaskType, opts generation.Options) (string, error)
}

// ImageModelSource lists the models currently able to generate images.
// *model.DiscoveryCache satisfies it.
type ImageModelSource interface {
	ImageModels(ctx context.Context) []string
}

// Registry binds each tool to its pipeline: parameter schema, prompt
// builder, routing task type, temperature, and result shape.
type Registry struct {
	generator TextGenerator
	discovery ImageModelSource
	validate  *validator.Validate
}

// NewRegistry creates a Registry over the given generation surface.
func NewRegistry(generator TextGenerator, discovery ImageModelSource) (*Registry, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if discovery == nil {
		return nil, errors.New("discovery cannot be nil")
	}
	return &Registry{
		generator: generator,
		discovery: discovery,
		validate:  validator.New(),
	}, nil
}

// ValidateParams checks raw against the tool's parameter schema. It runs
// at submission time so malformed requests are rejected before a task is
// ever enqueued.
func (r *Registry) ValidateParams(tool Tool, raw json.RawMessage) error {
	var err error
	switch tool {
	case ToolSummarize:
		_, err = decodeParams[SummarizeParams](r.validate, raw)
	case ToolTranslate:
		_, err = decodeParams[TranslateParams](r.validate, raw)
	case ToolImprove:
		_, err = decodeParams[ImproveParams](r.validate, raw)
	case ToolReview:
		_, err = decodeParams[ReviewParams](r.validate, raw)
	case ToolInsights:
		_, err = decodeParams[InsightsParams](r.validate, raw)
	case ToolExtract:
		_, err = decodeParams[ExtractParams](r.validate, raw)
	case ToolRedact:
		_, err = decodeParams[RedactParams](r.validate, raw)
	case ToolResume:
		_, err = decodeParams[ResumeParams](r.validate, raw)
	case ToolProposal:
		_, err = decodeParams[ProposalParams](r.validate, raw)
	case ToolTaglines:
		_, err = decodeParams[TaglinesParams](r.validate, raw)
	case ToolChat:
		_, err = decodeParams[ChatParams](r.validate, raw)
	case ToolEnhanceImagePrompt:
		_, err = decodeParams[EnhanceImagePromptParams](r.validate, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	return err
}

// Run executes the tool pipeline against the extracted document text and
// returns the tool's JSON result payload.
func (r *Registry) Run(ctx context.Context, tool Tool, docText string, raw json.RawMessage) (json.RawMessage, error) {
	switch tool {
	case ToolSummarize:
		return r.runSummarize(ctx, docText, raw)
	case ToolTranslate:
		return r.runTranslate(ctx, docText, raw)
	case ToolImprove:
		return r.runImprove(ctx, docText, raw)
	case ToolReview:
		return r.runReview(ctx, docText, raw)
	case ToolInsights:
		return r.runInsights(ctx, docText, raw)
	case ToolExtract:
		return r.runExtract(ctx, docText, raw)
	case ToolRedact:
		return r.runRedact(ctx, docText, raw)
	case ToolResume:
		return r.runResume(ctx, docText, raw)
	case ToolProposal:
		return r.runProposal(ctx, docText, raw)
	case ToolTaglines:
		return r.runTaglines(ctx, docText, raw)
	case ToolChat:
		return r.runChat(ctx, docText, raw)
	case ToolEnhanceImagePrompt:
		return r.runEnhanceImagePrompt(ctx, raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
}

func (r *Registry) runSummarize(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[SummarizeParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildSummarizePrompt(docText, p), model.TaskSummarization, genOpts(0.3))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runTranslate(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[TranslateParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildTranslatePrompt(docText, p), model.TaskTranslation, genOpts(0.2))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runImprove(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[ImproveParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildImprovePrompt(docText, p), model.TaskRewriting, genOpts(0.4))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runReview(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[ReviewParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildReviewPrompt(docText, p), model.TaskDocumentAnalysis, genOpts(0.3))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runInsights(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[InsightsParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildInsightsPrompt(docText, p), model.TaskInsights, genOpts(0.3))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runExtract(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	if _, err := decodeParams[ExtractParams](r.validate, raw); err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildExtractPrompt(docText), model.TaskDocumentAnalysis, genOpts(0.1))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runRedact(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	if _, err := decodeParams[RedactParams](r.validate, raw); err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildRedactPrompt(docText), model.TaskDocumentAnalysis, genOpts(0.1))
	if err != nil {
		return nil, err
	}
	// The model handles contextual redaction (names, addresses). The
	// pattern scrub catches any literal identifier it let through.
	scrubbed, counts := redact.PII(text)
	return marshalResult(redactResult{Text: scrubbed, Redactions: counts})
}

func (r *Registry) runResume(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[ResumeParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildResumePrompt(docText, p), model.TaskRewriting, genOpts(0.4))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runProposal(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[ProposalParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	text, err := r.generator.Generate(ctx, buildProposalPrompt(docText, p), model.TaskCreative, genOpts(0.5))
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runTaglines(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[TaglinesParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	count := p.Count
	if count == 0 {
		count = 5
	}
	style := orDefault(p.Style, "catchy")

	text, err := r.generator.Generate(ctx, buildTaglinesPrompt(docText, count, style), model.TaskCreative, genOpts(0.7))
	if err != nil {
		return nil, err
	}
	return marshalResult(taglinesResult{Taglines: parseTaglines(text, count)})
}

func (r *Registry) runChat(ctx context.Context, docText string, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[ChatParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	task := model.TaskChatSimple
	if len(p.Message) > chatComplexityThreshold {
		task = model.TaskChatComplex
	}
	prompt, system := buildChatPrompt(docText, p)

	// Chat keeps the model's default temperature.
	text, err := r.generator.Generate(ctx, prompt, task, generation.Options{SystemPrompt: system})
	if err != nil {
		return nil, err
	}
	return marshalResult(textResult{Text: text})
}

func (r *Registry) runEnhanceImagePrompt(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	p, err := decodeParams[EnhanceImagePromptParams](r.validate, raw)
	if err != nil {
		return nil, err
	}
	enhanced, err := r.generator.Generate(ctx, buildEnhanceImagePrompt(p), model.TaskImageGeneration, genOpts(0.8))
	if err != nil {
		return nil, err
	}
	return marshalResult(enhanceResult{
		EnhancedPrompt:  strings.TrimSpace(enhanced),
		CandidateModels: r.discovery.ImageModels(ctx),
	})
}

// Result payload shapes. Every pipeline returns {"text": …} except
// taglines, redact, and enhance_image_prompt.
type textResult struct {
	Text string `json:"text"`
}

type taglinesResult struct {
	Taglines []string `json:"taglines"`
}

type redactResult struct {
	Text       string         `json:"text"`
	Redactions map[string]int `json:"redactions"`
}

type enhanceResult struct {
	EnhancedPrompt  string   `json:"enhanced_prompt"`
	CandidateModels []string `json:"candidate_models"`
}

// decodeParams unmarshals raw params into T and validates the result.
// Empty raw decodes to the zero value, which every optional-only schema
// accepts.
func decodeParams[T any](v *validator.Validate, raw json.RawMessage) (T, error) {
	var p T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	if err := v.Struct(&p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return p, nil
}

func genOpts(temperature float32) generation.Options {
	return generation.Options{Temperature: &temperature}
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return data, nil
}
