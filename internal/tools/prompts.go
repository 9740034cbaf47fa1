package tools

import (
	"fmt"
	"strings"
)

// Input clipping keeps prompts inside model context windows. The limits
// follow what each tool actually needs: analysis tools read more of the
// document than rewriting tools, and taglines need only the opening.
const (
	analysisClipLimit = 15000
	rewriteClipLimit  = 10000
	taglinesClipLimit = 5000
)

// chatComplexityThreshold is the message length, in characters, above
// which chat routes to the complex-reasoning task type.
const chatComplexityThreshold = 500

var summaryLengthInstructions = map[string]string{
	"short":  "Provide a concise summary in 2-3 sentences",
	"medium": "Provide a balanced summary covering the key points",
	"long":   "Provide a detailed, comprehensive summary",
}

var summaryFormatInstructions = map[string]string{
	"paragraph": "Write it as flowing paragraphs",
	"bullets":   "Format it as bullet points",
}

var improveGoalInstructions = map[string]string{
	"clarity": "Rewrite the following text to improve clarity, flow, and structure while keeping the original meaning",
	"tone":    "Rewrite the following text with a more professional, engaging tone while keeping the original meaning",
	"grammar": "Fix grammar, spelling, and punctuation in the following text without changing its voice or content",
}

var reviewTypeInstructions = map[string]string{
	"general":   "overall quality, clarity, and effectiveness",
	"legal":     "legal accuracy, completeness, and potential risks",
	"technical": "technical accuracy, clarity, and completeness",
	"business":  "business value, persuasiveness, and professional tone",
}

var taglineStyleInstructions = map[string]string{
	"catchy":       "Make them catchy and memorable",
	"professional": "Make them professional and corporate",
	"creative":     "Make them creative and unique",
}

var chatPersonalities = map[string]string{
	"helpful":      "You are a helpful, friendly AI assistant.",
	"professional": "You are a professional business consultant. Be formal and precise.",
	"creative":     "You are a creative writer. Be imaginative and expressive.",
	"technical":    "You are a technical expert. Be detailed and accurate.",
	"casual":       "You are a casual friend. Be relaxed and fun.",
	"academic":     "You are an academic scholar. Be thorough and rigorous.",
}

var imageStyleAdditions = map[string]string{
	"realistic":    "photorealistic, highly detailed, 8k resolution, professional photography",
	"anime":        "anime style, vibrant colors, detailed linework",
	"cyberpunk":    "cyberpunk aesthetic, neon lights, futuristic, dark atmosphere",
	"3d":           "3D rendered, volumetric lighting, high polish",
	"watercolor":   "watercolor painting, soft edges, traditional media",
	"oil_painting": "oil painting style, classical art, rich textures",
	"neon":         "neon aesthetic, glowing, vibrant colors, dark background",
	"minimalist":   "minimalist design, clean lines, simple, modern",
}

func buildSummarizePrompt(docText string, p SummarizeParams) string {
	length := orDefault(p.Length, "medium")
	format := orDefault(p.Format, "paragraph")
	return fmt.Sprintf("%s of the following text. %s.\n\nText to summarize:\n%s\n\nSummary:",
		summaryLengthInstructions[length],
		summaryFormatInstructions[format],
		clip(docText, analysisClipLimit))
}

func buildTranslatePrompt(docText string, p TranslateParams) string {
	direction := fmt.Sprintf("to %s", p.TargetLanguage)
	if p.SourceLanguage != "" {
		direction = fmt.Sprintf("from %s to %s", p.SourceLanguage, p.TargetLanguage)
	}
	return fmt.Sprintf("Translate the following text %s. Preserve the original formatting, paragraphs, and tone.\n\nOriginal text:\n%s\n\nTranslated text:",
		direction,
		clip(docText, rewriteClipLimit))
}

func buildImprovePrompt(docText string, p ImproveParams) string {
	goal := orDefault(p.Goal, "clarity")
	return fmt.Sprintf("%s.\n\nOriginal text:\n%s\n\nImproved text:",
		improveGoalInstructions[goal],
		clip(docText, rewriteClipLimit))
}

func buildReviewPrompt(docText string, p ReviewParams) string {
	kind := orDefault(p.Type, "general")
	return fmt.Sprintf("Review the following document for %s. Provide specific, actionable suggestions organized by issue.\n\nDocument:\n%s\n\nReview and suggestions:",
		reviewTypeInstructions[kind],
		clip(docText, rewriteClipLimit))
}

func buildInsightsPrompt(docText string, p InsightsParams) string {
	doc := clip(docText, analysisClipLimit)
	if p.Question != "" {
		return fmt.Sprintf("Based on the following document, answer this question accurately and comprehensively: %s\n\nDocument:\n%s\n\nAnswer:",
			p.Question, doc)
	}
	return fmt.Sprintf("Analyze the following document and provide key insights, main themes, and important takeaways.\n\nDocument:\n%s\n\nInsights:", doc)
}

func buildExtractPrompt(docText string) string {
	return fmt.Sprintf("Extract the key facts from the following document. Quote names, dates, figures, and commitments verbatim; do not paraphrase or invent values.\n\nDocument:\n%s\n\nKey facts:",
		clip(docText, rewriteClipLimit))
}

func buildRedactPrompt(docText string) string {
	return fmt.Sprintf("Rewrite the following text with every piece of personal or sensitive information replaced by [REDACTED]: names, postal addresses, email addresses, phone numbers, identification numbers, and account numbers. Change nothing else.\n\nText:\n%s\n\nRedacted text:",
		clip(docText, rewriteClipLimit))
}

func buildResumePrompt(docText string, p ResumeParams) string {
	role := "for general job applications"
	if p.TargetRole != "" {
		role = fmt.Sprintf("for the role of %s", p.TargetRole)
	}
	keywords := ""
	if len(p.Keywords) > 0 {
		keywords = fmt.Sprintf(" Incorporate these keywords naturally: %s.", strings.Join(p.Keywords, ", "))
	}
	return fmt.Sprintf("Optimize this resume %s. Improve the wording, structure, and impact of each section.%s\n\nResume:\n%s\n\nOptimized resume:",
		role, keywords, clip(docText, rewriteClipLimit))
}

func buildProposalPrompt(docText string, p ProposalParams) string {
	var details strings.Builder
	if p.ClientName != "" {
		fmt.Fprintf(&details, " Address it to %s.", p.ClientName)
	}
	if p.ProjectScope != "" {
		fmt.Fprintf(&details, " The proposal must cover: %s.", p.ProjectScope)
	}
	return fmt.Sprintf("Write a compelling, persuasive business proposal based on the following information.%s\n\nBackground information:\n%s\n\nProposal:",
		details.String(), clip(docText, rewriteClipLimit))
}

func buildTaglinesPrompt(docText string, count int, style string) string {
	return fmt.Sprintf("Generate %d distinct taglines based on the following document. %s. Return only the taglines, one per line, without numbering.\n\nDocument:\n%s\n\nTaglines:",
		count,
		taglineStyleInstructions[style],
		clip(docText, taglinesClipLimit))
}

func buildChatPrompt(docText string, p ChatParams) (prompt, system string) {
	system = chatPersonalities[orDefault(p.Personality, "helpful")]
	prompt = fmt.Sprintf("Context document:\n%s\n\nUser: %s\nAssistant:",
		clip(docText, analysisClipLimit), p.Message)
	return prompt, system
}

func buildEnhanceImagePrompt(p EnhanceImagePromptParams) string {
	style := imageStyleAdditions[orDefault(p.Style, "realistic")]
	return fmt.Sprintf("Enhance this image generation prompt to be more detailed and effective.\nOriginal prompt: %s\nStyle: %s\nAdd quality boosters like: highly detailed, professional, award-winning.\n\nProvide only the enhanced prompt, nothing else.",
		p.Prompt, style)
}

// parseTaglines splits model output into clean tagline entries, dropping
// blank lines and list markers, capped at the requested count.
func parseTaglines(raw string, count int) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, count)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == count {
			break
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// clip truncates text to at most limit bytes without splitting a rune.
func clip(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return strings.ToValidUTF8(text[:limit], "")
}
