package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModerationThreshold = 0.5

// moderationCategories are the axes every moderation verdict scores.
var moderationCategories = []string{
	"sexual", "violence", "hate", "harassment", "self_harm", "dangerous",
}

const moderationPrompt = `You are a strict content safety classifier. Score the text below for each category from 0.0 (safe) to 1.0 (clear violation). Respond with JSON only, no prose, using exactly these keys: sexual, violence, hate, harassment, self_harm, dangerous.

Text:
%s`

const interiorPrompt = `You are an interior design assistant. Analyze the room in the image at %s and propose a redesign in the "%s" style.%s Respond with JSON only, using the keys: description, style_suggestions, color_palette, furniture.`

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey              string
	Model               string
	ModerationThreshold float64
}

// geminiBackend abstracts the generative SDK so tests can substitute
// canned completions.
type geminiBackend interface {
	generate(ctx context.Context, prompt string) (string, error)
	ping(ctx context.Context) error
	close() error
}

// genaiBackend is the production backend on the official SDK.
type genaiBackend struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func (b *genaiBackend) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return extractGeminiText(resp)
}

func (b *genaiBackend) ping(ctx context.Context) error {
	_, err := b.model.CountTokens(ctx, genai.Text("ping"))
	return err
}

func (b *genaiBackend) close() error {
	return b.client.Close()
}

// extractGeminiText pulls the first text part out of a completion.
func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}
	return "", fmt.Errorf("no text part in response")
}

// Gemini serves the synchronous tasks: content moderation verdicts and
// interior design analysis. There is no submit/poll cycle; a single
// completion is the whole task.
type Gemini struct {
	threshold float64
	backend   geminiBackend
}

// NewGemini creates a Gemini client backed by the official SDK.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key must not be empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return newGeminiWithBackend(&genaiBackend{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, cfg.ModerationThreshold), nil
}

func newGeminiWithBackend(backend geminiBackend, threshold float64) *Gemini {
	if threshold <= 0 {
		threshold = defaultModerationThreshold
	}
	return &Gemini{threshold: threshold, backend: backend}
}

// Name returns the provider identity.
func (g *Gemini) Name() Name {
	return NameGemini
}

// HealthCheck counts tokens on a trivial prompt, the cheapest call that
// still exercises auth and quota.
func (g *Gemini) HealthCheck(ctx context.Context) error {
	if err := g.backend.ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Execute runs the task synchronously. Only the task types wired to this
// provider are accepted.
func (g *Gemini) Execute(ctx context.Context, task *Task) (*Result, error) {
	switch task.Type {
	case TaskModeration:
		return g.moderate(ctx, task)
	case TaskInterior:
		return g.interior(ctx, task)
	default:
		return nil, NewExecutionError(NameGemini,
			fmt.Sprintf("task type %s is not supported", task.Type), nil)
	}
}

// Close releases the underlying SDK connection.
func (g *Gemini) Close() error {
	return g.backend.close()
}

// moderate scores the prompt text across the moderation categories and
// derives the overall verdict: safe only when every score is under the
// threshold.
func (g *Gemini) moderate(ctx context.Context, task *Task) (*Result, error) {
	text := stringParam(task.Params, "prompt")
	if text == "" {
		text = stringParam(task.Params, "text")
	}

	raw, err := g.backend.generate(ctx, fmt.Sprintf(moderationPrompt, text))
	if err != nil {
		return nil, NewExecutionError(NameGemini, "moderation request failed", err)
	}

	parsed, ok := extractJSONObject(raw)
	if !ok {
		return nil, NewExecutionError(NameGemini,
			fmt.Sprintf("moderation response is not valid JSON: %s", strings.TrimSpace(raw)), nil)
	}

	scores := make(map[string]float64, len(moderationCategories))
	for _, category := range moderationCategories {
		if value, found := parsed[category]; found {
			if score, isNumber := value.(float64); isNumber {
				scores[category] = score
			}
		}
	}
	if len(scores) == 0 {
		return nil, NewExecutionError(NameGemini,
			fmt.Sprintf("moderation response carries no scores: %s", strings.TrimSpace(raw)), nil)
	}

	isSafe := true
	flagged := make([]string, 0)
	for _, category := range moderationCategories {
		if score, found := scores[category]; found && score >= g.threshold {
			isSafe = false
			flagged = append(flagged, category)
		}
	}

	return &Result{Output: map[string]any{
		"is_safe": isSafe,
		"scores":  scores,
		"flagged": flagged,
	}}, nil
}

// interior asks for a structured redesign of the room image. Models do
// not always honor the JSON instruction, so parsing is best effort with a
// plain text fallback.
func (g *Gemini) interior(ctx context.Context, task *Task) (*Result, error) {
	imageURL := stringParam(task.Params, "image_url")
	style := stringParam(task.Params, "style")
	if style == "" {
		style = "modern"
	}

	extra := ""
	if instructions := stringParam(task.Params, "prompt"); instructions != "" {
		extra = " Additional instructions: " + instructions + "."
	}

	raw, err := g.backend.generate(ctx, fmt.Sprintf(interiorPrompt, imageURL, style, extra))
	if err != nil {
		return nil, NewExecutionError(NameGemini, "interior design request failed", err)
	}

	if parsed, ok := extractJSONObject(raw); ok {
		return &Result{Output: parsed}, nil
	}

	return &Result{Output: map[string]any{
		"description":  strings.TrimSpace(raw),
		"is_text_only": true,
	}}, nil
}

// extractJSONObject digs a JSON object out of a model completion. It
// tries a fenced ```json block first, then the outermost brace pair.
func extractJSONObject(text string) (map[string]any, bool) {
	candidate := text

	if start := strings.Index(candidate, "```json"); start >= 0 {
		candidate = candidate[start+len("```json"):]
		if end := strings.Index(candidate, "```"); end >= 0 {
			candidate = candidate[:end]
		}
	} else if start := strings.Index(candidate, "{"); start >= 0 {
		if end := strings.LastIndex(candidate, "}"); end > start {
			candidate = candidate[start : end+1]
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

var _ Client = (*Gemini)(nil)
