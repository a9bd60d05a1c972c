package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"dreamweaver/internal/config"
	"dreamweaver/internal/models"

	"golang.org/x/time/rate"
)

// AnnotationClient issues the two independent annotation calls against the
// generation service. Implementations carry no retries and no caching; a
// single failed attempt surfaces as a failure to the caller.
type AnnotationClient interface {
	Interpret(ctx context.Context, details, culturalContext string) (*models.InterpretationResult, error)
	Classify(ctx context.Context, details string) (*models.ClassificationResult, error)
}

// Default prompt templates. The output language policy (Russian) lives in
// the prompt text and travels with every request; overriding it is a
// prompts-file concern, never a code path.
const interpretSystemPrompt = `Ты — аналитик сновидений, предоставляющий персонализированные интерпретации снов. Все ответы должны быть на русском языке.`

const interpretUserPrompt = `Учитывай следующие детали сна и культурный контекст (если предоставлен) для генерации уникальной, символической интерпретации.
Детали сна: {{details}}
Культурный контекст: {{cultural_context}}

Предоставь подробную и проницательную интерпретацию сна на русском языке, учитывая распространенные символы сновидений и возможные психологические инсайты.
Интерпретация должна быть персонализированной и релевантной культурному фону сновидца.`

const classifySystemPrompt = `Ты — ИИ-интерпретатор снов. Проанализируй предоставленный текст сна и предоставь теги, категорию и краткое резюме. Все ответы должны быть на русском языке.`

const classifyUserPrompt = `Текст сна: {{details}}

Проанализируй сон и предоставь следующее на русском языке:

- tags: Массив релевантных тегов для сна.
- category: Основная категория, к которой относится сон.
- summary: Краткое резюме сна.

Убедись, что ответ хорошо отформатирован и легок для понимания.`

// interpretationSchema defines structured output for the interpretation call
var interpretationSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"interpretation": map[string]interface{}{
			"type":        "string",
			"description": "The personalized interpretation of the dream",
		},
	},
	"required":             []string{"interpretation"},
	"additionalProperties": false,
}

// classificationSchema defines structured output for the classification call
var classificationSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"tags": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "string",
			},
			"description": "Relevant tags for the dream",
		},
		"category": map[string]interface{}{
			"type":        "string",
			"description": "The primary category the dream belongs to",
		},
		"summary": map[string]interface{}{
			"type":        "string",
			"description": "A brief summary of the dream",
		},
	},
	"required":             []string{"tags", "category", "summary"},
	"additionalProperties": false,
}

// AnnotationService calls an OpenAI-compatible completion endpoint with a
// strict JSON schema per operation.
type AnnotationService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter

	promptsMu sync.RWMutex
	prompts   models.PromptsConfig
}

// NewAnnotationService creates an annotation service from configuration
func NewAnnotationService(cfg *config.Config) *AnnotationService {
	return &AnnotationService{
		baseURL: strings.TrimSuffix(cfg.ProviderBaseURL, "/"),
		apiKey:  cfg.ProviderAPIKey,
		model:   cfg.ProviderModel,
		client:  &http.Client{Timeout: cfg.AnnotationTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.AnnotationRPS), 1),
		prompts: DefaultPrompts(),
	}
}

// DefaultPrompts returns the built-in prompt templates
func DefaultPrompts() models.PromptsConfig {
	return models.PromptsConfig{
		Interpret: models.PromptTemplate{System: interpretSystemPrompt, User: interpretUserPrompt},
		Classify:  models.PromptTemplate{System: classifySystemPrompt, User: classifyUserPrompt},
	}
}

// UpdatePrompts swaps in new prompt templates (used by the hot-reload watcher).
// Empty templates fall back to the built-in defaults.
func (s *AnnotationService) UpdatePrompts(prompts models.PromptsConfig) {
	defaults := DefaultPrompts()
	if prompts.Interpret.System == "" {
		prompts.Interpret = defaults.Interpret
	}
	if prompts.Classify.System == "" {
		prompts.Classify = defaults.Classify
	}

	s.promptsMu.Lock()
	s.prompts = prompts
	s.promptsMu.Unlock()
	log.Println("🔄 [ANNOTATION] Prompt templates updated")
}

func (s *AnnotationService) currentPrompts() models.PromptsConfig {
	s.promptsMu.RLock()
	defer s.promptsMu.RUnlock()
	return s.prompts
}

// Interpret requests a free-text interpretation of the dream
func (s *AnnotationService) Interpret(ctx context.Context, details, culturalContext string) (*models.InterpretationResult, error) {
	tpl := s.currentPrompts().Interpret
	content, err := s.complete(ctx, "dream_interpretation", tpl, details, culturalContext, interpretationSchema)
	if err != nil {
		return nil, err
	}

	var result models.InterpretationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse interpretation: %w", err)
	}
	if strings.TrimSpace(result.Interpretation) == "" {
		return nil, fmt.Errorf("interpretation response missing required field")
	}
	return &result, nil
}

// Classify requests tags, a category and a summary for the dream
func (s *AnnotationService) Classify(ctx context.Context, details string) (*models.ClassificationResult, error) {
	tpl := s.currentPrompts().Classify
	content, err := s.complete(ctx, "dream_classification", tpl, details, "", classificationSchema)
	if err != nil {
		return nil, err
	}

	var result models.ClassificationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	if strings.TrimSpace(result.Category) == "" || strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("classification response missing required fields")
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return &result, nil
}

// complete sends one chat completion request with strict structured output
// and returns the raw message content. No retries: the caller decides what
// a failed leg means for the submission.
func (s *AnnotationService) complete(
	ctx context.Context,
	schemaName string,
	tpl models.PromptTemplate,
	details, culturalContext string,
	schema map[string]interface{},
) (string, error) {
	start := time.Now()
	if m := GetMetrics(); m != nil {
		m.AnnotationRequests.Inc()
		defer func() {
			m.AnnotationLatency.Observe(time.Since(start).Seconds())
		}()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait aborted: %w", err)
	}

	userPrompt := strings.NewReplacer(
		"{{details}}", details,
		"{{cultural_context}}", culturalContext,
	).Replace(tpl.User)

	requestBody := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": tpl.System},
			{"role": "user", "content": userPrompt},
		},
		"stream":      false,
		"temperature": 0.7,
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schemaName,
				"strict": true,
				"schema": schema,
			},
		},
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ [ANNOTATION] API error for %s: %s", schemaName, string(body))
		return "", fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return apiResponse.Choices[0].Message.Content, nil
}
