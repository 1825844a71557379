package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/llmjson"
	"pcbuilder/internal/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const systemPrompt = "You are a PC building assistant."

// ErrMissingModelName is wrapped in an UpstreamError when a detail record has
// no model name.
var ErrMissingModelName = errors.New("component details missing modelName")

// UpstreamError reports a recommendation source that was unreachable or whose
// output could not be used.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recommendation source %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RecommendedPart is one category and the model suggested for it, in the
// order the source listed them.
type RecommendedPart struct {
	Category  string `json:"category"`
	ModelName string `json:"modelName"`
}

// RecommendationSource turns prompts into part suggestions.
type RecommendationSource interface {
	RecommendParts(ctx context.Context, budget float64, preferences string) ([]RecommendedPart, error)
	DescribeComponent(ctx context.Context, componentType, modelName string) (*models.Component, error)
	SuggestReplacement(ctx context.Context, componentType, currentModel, issue string) (string, error)
}

// RecommendationConfig configures the OpenAI-backed source.
type RecommendationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	RPS     float64       // outbound calls per second; <= 0 disables throttling
	Timeout time.Duration // 0 leaves the call unbounded
}

// RecommendationService is the OpenAI chat-completions RecommendationSource.
// The client never retries; a failed call is returned to the caller as is.
type RecommendationService struct {
	client  openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewRecommendationService creates the recommendation client
func NewRecommendationService(cfg RecommendationConfig) *RecommendationService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	logger.WithFields(logrus.Fields{
		"model":   model,
		"baseURL": cfg.BaseURL,
		"rps":     cfg.RPS,
	}).Info("Recommendation service initialized")

	return &RecommendationService{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: cfg.Timeout,
		limiter: limiter,
		logger:  logger,
	}
}

// RecommendParts asks for one model per category within budget. JSON-ish
// output is repaired; plain "Category: Model" lines are accepted as well.
func (s *RecommendationService) RecommendParts(ctx context.Context, budget float64, preferences string) ([]RecommendedPart, error) {
	prompt := fmt.Sprintf(`I am building a PC with a budget of %g EUR. My preferences are: %s.
Please recommend a compatible list of components (CPU, Motherboard, RAM, GPU, Storage, PSU, Case).
Just list the component types and their recommended model names as a JSON object, no extra explanation.
Example response:
{
    "CPU": "Intel Core i7-13700K",
    "Motherboard": "ASUS ROG Strix Z790-F",
    "RAM": "Corsair Vengeance DDR5 32GB",
    "GPU": "NVIDIA GeForce RTX 4070",
    "Storage": "Samsung 980 Pro 1TB",
    "PSU": "Corsair RM850x",
    "Case": "NZXT H510"
}`, budget, preferences)

	content, err := s.complete(ctx, "recommend_parts", prompt, 500)
	if err != nil {
		return nil, err
	}

	parts, err := ParseRecommendedParts(content)
	if err != nil {
		s.logger.WithError(err).WithField("content", content).Warn("Unusable part recommendation")
		return nil, &UpstreamError{Op: "recommend_parts", Err: err}
	}
	return parts, nil
}

// ParseRecommendedParts reads a category to model-name listing. A JSON object
// is preferred; otherwise "Category: Model" lines are collected. A category
// holding an array yields one part per entry.
func ParseRecommendedParts(content string) ([]RecommendedPart, error) {
	var parts []RecommendedPart

	if object, outcome, err := llmjson.Object(content); err == nil {
		if outcome == llmjson.Repaired {
			GetMetrics().RecordRepairedPayload()
		}
		gjson.Parse(object).ForEach(func(key, value gjson.Result) bool {
			category := strings.TrimSpace(key.String())
			entries := []gjson.Result{value}
			if value.IsArray() {
				entries = value.Array()
			}
			for _, entry := range entries {
				name := entry.String()
				if entry.IsObject() {
					name = entry.Get("modelName").String()
				}
				if name = models.NormalizeModelName(name); name != "" {
					parts = append(parts, RecommendedPart{Category: category, ModelName: name})
				}
			}
			return true
		})
	} else {
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
			category, name, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			category = strings.Trim(strings.TrimSpace(category), `"*`)
			name = models.NormalizeModelName(strings.Trim(strings.TrimSpace(name), `",*`))
			if category != "" && name != "" {
				parts = append(parts, RecommendedPart{Category: category, ModelName: name})
			}
		}
	}

	if len(parts) == 0 {
		return nil, errors.New("no parts recommended")
	}
	return parts, nil
}

// componentDetails is the shape requested from DescribeComponent.
type componentDetails struct {
	Type      string                 `json:"type"`
	Brand     string                 `json:"brand"`
	ModelName string                 `json:"modelName"`
	Socket    interface{}            `json:"socket"`
	Price     interface{}            `json:"price"`
	Specs     map[string]interface{} `json:"specs"`
}

// DescribeComponent asks for a full catalog record. The result is not
// persisted here.
func (s *RecommendationService) DescribeComponent(ctx context.Context, componentType, modelName string) (*models.Component, error) {
	prompt := fmt.Sprintf(`Please provide full technical details for the following %s: %s.
Format the response as JSON with keys: type, brand, modelName, price, specs (detailed object with all important attributes like socket, wattage, powerDraw, memoryType, formFactor, connectionType, sataPorts, nvmeSlots).
Example response for CPU:
{
    "type": "CPU",
    "brand": "Intel",
    "modelName": "Intel Core i7-13700K",
    "socket": "LGA1700",
    "price": 400,
    "specs": {
        "cores": 16,
        "threads": 24,
        "baseClock": "3.4GHz",
        "powerDraw": 125
    }
}`, componentType, modelName)

	content, err := s.complete(ctx, "describe_component", prompt, 600)
	if err != nil {
		return nil, err
	}

	component, err := ParseComponentDetails(content, componentType)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":      componentType,
			"modelName": modelName,
		}).Warn("Unusable component details")
		return nil, err
	}
	return component, nil
}

// ParseComponentDetails decodes a detail record. The price is coerced to a
// number (placeholder text becomes 0) and a missing type falls back to
// componentType.
func ParseComponentDetails(content, componentType string) (*models.Component, error) {
	var details componentDetails
	outcome, err := llmjson.Decode(content, &details)
	if err != nil {
		return nil, &UpstreamError{Op: "describe_component", Err: err}
	}
	if outcome == llmjson.Repaired {
		GetMetrics().RecordRepairedPayload()
	}

	name := models.NormalizeModelName(details.ModelName)
	if name == "" {
		return nil, &UpstreamError{Op: "describe_component", Err: ErrMissingModelName}
	}

	component := &models.Component{
		Type:      strings.TrimSpace(details.Type),
		Brand:     strings.TrimSpace(details.Brand),
		ModelName: name,
		Price:     models.CoerceNumber(details.Price),
		Specs:     details.Specs,
	}
	if component.Type == "" {
		component.Type = componentType
	}
	if socket, ok := details.Socket.(string); ok {
		component.Socket = strings.TrimSpace(socket)
	}
	component.Normalize()
	return component, nil
}

// SuggestReplacement asks for a single model of componentType that resolves
// issue. It is not called by the automatic build pipeline.
func (s *RecommendationService) SuggestReplacement(ctx context.Context, componentType, currentModel, issue string) (string, error) {
	prompt := fmt.Sprintf(`The %s "%s" causes this compatibility issue in a PC build: %s
Suggest one replacement %s that resolves it. Respond with the model name only.`,
		componentType, currentModel, issue, componentType)

	content, err := s.complete(ctx, "suggest_replacement", prompt, 100)
	if err != nil {
		return "", err
	}

	name := cleanModelLine(content)
	if name == "" {
		return "", &UpstreamError{Op: "suggest_replacement", Err: errors.New("empty suggestion")}
	}
	return name, nil
}

// cleanModelLine takes the first non-empty line of a free-text answer and
// strips fences and quotes.
func cleanModelLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return models.NormalizeModelName(strings.Trim(line, "\"'`*. "))
	}
	return ""
}

// complete runs one chat completion and returns the first choice.
func (s *RecommendationService) complete(ctx context.Context, op, prompt string, maxTokens int64) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", &UpstreamError{Op: op, Err: err}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:     openai.ChatModel(s.model),
		MaxTokens: openai.Int(maxTokens),
	})
	GetMetrics().RecordRecommendation(op, time.Since(start).Seconds(), err)

	if err != nil {
		s.logger.WithError(err).WithField("operation", op).Error("Recommendation request failed")
		return "", &UpstreamError{Op: op, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Op: op, Err: errors.New("no choices in response")}
	}

	s.logger.WithFields(logrus.Fields{
		"operation": op,
		"duration":  time.Since(start).String(),
	}).Debug("Recommendation request completed")
	return resp.Choices[0].Message.Content, nil
}
