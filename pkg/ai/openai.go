package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	hintDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "labreport",
		Subsystem: "ai",
		Name:      "hint_duration_seconds",
		Help:      "Duration of AI hint requests",
	}, []string{"model"})

	hintFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labreport",
		Subsystem: "ai",
		Name:      "hint_failures_total",
		Help:      "Number of AI hint failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI hint generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIHinter implements HintGenerator against the OpenAI chat completion API.
type OpenAIHinter struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIHinter builds a new hint generator using the provided configuration.
func NewOpenAIHinter(cfg OpenAIConfig) (*OpenAIHinter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	tracer := otel.Tracer("github.com/noah-isme/labreport-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIHinter{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// GenerateHint sends the hint request to OpenAI and parses the response.
func (h *OpenAIHinter) GenerateHint(parent context.Context, input HintInput) (HintResult, error) {
	ctx, span := h.tracer.Start(parent, "openai.hint", trace.WithAttributes(
		attribute.String("model", h.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       h.cfg.Model,
		MaxTokens:   h.cfg.MaxTokens,
		Temperature: h.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: hintSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildHintPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := h.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	hintDuration.WithLabelValues(h.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		hintFailures.WithLabelValues(h.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return HintResult{}, fmt.Errorf("openai hint: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		hintFailures.WithLabelValues(h.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return HintResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseHintResponse(content)
	if err != nil {
		hintFailures.WithLabelValues(h.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return HintResult{}, err
	}

	h.logger.Debug().
		Str("model", h.cfg.Model).
		Dur("duration", duration).
		Msg("hint generated")

	return result, nil
}

func hintSystemPrompt() string {
	return "You are a lab assistant helping a student work through a lab report. Respond with a JSON object " +
		"containing a single \"hint\" string that nudges the student toward the answer. Never state the " +
		"answer itself and never quote the reference answer."
}

func buildHintPrompt(input HintInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.Question)
	builder.WriteString("\n\n## Student's Current Answer\n")
	builder.WriteString(input.Current)
	if input.Reference != "" {
		builder.WriteString("\n\n## Reference Answer (never reveal)\n")
		builder.WriteString(input.Reference)
	}
	for _, prev := range input.Context {
		builder.WriteString("\n\n## Earlier Question\n")
		builder.WriteString(prev.Question)
		builder.WriteString("\n### Student's Answer\n")
		builder.WriteString(prev.Answer)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseHintResponse(content string) (HintResult, error) {
	var result HintResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return HintResult{}, fmt.Errorf("parse hint json: %w", err)
	}

	if strings.TrimSpace(result.Hint) == "" {
		return HintResult{}, fmt.Errorf("empty hint returned")
	}

	return result, nil
}
