// Package ai wraps the hosted model used for maintenance task suggestions and
// task relevance verdicts. Both calls are best effort: failures are logged and
// replaced by a conservative fallback, never returned.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ioezgamer/studio/internal/obs"
	"github.com/ioezgamer/studio/internal/store"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const RelevanceFallbackExplanation = "could not check relevance"

const suggestPrompt = `You are an expert maintenance technician. Based on the equipment type below, list the common preventive and corrective maintenance tasks for it. Keep each task short and actionable. Answer in Latin American Spanish.

Equipment type: %s`

const relevancePrompt = `You are an expert maintenance technician reviewing a maintenance log. Decide whether the task below is a relevant maintenance task for the given equipment type, and explain your verdict in one short sentence in Latin American Spanish.

Equipment type: %s
Task: %s`

var tasksSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tasks": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Maintenance tasks for the equipment type.",
		},
	},
	Required: []string{"tasks"},
}

var relevanceSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isRelevant":           {Type: genai.TypeBoolean},
		"relevanceExplanation": {Type: genai.TypeString},
	},
	Required: []string{"isRelevant", "relevanceExplanation"},
}

type Assistant struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewAssistant accepts a nil generator; every call then takes the fallback path.
func NewAssistant(gen Generator, timeout time.Duration, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{gen: gen, timeout: timeout, logger: logger}
}

// SuggestTasks never fails; on any error it returns an empty, non-nil slice.
func (a *Assistant) SuggestTasks(ctx context.Context, equipmentType string) []string {
	equipmentType = strings.TrimSpace(equipmentType)
	if equipmentType == "" {
		return []string{}
	}

	var out struct {
		Tasks []string `json:"tasks"`
	}
	if err := a.generate(ctx, fmt.Sprintf(suggestPrompt, equipmentType), tasksSchema, &out); err != nil {
		a.fallback("suggest_tasks", err, zap.String("equipment", equipmentType))
		return []string{}
	}

	tasks := make([]string, 0, len(out.Tasks))
	for _, task := range out.Tasks {
		if task = strings.TrimSpace(task); task != "" {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// CheckRelevance never fails; on any error the verdict is "not relevant" with
// RelevanceFallbackExplanation.
func (a *Assistant) CheckRelevance(ctx context.Context, equipmentType, taskDescription string) store.Relevance {
	var out struct {
		IsRelevant  *bool  `json:"isRelevant"`
		Explanation string `json:"relevanceExplanation"`
	}
	prompt := fmt.Sprintf(relevancePrompt, strings.TrimSpace(equipmentType), strings.TrimSpace(taskDescription))
	err := a.generate(ctx, prompt, relevanceSchema, &out)
	if err == nil && out.IsRelevant == nil {
		err = fmt.Errorf("%w: missing isRelevant", ErrEmptyResponse)
	}
	if err != nil {
		a.fallback("check_relevance", err, zap.String("equipment", equipmentType))
		return store.Relevance{IsRelevant: false, Explanation: RelevanceFallbackExplanation}
	}
	return store.Relevance{IsRelevant: *out.IsRelevant, Explanation: strings.TrimSpace(out.Explanation)}
}

func (a *Assistant) generate(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	if a.gen == nil {
		return ErrNotConfigured
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	text, err := a.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

func (a *Assistant) fallback(operation string, err error, fields ...zap.Field) {
	obs.AIFallbacks.WithLabelValues(operation).Inc()
	a.logger.Warn("ai fallback", append(fields, zap.String("operation", operation), zap.Error(err))...)
}

// stripFence removes a ```json fence some models add despite the MIME type.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
