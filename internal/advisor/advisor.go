// Package advisor answers free-text farming questions through a generative
// language API, falling back across an ordered list of models.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/farmerhub/marketplace-api/internal/metrics"
)

var ErrEmptyQuery = errors.New("query is required")

// DefaultModels is the fallback order used when none is configured
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

const systemPrompt = `You are FarmerHub's agricultural assistant. Give practical, concise advice
on crops, soil, irrigation, pests, weather and market prices to small farmers.
If a question is unrelated to farming, politely steer back to agriculture.`

// Generator produces text from a prompt with a specific model
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string) (string, error)
}

// Answer is a successful reply and the model that produced it
type Answer struct {
	Text  string `json:"answer"`
	Model string `json:"model"`
}

// Advisor tries each model in order until one returns text
type Advisor struct {
	gen     Generator
	models  []string
	delay   time.Duration
	metrics *metrics.AppMetrics
}

func New(gen Generator, models []string, delay time.Duration, m *metrics.AppMetrics) *Advisor {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Advisor{gen: gen, models: models, delay: delay, metrics: m}
}

// Ask returns the first non-empty answer. When every model fails the last
// error is returned wrapped.
func (a *Advisor) Ask(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var lastErr error
	for i, model := range a.models {
		if i > 0 && a.delay > 0 {
			timer := time.NewTimer(a.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		text, err := a.gen.Generate(ctx, model, systemPrompt, query)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("empty response from %s", model)
		}
		if err != nil {
			lastErr = err
			log.Printf("[AI] Model %s failed (attempt %d/%d): %v", model, i+1, len(a.models), err)
			a.metrics.Inc(ctx, a.metrics.AIRequestsTotal, attribute.String("model", model), attribute.String("outcome", "error"))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		a.metrics.Inc(ctx, a.metrics.AIRequestsTotal, attribute.String("model", model), attribute.String("outcome", "success"))
		return &Answer{Text: text, Model: model}, nil
	}

	return nil, fmt.Errorf("all %d AI models failed: %w", len(a.models), lastErr)
}
