// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package ai scores user reports with a language model.
//
// Analysis is asynchronous and strictly optional: the heuristic confidence
// path never waits on it. A primary and a fallback provider are configured;
// on any primary error the fallback is tried, and when both fail the caller
// keeps the heuristic score. Admission is gated by an hourly quota and a
// 24-hour content-hash cache so repeated submissions of the same text do
// not spend quota.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/goccy/go-json"

	"github.com/myr0nl/EvacuationHub-sub000/internal/logging"
	"github.com/myr0nl/EvacuationHub-sub000/internal/metrics"
)

// Package errors. Callers map these onto ai_analysis_status transitions.
var (
	ErrNotConfigured  = errors.New("ai: no provider configured")
	ErrQuotaExhausted = errors.New("ai: hourly quota exhausted")
	ErrAllProviders   = errors.New("ai: all providers failed")
)

// Assessment is the structured model output.
type Assessment struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	Provider  string  `json:"provider,omitempty"`
}

// Provider is one model backend.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, prompt string) (*Assessment, error)
}

// llmProvider adapts a langchaingo model to Provider.
type llmProvider struct {
	name  string
	model llms.Model
}

// NewOpenAIProvider builds the OpenAI-backed provider.
func NewOpenAIProvider(apiKey, model string) (Provider, error) {
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("init openai: %w", err)
	}
	return &llmProvider{name: "openai", model: llm}, nil
}

// NewGeminiProvider builds the Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (Provider, error) {
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	return &llmProvider{name: "gemini", model: llm}, nil
}

func (p *llmProvider) Name() string { return p.name }

func (p *llmProvider) Analyze(ctx context.Context, prompt string) (*Assessment, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt,
		llms.WithTemperature(0.2),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", p.name, err)
	}
	assessment, err := parseAssessment(out)
	if err != nil {
		return nil, fmt.Errorf("%s output: %w", p.name, err)
	}
	assessment.Provider = p.name
	return assessment, nil
}

// parseAssessment decodes the model's JSON reply, tolerating markdown code
// fences some models wrap around JSON mode output.
func parseAssessment(out string) (*Assessment, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var a Assessment
	if err := json.Unmarshal([]byte(out), &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	if a.Score < 0 || a.Score > 1 {
		return nil, fmt.Errorf("assessment score %v out of [0,1]", a.Score)
	}
	return &a, nil
}

// Chain tries the primary provider, then the fallback.
type Chain struct {
	primary  Provider
	fallback Provider
}

// NewChain builds the provider chain; either slot may be nil.
func NewChain(primary, fallback Provider) *Chain {
	return &Chain{primary: primary, fallback: fallback}
}

// Configured reports whether at least one provider exists.
func (c *Chain) Configured() bool {
	return c != nil && (c.primary != nil || c.fallback != nil)
}

// Analyze runs the prompt through the chain: primary first, fallback on any
// error.
func (c *Chain) Analyze(ctx context.Context, prompt string) (*Assessment, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	var primaryErr error
	if c.primary != nil {
		a, err := c.primary.Analyze(ctx, prompt)
		if err == nil {
			metrics.AIRequests.WithLabelValues(c.primary.Name(), "success").Inc()
			return a, nil
		}
		primaryErr = err
		metrics.AIRequests.WithLabelValues(c.primary.Name(), "error").Inc()
		logging.Warn().Err(err).Str("provider", c.primary.Name()).Msg("primary ai provider failed")
	}
	if c.fallback != nil {
		a, err := c.fallback.Analyze(ctx, prompt)
		if err == nil {
			metrics.AIRequests.WithLabelValues(c.fallback.Name(), "success").Inc()
			return a, nil
		}
		metrics.AIRequests.WithLabelValues(c.fallback.Name(), "error").Inc()
		logging.Warn().Err(err).Str("provider", c.fallback.Name()).Msg("fallback ai provider failed")
		return nil, fmt.Errorf("%w: %v", ErrAllProviders, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllProviders, primaryErr)
}
