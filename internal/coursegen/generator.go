// Package coursegen asks a text generator for course content. It is the
// only part of the pipeline that performs network I/O, and it never fails:
// every problem yields a nil plan and the caller falls back to
// deterministic content.
package coursegen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/llm"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/plan"
)

// Purpose labels recorded with each LLM request.
const (
	PurposeCourse = "course-gen"
	PurposeStudio = "studio-gen"
	PurposeModule = "module-gen"
)

// Generator produces candidate plans.
type Generator struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a Generator. A nil provider is allowed and makes every call
// return nil, which puts the pipeline in fallback-only mode.
func New(provider llm.Provider, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, cfg: cfg, logger: logger, metrics: m}
}

// Available reports whether a provider is configured.
func (g *Generator) Available() bool {
	return g != nil && g.provider != nil
}

// GenerateCourse requests a whole three-module course for subject.
func (g *Generator) GenerateCourse(ctx context.Context, subject string) *plan.Course {
	raw := g.generate(ctx, PurposeCourse, buildCourseMessage(subject), plan.CourseSchema)
	if raw == nil {
		return nil
	}
	c, err := plan.DecodeCourse(raw)
	if err != nil {
		g.fail(PurposeCourse, "decode", err)
		return nil
	}
	g.metrics.ObserveGeneration(PurposeCourse, metrics.OutcomeGenerated)
	return c
}

// GenerateStudio requests a blueprint and opening module for subject.
func (g *Generator) GenerateStudio(ctx context.Context, subject string) *plan.Course {
	raw := g.generate(ctx, PurposeStudio, buildStudioMessage(subject), plan.StudioSchema)
	if raw == nil {
		return nil
	}
	c, err := plan.DecodeCourse(raw)
	if err != nil {
		g.fail(PurposeStudio, "decode", err)
		return nil
	}
	g.metrics.ObserveGeneration(PurposeStudio, metrics.OutcomeGenerated)
	return c
}

// GenerateModule requests the next staged module.
func (g *Generator) GenerateModule(ctx context.Context, in ModuleInput) *plan.Module {
	raw := g.generate(ctx, PurposeModule, buildModuleMessage(in, g.cfg.HistoryWindow), plan.ModuleSchema)
	if raw == nil {
		return nil
	}
	m, err := plan.DecodeModule(raw)
	if err != nil {
		g.fail(PurposeModule, "decode", err)
		return nil
	}
	g.metrics.ObserveGeneration(PurposeModule, metrics.OutcomeGenerated)
	return m
}

// generate runs one request and returns the JSON object it produced, or
// nil after logging why not.
func (g *Generator) generate(ctx context.Context, purpose, userMsg string, schema *llm.Schema) (raw []byte) {
	if g == nil {
		return nil
	}
	if !g.Available() {
		g.metrics.ObserveGeneration(purpose, metrics.OutcomeFallback)
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			g.fail(purpose, "panic", fmt.Errorf("%v", r))
			raw = nil
		}
	}()

	ctx = llm.WithPurpose(ctx, purpose)
	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}
	if g.cfg.Structured {
		req.Schema = schema
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		g.fail(purpose, "provider", err)
		return nil
	}

	text := resp.Text()
	obj := ExtractJSON(text)
	if obj == "" {
		g.fail(purpose, "extract", fmt.Errorf("no JSON object in %d bytes of output", len(text)))
		return nil
	}
	return []byte(obj)
}

func (g *Generator) fail(purpose, stage string, err error) {
	g.logger.Warn("content generation failed, using fallback",
		zap.String("purpose", purpose),
		zap.String("stage", stage),
		zap.Error(err))
	g.metrics.ObserveGeneration(purpose, metrics.OutcomeFallback)
}
