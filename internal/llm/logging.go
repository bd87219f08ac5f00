package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/store"
)

// maxRecordedBody caps request and response bodies kept per event.
const maxRecordedBody = 64 << 10

// LoggingProvider records every call as an LLM request event.
type LoggingProvider struct {
	inner  Provider
	events store.EventRepo
	logger *zap.Logger
	now    func() time.Time
}

// WithLogging wraps p. Failing to record an event never fails the call.
func WithLogging(p Provider, events store.EventRepo, logger *zap.Logger) *LoggingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, events: events, logger: logger, now: time.Now}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    providerName(l.inner),
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   l.now().Sub(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: clip(describeRequest(req)),
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.ResponseBody = clip(string(resp.Content))
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	// The call's own deadline may have fired; the record should still land.
	if rerr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); rerr != nil {
		l.logger.Warn("failed to record LLM request event",
			zap.String("purpose", ev.Purpose), zap.Error(rerr))
	}
	l.logger.Debug("llm request",
		zap.String("provider", ev.Provider),
		zap.String("model", ev.Model),
		zap.String("purpose", ev.Purpose),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Bool("success", ev.Success))
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *LoggingProvider) ProviderName() string { return providerName(l.inner) }

// describeRequest renders a request the way `supertutor llm view` shows it.
func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n" + req.System + "\n\n")
	}
	for _, m := range req.Messages {
		b.WriteString("[" + string(m.Role) + "]\n" + m.Content + "\n\n")
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			b.WriteString("[schema: " + req.Schema.Name + "]\n" + string(def) + "\n")
		}
	}
	return b.String()
}

func clip(s string) string {
	if len(s) <= maxRecordedBody {
		return s
	}
	return s[:maxRecordedBody] + "\n…(truncated)"
}
