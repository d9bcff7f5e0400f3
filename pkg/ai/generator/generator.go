package generator

import (
	"context"
	"fmt"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/llm"
	"startup-hunter-be/pkg/result"
	"startup-hunter-be/pkg/store"
)

const module = "Generator"

const (
	systemAnalyst    = "You are a startup trend analyst. Return only valid JSON."
	systemIdeas      = "You are a startup idea generator. Return only valid JSON."
	systemStrategist = "You are a startup strategist. Return only valid JSON."
)

type IGenerator interface {
	ClusterTrends(ctx context.Context, raw []store.RawItem, domain string) result.Result[[]store.Trend]
	GenerateIdeas(ctx context.Context, trend store.Trend, userContext map[string]interface{}, memoryText string) result.Result[[]store.Idea]
	GenerateProposal(ctx context.Context, idea store.Idea, trend store.Trend) result.Result[[]store.ProposalSection]
}

// Generator turns pipeline artifacts into LLM prompts and parses the
// replies. A nil provider is the unconfigured state: every call returns
// fallback content.
type Generator struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

var _ IGenerator = (*Generator)(nil)

func New(provider llm.LLMProvider, log logger.ILogger) *Generator {
	return &Generator{provider: provider, logger: log}
}

func (g *Generator) Configured() bool {
	return g.provider != nil
}

func (g *Generator) ClusterTrends(ctx context.Context, raw []store.RawItem, domain string) result.Result[[]store.Trend] {
	return complete(ctx, g, "cluster_trends", systemAnalyst, buildClusterPrompt(raw, domain), 0.7, "trends", toTrends,
		func() []store.Trend { return FallbackTrends(domain, raw) })
}

func (g *Generator) GenerateIdeas(ctx context.Context, trend store.Trend, userContext map[string]interface{}, memoryText string) result.Result[[]store.Idea] {
	return complete(ctx, g, "generate_ideas", systemIdeas, buildIdeasPrompt(trend, userContext, memoryText), 0.8, "ideas", toIdeas,
		func() []store.Idea { return FallbackIdeas(trend) })
}

func (g *Generator) GenerateProposal(ctx context.Context, idea store.Idea, trend store.Trend) result.Result[[]store.ProposalSection] {
	return complete(ctx, g, "generate_proposal", systemStrategist, buildProposalPrompt(idea, trend), 0.7, "sections", toSections,
		func() []store.ProposalSection { return FallbackProposal(idea) })
}

// complete runs one JSON-mode chat call. Only a cancelled context is an
// error; every other failure degrades to the fallback value.
func complete[T any](
	ctx context.Context,
	g *Generator,
	task, system, prompt string,
	temperature float64,
	wrapperKey string,
	convert func([]map[string]interface{}) []T,
	fallback func() []T,
) result.Result[[]T] {
	if err := ctx.Err(); err != nil {
		return result.Err[[]T](err)
	}
	if g.provider == nil {
		return result.Fallback(fallback(), "llm provider not configured")
	}

	content, err := g.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.WithTemperature(temperature), llm.WithJSONResponse())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result.Err[[]T](ctxErr)
		}
		g.logger.Warn(module, "LLM call failed, using fallback", map[string]interface{}{"task": task, "error": err.Error()})
		return result.Fallback(fallback(), fmt.Sprintf("llm call failed: %v", err))
	}

	items, err := extractList(content, wrapperKey)
	if err == nil {
		if out := convert(items); len(out) > 0 {
			g.logger.Info(module, "LLM output parsed", map[string]interface{}{"task": task, "count": len(out)})
			return result.Ok(out)
		}
		err = fmt.Errorf("%w: no item had a title", ErrUnparseable)
	}

	g.logger.Warn(module, "LLM output unusable, using fallback", map[string]interface{}{"task": task, "error": err.Error()})
	return result.Fallback(fallback(), err.Error())
}
