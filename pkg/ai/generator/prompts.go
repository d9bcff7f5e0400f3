package generator

import (
	"encoding/json"
	"strings"

	"startup-hunter-be/pkg/store"
)

const (
	maxPromptItems = 50
	noMemory       = "No previous context"
)

func toJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func buildClusterPrompt(raw []store.RawItem, domain string) string {
	if len(raw) > maxPromptItems {
		raw = raw[:maxPromptItems]
	}
	focus := domain
	if strings.TrimSpace(focus) == "" {
		focus = "Any domain"
	}

	var sb strings.Builder
	sb.WriteString("You are a trend analyst for startup ideas. Analyze this scraped data and identify 5 distinct trending opportunities.\n\n")
	sb.WriteString("Domain focus: " + focus + "\n\n")
	sb.WriteString("Raw Data from Product Hunt, GitHub, Reddit, Hacker News:\n")
	sb.WriteString(toJSON(raw))
	sb.WriteString("\n\nFor each trend, provide:\n")
	sb.WriteString("1. A clear title\n2. Extracted pain points (quotes or patterns from the data)\n3. Evidence (sources and snippets)\n")
	sb.WriteString("4. Scores on a 0-10 scale: momentum (growth), pain (severity), competition (0 = many solutions, 10 = few), complexity (0 = hard, 10 = easy)\n\n")
	sb.WriteString("Opportunity score (0-100) follows (momentum x 2) + (pain x 3) - competition - complexity.\n\n")
	sb.WriteString(`Return JSON: {"trends": [{"id": "trend-1", "title": "...", "score": 85, "momentum": 9, "pain": 10, "competition": 6, "complexity": 4, "painPoints": ["..."], "evidence": [{"source": "Reddit", "url": "...", "snippet": "..."}]}]}`)
	sb.WriteString("\n\nReturn ONLY valid JSON.")
	return sb.String()
}

func buildIdeasPrompt(trend store.Trend, userContext map[string]interface{}, memoryText string) string {
	if userContext == nil {
		userContext = map[string]interface{}{}
	}
	if strings.TrimSpace(memoryText) == "" {
		memoryText = noMemory
	}

	var sb strings.Builder
	sb.WriteString("You are a startup idea generator. Based on this trend and user context, generate 5 distinct startup ideas.\n\n")
	sb.WriteString("Selected Trend:\n" + toJSON(trend) + "\n\n")
	sb.WriteString("User Context:\n" + toJSON(userContext) + "\n\n")
	sb.WriteString("Previous Memory (rejected ideas, preferences):\n" + memoryText + "\n\n")
	sb.WriteString("For each idea give a title, a 10-15 word tagline, reasoning (3-4 sentences referencing the trend, context and memory), market size (TAM), a unique wedge, a realistic MVP time estimate, and a recommended flag (true for the single best idea).\n\n")
	sb.WriteString(`Return JSON: {"ideas": [{"id": "idea-1", "title": "...", "tagline": "...", "reasoning": "...", "market": "...", "wedge": "...", "mvpTime": "N weeks", "recommended": true}]}`)
	sb.WriteString("\n\nReturn ONLY valid JSON.")
	return sb.String()
}

func buildProposalPrompt(idea store.Idea, trend store.Trend) string {
	var sb strings.Builder
	sb.WriteString("You are a startup strategist writing a detailed proposal.\n\n")
	sb.WriteString("Selected Idea:\n" + toJSON(idea) + "\n\n")
	sb.WriteString("Original Trend Context:\n" + toJSON(trend) + "\n\n")
	sb.WriteString("Write a 10-section proposal: Problem Statement, Target User Persona, Current Alternatives, Unique Wedge, MVP Scope, Key User Flows, Data & Model Plan, Go-to-Market, Risks & Mitigations, 2-Week Roadmap.\n")
	sb.WriteString("Each section should be 2-4 paragraphs of concrete, actionable markdown.\n\n")
	sb.WriteString(`Return JSON: {"sections": [{"title": "Problem Statement", "content": "..."}]}`)
	sb.WriteString("\n\nReturn ONLY valid JSON.")
	return sb.String()
}
