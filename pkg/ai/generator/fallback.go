package generator

import (
	"fmt"
	"strings"
	"unicode"

	"startup-hunter-be/pkg/store"
)

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func topicOf(domain string) string {
	if strings.TrimSpace(domain) == "" {
		return "startups"
	}
	return strings.TrimSpace(domain)
}

// FallbackTrends builds four domain-derived trends, already sorted by
// score. Titles of the first raw items are reused as evidence.
func FallbackTrends(domain string, raw []store.RawItem) []store.Trend {
	topic := topicOf(domain)
	title := capitalize(topic)

	var samples []string
	for _, item := range raw {
		if t, ok := item["title"].(string); ok && t != "" {
			samples = append(samples, t)
		}
		if len(samples) == 3 {
			break
		}
	}
	sample := func(i int, def string) string {
		if i < len(samples) {
			return samples[i]
		}
		return def
	}

	return []store.Trend{
		{
			ID: "trend-1", Title: fmt.Sprintf("AI-Powered %s Automation Platform", title),
			Score: 78, Momentum: 9, Pain: 9, Competition: 7, Complexity: 5,
			PainPoints: []string{
				fmt.Sprintf("Manual %s processes waste 10+ hours per week", topic),
				"Existing tools too complex for non-technical users",
				fmt.Sprintf("High cost of %s specialists", topic),
			},
			Evidence: []store.Evidence{
				{Source: "Product Hunt", URL: "#", Snippet: sample(0, "AI automation trending")},
				{Source: "Reddit", URL: "#", Snippet: fmt.Sprintf("Users complaining about %s inefficiency", topic)},
			},
		},
		{
			ID: "trend-2", Title: fmt.Sprintf("Real-time Collaboration Tools for %s", title),
			Score: 72, Momentum: 8, Pain: 8, Competition: 6, Complexity: 6,
			PainPoints: []string{
				fmt.Sprintf("Teams struggle with async %s communication", topic),
				"Video calls for simple status updates waste time",
				"Context loss between meetings",
			},
			Evidence: []store.Evidence{
				{Source: "GitHub", URL: "#", Snippet: sample(1, "Collaboration tools trending")},
				{Source: "Hacker News", URL: "#", Snippet: "Remote work challenges discussion"},
			},
		},
		{
			ID: "trend-3", Title: fmt.Sprintf("Mobile-First %s Assistant", title),
			Score: 68, Momentum: 7, Pain: 7, Competition: 8, Complexity: 4,
			PainPoints: []string{
				fmt.Sprintf("No good mobile solution for %s", topic),
				"Need to access desktop for simple tasks",
				"Voice input would save time",
			},
			Evidence: []store.Evidence{
				{Source: "Product Hunt", URL: "#", Snippet: sample(2, "Mobile apps gaining traction")},
				{Source: "Reddit", URL: "#", Snippet: fmt.Sprintf("Mobile %s requests", topic)},
			},
		},
		{
			ID: "trend-4", Title: fmt.Sprintf("Analytics Dashboard for %s Metrics", title),
			Score: 65, Momentum: 6, Pain: 8, Competition: 7, Complexity: 5,
			PainPoints: []string{
				fmt.Sprintf("Hard to track %s KPIs", topic),
				"Data scattered across multiple tools",
				"No actionable insights from raw data",
			},
			Evidence: []store.Evidence{
				{Source: "GitHub", URL: "#", Snippet: "Analytics tools popular"},
				{Source: "Hacker News", URL: "#", Snippet: "Data-driven decision making"},
			},
		},
	}
}

// FallbackIdeas derives five ideas from the trend title. The first is
// recommended.
func FallbackIdeas(trend store.Trend) []store.Idea {
	t := trend.Title
	if t == "" {
		t = "Unknown Trend"
	}
	return []store.Idea{
		{
			ID: "idea-1", Title: t + " - MVP Version",
			Tagline:     fmt.Sprintf("Solve %s pain points with AI automation", t),
			Reasoning:   fmt.Sprintf("Based on the '%s' trend, this idea targets the core problem with minimal features. The wedge is focusing on a specific niche first.", t),
			Market:      "1M potential users x $50/month = $600M TAM",
			Wedge:       "Start with early adopters in tech-forward companies",
			MVPTime:     "4 weeks",
			Recommended: true,
		},
		{
			ID: "idea-2", Title: "Mobile-First " + t,
			Tagline:   "Access on-the-go with voice and mobile-first UX",
			Reasoning: "Mobile accessibility addresses a gap in existing solutions",
			Market:    "500K users x $30/month = $180M TAM",
			Wedge:     "Target remote workers and freelancers first",
			MVPTime:   "6 weeks",
		},
		{
			ID: "idea-3", Title: "Open Source " + t + " Alternative",
			Tagline:   "Self-hosted, customizable, no vendor lock-in",
			Reasoning: "Open source appeals to privacy-conscious and cost-sensitive segments",
			Market:    "100K companies x $100/year = $10M TAM",
			Wedge:     "GitHub community and developer advocacy",
			MVPTime:   "8 weeks",
		},
		{
			ID: "idea-4", Title: t + " Analytics Dashboard",
			Tagline:   "Track metrics and ROI in real-time",
			Reasoning: "Analytics layer adds value on top of existing solutions",
			Market:    "200K users x $20/month = $48M TAM",
			Wedge:     "Partner with existing tools via integrations",
			MVPTime:   "5 weeks",
		},
		{
			ID: "idea-5", Title: "AI Co-pilot for " + t,
			Tagline:   "Chat-style assistant for domain-specific tasks",
			Reasoning: "AI assistant paradigm is proven and users are familiar",
			Market:    "300K users x $40/month = $144M TAM",
			Wedge:     "Fine-tuned model with domain knowledge",
			MVPTime:   "7 weeks",
		},
	}
}

// FallbackProposal fills the ten proposal sections from the idea.
func FallbackProposal(idea store.Idea) []store.ProposalSection {
	title := idea.Title
	if title == "" {
		title = "MVP Startup"
	}
	wedge := idea.Wedge
	if wedge == "" {
		wedge = "starting with a specific niche"
	}
	tagline := idea.Tagline
	if tagline == "" {
		tagline = "Solving problems"
	}

	return []store.ProposalSection{
		{Title: "Problem Statement", Content: fmt.Sprintf("**%s** (%s) addresses a critical gap in the market. Users currently face significant pain points that lead to wasted time, inefficiency, and frustration. The urgency is driven by increasing market demand and competitive pressure.", title, tagline)},
		{Title: "Target User Persona", Content: "**Persona 1**: Tech-forward professionals aged 25-40 who value efficiency and are early adopters of new tools.\n\n**Persona 2**: Small business owners who need cost-effective solutions without sacrificing quality."},
		{Title: "Current Alternatives", Content: "**Competitor A**: Expensive enterprise solution with high complexity.\n**Competitor B**: Basic free tool lacking advanced features.\n**Competitor C**: Outdated UI and poor mobile experience."},
		{Title: "Unique Wedge", Content: fmt.Sprintf("Our unfair advantage is %s. We launch at the right time as the market is mature enough for adoption but underserved by current solutions.", wedge)},
		{Title: "MVP Scope", Content: "**Must-have features**: Core workflow automation, user dashboard, basic analytics.\n\n**Out of scope**: Advanced integrations, white-label solutions, enterprise features."},
		{Title: "Key User Flows", Content: "**Flow 1**: Onboarding -> Connect data source -> View insights -> Take action\n**Flow 2**: Daily usage -> Quick access -> Complete task -> View results"},
		{Title: "Data & Model Plan", Content: "**Tech stack**: Next.js, PostgreSQL, LLM API\n**Storage**: Cloud-based with encryption\n**Compliance**: GDPR-ready data handling"},
		{Title: "Go-to-Market", Content: fmt.Sprintf("**First 50 users**: %s\n**Pricing**: $50/month with 14-day free trial\n**Channels**: Product Hunt launch, relevant subreddits, direct outreach", wedge)},
		{Title: "Risks & Mitigations", Content: "**Risk 1**: Low adoption -> Mitigation: Pre-launch waitlist and beta testing\n**Risk 2**: Technical complexity -> Mitigation: Start with proven tech stack\n**Risk 3**: Competition -> Mitigation: Focus on niche wedge first"},
		{Title: "2-Week Roadmap", Content: "**Week 1**:\n- Day 1-2: Project setup\n- Day 3-5: Core feature implementation\n- Day 6-7: UI polish\n\n**Week 2**:\n- Day 8-10: Testing and bug fixes\n- Day 11-12: Deployment\n- Day 13-14: Beta launch and feedback collection"},
	}
}
