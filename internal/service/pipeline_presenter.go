package service

import (
	"fmt"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/pkg/store"
	"startup-hunter-be/pkg/workflow"
)

func summarize(step workflow.Step, s store.Session) map[string]interface{} {
	summary := map[string]interface{}{"stage": string(s.Stage)}
	switch step {
	case workflow.StepCollectTrends:
		summary["raw_items"] = len(s.RawTrendItems)
	case workflow.StepClusterTrends:
		summary["trends"] = len(s.Trends)
	case workflow.StepGenerateIdeas:
		summary["ideas"] = len(s.Ideas)
		if s.SelectedTrend != nil {
			summary["selected_trend"] = s.SelectedTrend.ID
		}
	case workflow.StepGenerateProposal:
		summary["sections"] = len(s.Proposal)
		if s.SelectedIdea != nil {
			summary["selected_idea"] = s.SelectedIdea.ID
		}
	case workflow.StepBuildMVP:
		summary["log_entries"] = len(s.BuildLog)
		if s.Server != nil {
			summary["url"] = s.Server.URL
		}
	case workflow.StepTestMVP:
		if s.TestReport != nil {
			summary["overall"] = s.TestReport.Overall
			summary["steps"] = len(s.TestReport.Steps)
		}
	}
	return summary
}

func trendsResponse(s store.Session) *dto.ChatResponse {
	return &dto.ChatResponse{
		SessionId: s.ID,
		Message:   fmt.Sprintf("Found %d trending opportunities in %s! Here are the top ones based on momentum, pain severity, and competition:", len(s.Trends), s.Domain),
		Stage:     dto.ChatStageTrends,
		EmbedType: "trends",
		EmbedData: s.Trends,
		Synthetic: s.Synthetic.RawItems || s.Synthetic.Trends,
	}
}

func ideasResponse(s store.Session) *dto.ChatResponse {
	msg := fmt.Sprintf("I've generated %d startup ideas.", len(s.Ideas))
	for _, idea := range s.Ideas {
		if idea.Recommended {
			msg = fmt.Sprintf("I've generated %d startup ideas. I'm recommending %s based on your constraints:", len(s.Ideas), idea.Title)
			break
		}
	}
	return &dto.ChatResponse{
		SessionId: s.ID,
		Message:   msg,
		Stage:     dto.ChatStageIdeas,
		EmbedType: "ideas",
		EmbedData: s.Ideas,
		Synthetic: s.Synthetic.Ideas,
	}
}

func proposalResponse(s store.Session) *dto.ChatResponse {
	return &dto.ChatResponse{
		SessionId: s.ID,
		Message:   fmt.Sprintf("Here's a detailed %d-section proposal for your startup:", len(s.Proposal)),
		Stage:     dto.ChatStageProposal,
		EmbedType: "proposal",
		EmbedData: s.Proposal,
		Synthetic: s.Synthetic.Proposal,
	}
}

func buildResponse(s store.Session) *dto.ChatResponse {
	embed := dto.BuildEmbed{Logs: s.BuildLog}
	msg := "Your MVP is built."
	if s.Server != nil {
		embed.URL = s.Server.URL
		embed.Port = s.Server.Port
		msg = fmt.Sprintf("Your MVP is running at %s", s.Server.URL)
	}
	return &dto.ChatResponse{
		SessionId: s.ID,
		Message:   msg,
		Stage:     dto.ChatStageBuild,
		EmbedType: "build",
		EmbedData: embed,
	}
}

func testResponse(s store.Session) *dto.ChatResponse {
	msg := "Some tests failed. Check the report for details."
	if s.TestReport != nil && s.TestReport.Overall == store.TestPassed {
		msg = "All tests passed! Your MVP is ready."
	}
	return &dto.ChatResponse{
		SessionId: s.ID,
		Message:   msg,
		Stage:     dto.ChatStageComplete,
		EmbedType: "test",
		EmbedData: s.TestReport,
	}
}
