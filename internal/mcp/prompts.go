package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const explainPromptTemplate = `You are helping a patient understand their lab report.

First call the normalize_lab_report tool with the report text below. Then, using only the
tests in the tool result:
- say which results are outside their reference range and by how much,
- explain in plain language what each abnormal test measures,
- mention any warnings, including tests that were removed as not found in the report,
- note that results with confidence below 0.7 should be double-checked against the original.
Do not diagnose. Recommend discussing abnormal results with a clinician.%s

Report text:
%s`

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "explain_lab_report",
		Description: "Guide an assistant through normalizing and explaining a lab report in plain language.",
		Arguments: []*mcp.PromptArgument{
			{Name: "report_text", Description: "Full text of the lab report", Required: true},
			{Name: "audience", Description: "Who the explanation is for, e.g. patient or clinician"},
		},
	}, s.explainPrompt)
}

func (s *Server) explainPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := strings.TrimSpace(req.Params.Arguments["report_text"])
	if text == "" {
		return nil, fmt.Errorf("report_text is required")
	}

	audience := ""
	if a := strings.TrimSpace(req.Params.Arguments["audience"]); a != "" {
		audience = fmt.Sprintf("\nWrite for this audience: %s.", a)
	}

	return &mcp.GetPromptResult{
		Description: "Explain a lab report",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: fmt.Sprintf(explainPromptTemplate, audience, text)},
		}},
	}, nil
}
