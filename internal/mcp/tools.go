package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/history"
	"github.com/lab-report-normalizer/internal/service"
)

// NormalizeReportInput is the argument of normalize_lab_report.
type NormalizeReportInput struct {
	Text                 string   `json:"text" jsonschema:"full text of the lab report, one result per line"`
	ExtractionConfidence *float64 `json:"extraction_confidence,omitempty" jsonschema:"legibility estimate of the text between 0 and 1"`
}

// ListTestsInput is the argument of list_supported_tests.
type ListTestsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list tests in this category"`
}

// ListTestsOutput is the result of list_supported_tests.
type ListTestsOutput struct {
	Count int                   `json:"count"`
	Tests []domain.CatalogEntry `json:"tests"`
}

// GetRunInput is the argument of get_run.
type GetRunInput struct {
	RunID string `json:"run_id" jsonschema:"identifier returned by normalize_lab_report"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "normalize_lab_report",
		Description: "Parse a lab report into canonical tests with status, reference range and confidence. Tests not grounded in the report text are removed and reported.",
	}, s.handleNormalizeReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_supported_tests",
		Description: "List the tests the normalizer recognizes, with aliases, units and reference ranges.",
	}, s.handleListTests)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_run",
		Description: "Fetch a previously normalized report by run ID.",
	}, s.handleGetRun)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

func (s *Server) handleNormalizeReport(ctx context.Context, _ *mcp.CallToolRequest, in NormalizeReportInput) (*mcp.CallToolResult, service.Outcome, error) {
	if c := in.ExtractionConfidence; c != nil && (*c < 0 || *c > 1) {
		return nil, service.Outcome{}, fmt.Errorf("extraction_confidence must be between 0 and 1, got %v", *c)
	}

	out, err := s.service.ProcessText(ctx, in.Text, in.ExtractionConfidence)
	if err != nil {
		s.logger.WithError(err).Error("normalize_lab_report failed")
		return nil, service.Outcome{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": out.RunID,
		"status": out.Result.Status,
	}).Debug("normalize_lab_report completed")
	return textResult(out), *out, nil
}

func (s *Server) handleListTests(_ context.Context, _ *mcp.CallToolRequest, in ListTestsInput) (*mcp.CallToolResult, ListTestsOutput, error) {
	out := ListTestsOutput{Tests: []domain.CatalogEntry{}}
	for _, e := range s.service.Catalog().Entries() {
		if in.Category != "" && !strings.EqualFold(e.Category, in.Category) {
			continue
		}
		out.Tests = append(out.Tests, e)
	}
	out.Count = len(out.Tests)
	return textResult(out), out, nil
}

// handleGetRun returns the stored record without an output schema; records carry timestamps.
func (s *Server) handleGetRun(ctx context.Context, _ *mcp.CallToolRequest, in GetRunInput) (*mcp.CallToolResult, interface{}, error) {
	if strings.TrimSpace(in.RunID) == "" {
		return nil, nil, fmt.Errorf("run_id is required")
	}
	rec, err := s.service.GetRun(ctx, in.RunID)
	if errors.Is(err, history.ErrNotFound) {
		return nil, nil, fmt.Errorf("run %q not found", in.RunID)
	}
	if err != nil {
		return nil, nil, err
	}
	return textResult(rec), rec, nil
}

// textResult renders v as indented JSON text content.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("failed to encode result: %v", err)}},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
