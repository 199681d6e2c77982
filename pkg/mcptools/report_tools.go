package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/analysis"
)

type GenerateReportInput struct {
	SessionRef
	Format         string `json:"format,omitempty" jsonschema:"markdown, html, or json; defaults to markdown"`
	IncludeWatches bool   `json:"includeWatches,omitempty" jsonschema:"Evaluate and include the session's watches"`
	TopN           int    `json:"topN,omitempty" jsonschema:"How many top memory consumers to include, 0 for default"`
}

type ReportOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

func (s *Server) registerReportTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "generate_report",
		Description: "Generate a full crash-dump report: crash triage, threads, modules, top memory " +
			"consumers, async state, duplicated strings, and optionally watches. Renders markdown, HTML, or JSON.",
	}, tool(s, "generate_report", func(ctx context.Context, in GenerateReportInput) (ReportOutput, error) {
		return s.buildReport(ctx, in, false)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_summary_report",
		Description: "Generate the abbreviated report: crash triage plus thread, module, and top-consumer summaries.",
	}, tool(s, "generate_summary_report", func(ctx context.Context, in GenerateReportInput) (ReportOutput, error) {
		return s.buildReport(ctx, in, true)
	}))
}

func (s *Server) buildReport(ctx context.Context, in GenerateReportInput, summary bool) (ReportOutput, error) {
	t, info, err := s.target(ctx, in.SessionRef)
	if err != nil {
		return ReportOutput{}, err
	}

	format := analysis.ReportFormat(in.Format)
	if format == "" {
		format = analysis.FormatMarkdown
	}

	var watches []analysis.WatchEntry
	if in.IncludeWatches {
		results, werr := s.deps.Sessions.EvalWatches(ctx, in.SessionID, in.UserID)
		if werr != nil {
			return ReportOutput{}, werr
		}
		for _, r := range results {
			watches = append(watches, analysis.WatchEntry{
				ID:         r.ID,
				Label:      r.Label,
				Expression: r.Expression,
				Value:      r.Value,
				Error:      r.Error,
			})
		}
	}

	hdr := analysis.ReportHeader{
		DumpID:   info.ID,
		DumpFile: info.FileName,
		Server:   s.deps.Host.Name,
		Debugger: string(t.Debugger),
		Runtime:  info.RuntimeVersion,
	}
	report, err := analysis.BuildReport(ctx, t, hdr, watches, analysis.ReportOptions{
		Format:         format,
		Summary:        summary,
		IncludeWatches: in.IncludeWatches,
		TopN:           in.TopN,
	})
	if err != nil {
		return ReportOutput{}, err
	}

	content, err := report.Render(format)
	if err != nil {
		return ReportOutput{}, err
	}
	return ReportOutput{Format: string(format), Content: content}, nil
}
