package jobserver

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SplitInput is the input for split_video_sections and list_video_sections.
type SplitInput struct {
	URL string `json:"url" jsonschema:"YouTube watch URL containing a v= parameter"`
}

// ListOutput is the output for list_video_sections.
type ListOutput struct {
	Snippets []engine.Snippet `json:"snippets"`
}

// RegisterTools registers the section tools on the given MCP server:
// split_video_sections, list_video_sections.
func RegisterTools(server *mcp.Server, runner *Runner) {
	registerSplitVideo(server, runner)
	registerListSections(server, runner)
}

func registerSplitVideo(server *mcp.Server, runner *Runner) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "split_video_sections",
		Description: "Download a YouTube video's audio, split it into sections from chapters, description timestamps or a timestamp comment, and upload each section as an mp3. Returns one snippet (title, storage key, URL) per section. Fails if the same video is already being processed.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SplitInput) (*mcp.CallToolResult, *RunReport, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		report, err := runner.Process(ctx, input.URL)
		if err != nil {
			return nil, nil, err
		}
		return nil, report, nil
	})
}

func registerListSections(server *mcp.Server, runner *Runner) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_video_sections",
		Description: "Resolve the sections of a YouTube video without downloading it. Returns the snippet title, storage key and URL each section would be stored under.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SplitInput) (*mcp.CallToolResult, *ListOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		snippets, err := runner.List(ctx, input.URL)
		if err != nil {
			return nil, nil, err
		}
		return nil, &ListOutput{Snippets: snippets}, nil
	})
}
