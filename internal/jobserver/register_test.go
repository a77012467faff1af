package jobserver

import (
	"context"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectTools(t *testing.T, runner *Runner) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "go_snippets", Version: "test"}, nil)
	RegisterTools(server, runner)

	st, ct := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestRegisterTools(t *testing.T) {
	cs := connectTools(t, NewRunner(&fakeProcessor{result: sampleResult()}, nil, nil))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"list_video_sections", "split_video_sections"}, names)
}

func TestSplitVideoTool(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult()}
	cs := connectTools(t, NewRunner(proc, nil, nil))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "split_video_sections",
		Arguments: map[string]any{"url": watchURL},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.NotNil(t, res.StructuredContent)
	assert.Equal(t, 1, proc.calls)
}

func TestListSectionsToolEmptyURL(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult()}
	cs := connectTools(t, NewRunner(proc, nil, nil))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_video_sections",
		Arguments: map[string]any{"url": ""},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
	assert.Equal(t, 0, proc.calls)
}
