package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
	"github.com/alfredjeanlab/gridq/internal/server"
)

const datasetsURI = "gridq://datasets"

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List the datasets this server can query, with row counts and load status"),
	), s.handleListDatasets)

	s.mcp.AddTool(mcp.NewTool("query_dataset",
		mcp.WithDescription("Fetch one page of a dataset. Rows are filtered by a case-insensitive substring match on any field, then sorted, then paginated."),
		mcp.WithString("dataset", mcp.Description("Dataset name (see list_datasets)"), mcp.Required()),
		mcp.WithString("filter", mcp.Description("Substring to match against every field (optional)")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithNumber("page_size", mcp.Description("Rows per page (default 10)")),
		mcp.WithString("sort_by", mcp.Description("Field to sort by (optional)")),
		mcp.WithString("sort_direction", mcp.Description("Sort direction"), mcp.Enum("asc", "desc")),
	), s.handleQueryDataset)
}

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		datasetsURI,
		"All Datasets",
		mcp.WithMIMEType("application/json"),
	), s.handleDatasetsResource)
}

func (s *Server) handleListDatasets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.backend.Datasets())
}

func (s *Server) handleQueryDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	dataset, _ := args["dataset"].(string)
	if dataset == "" {
		return mcp.NewToolResultError("dataset is required"), nil
	}

	q := model.Query{}
	q.Filter, _ = args["filter"].(string)
	q.SortBy, _ = args["sort_by"].(string)
	if d, ok := args["sort_direction"].(string); ok {
		q.SortDirection = model.ParseSortDirection(d)
	}
	var err error
	if q.Page, err = intArg(args, "page"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q.PageSize, err = intArg(args, "page_size"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.backend.Query(ctx, server.TransportMCP, dataset, q)
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrNotLoaded):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return nil, fmt.Errorf("query %s: %w", dataset, err)
	}
	return jsonResult(res)
}

// intArg reads an optional integer argument. JSON numbers arrive as float64.
func intArg(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(i), nil
	}
	return 0, fmt.Errorf("%s must be a number", name)
}

func (s *Server) handleDatasetsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.backend.Datasets(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      datasetsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
