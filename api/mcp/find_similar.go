package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	findSimilarToolName    = "find_similar"
	findSimilarDescription = "Find images in the index perceptually similar to a given image. Accepts either a filesystem path or base64-encoded image bytes, and returns the closest matches within a Hamming-distance radius."
)

// FindSimilarInput represents the input arguments for the find_similar tool.
type FindSimilarInput struct {
	Path   string `json:"path,omitempty" jsonschema:"filesystem path to the query image"`
	Base64 string `json:"base64,omitempty" jsonschema:"base64-encoded image bytes, used when path is not set"`
	Radius int    `json:"radius,omitempty" jsonschema:"maximum Hamming distance to match (default: 4)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default: unlimited)"`
}

// FindSimilarResult is a single match.
type FindSimilarResult struct {
	Path     string `json:"path,omitempty"`
	Distance uint32 `json:"distance"`
}

// FindSimilarOutput represents the output of the find_similar tool.
type FindSimilarOutput struct {
	Results []FindSimilarResult `json:"results"`
	Count   int                 `json:"count"`
}

// handleFindSimilar processes a find_similar request.
func (s *Server) handleFindSimilar(ctx context.Context, req *mcp.CallToolRequest, input FindSimilarInput) (*mcp.CallToolResult, FindSimilarOutput, error) {
	logger := s.config.Logger

	radius := input.Radius
	if radius <= 0 {
		radius = 4
	}

	img, err := decodeInput(input)
	if err != nil {
		logger.Error("failed to decode query image", zap.Error(err))
		return errResult(fmt.Sprintf("Failed to decode query image: %v", err)), FindSimilarOutput{}, nil
	}

	sum, err := s.config.Hasher.Hash(img)
	if err != nil {
		logger.Error("failed to hash query image", zap.Error(err))
		return errResult(fmt.Sprintf("Failed to hash query image: %v", err)), FindSimilarOutput{}, nil
	}

	if _, err := s.config.Index.Query(ctx, sum, uint32(radius)); err != nil {
		logger.Error("query failed", zap.Error(err))
		return errResult(fmt.Sprintf("Query failed: %v", err)), FindSimilarOutput{}, nil
	}

	rows, err := s.config.Index.QueryResults(ctx)
	if err != nil {
		logger.Error("failed to read query results", zap.Error(err))
		return errResult(fmt.Sprintf("Failed to read query results: %v", err)), FindSimilarOutput{}, nil
	}
	if input.Limit > 0 && len(rows) > input.Limit {
		rows = rows[:input.Limit]
	}

	results := make([]FindSimilarResult, len(rows))
	for i, r := range rows {
		item := FindSimilarResult{Distance: r.Distance}
		if path, err := s.config.Items.PathForPoint(ctx, r.ID); err == nil {
			item.Path = path
		}
		results[i] = item
	}

	output := FindSimilarOutput{Results: results, Count: len(results)}

	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal find_similar output", zap.Error(err))
		return errResult(fmt.Sprintf("Failed to serialize results: %v", err)), FindSimilarOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// decodeInput decodes the query image from either a filesystem path or
// base64-encoded bytes, preferring path when both are set.
func decodeInput(input FindSimilarInput) (image.Image, error) {
	if input.Path != "" {
		f, err := os.Open(input.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
	if input.Base64 != "" {
		raw, err := base64.StdEncoding.DecodeString(input.Base64)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		return img, err
	}
	return nil, fmt.Errorf("one of path or base64 is required")
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
