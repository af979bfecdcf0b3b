package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ExpressedAi/Pinkmemory/internal/memory"
)

// Tool input structs with jsonschema tags

type RememberInput struct {
	Text    string `json:"text" jsonschema:"Text to remember. Long text is chunked by paragraph before storage.,required"`
	AgentID string `json:"agent_id,omitempty" jsonschema:"Identifier of the agent the memory belongs to"`
	Source  string `json:"source,omitempty" jsonschema:"Origin of the memory (user, assistant, tool name)"`
}

type RecallInput struct {
	Query string `json:"query" jsonschema:"Natural language query to recall memories for,required"`
}

type GetMemoryInput struct {
	Tier string `json:"tier" jsonschema:"Memory tier: short|long,required"`
	ID   int64  `json:"id" jsonschema:"Numeric memory id,required"`
}

type ForgetInput struct {
	Tier string `json:"tier" jsonschema:"Memory tier: short|long,required"`
	ID   int64  `json:"id" jsonschema:"Numeric memory id,required"`
}

type ReflectInput struct{}

type StatsInput struct{}

type DecayInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "remember",
		Description: "Store text in short-term memory with automatic embedding and affect scoring.",
	}, s.remember)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recall",
		Description: "Recall the most relevant memories for a query from both tiers, blending semantic and affective similarity.",
	}, s.recall)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_memory",
		Description: "Retrieve a specific memory by tier and id.",
	}, s.getMemory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "forget",
		Description: "Delete a specific memory by tier and id.",
	}, s.forget)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reflect_now",
		Description: "Run one reflection cycle: sample short-term memories, synthesize an insight, seed it into both tiers.",
	}, s.reflectNow)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Report counts and score statistics for both memory tiers.",
	}, s.memoryStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "decay_now",
		Description: "Apply time decay to both tiers immediately, evicting memories below the score floor.",
	}, s.decayNow)
}

func (s *Server) remember(ctx context.Context, req *mcp.CallToolRequest, input *RememberInput) (*mcp.CallToolResult, any, error) {
	records, err := s.svc.Remember(ctx, input.Text, input.AgentID, input.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("remember: %w", err)
	}

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return makeTextResult(fmt.Sprintf("Stored %d memory chunk(s) in short-term (ids: %v)", len(records), ids)), nil, nil
}

func (s *Server) recall(ctx context.Context, req *mcp.CallToolRequest, input *RecallInput) (*mcp.CallToolResult, any, error) {
	results, err := s.svc.Recall(ctx, input.Query)
	if err != nil {
		return nil, nil, fmt.Errorf("recall: %w", err)
	}

	return makeJSONResult(results)
}

func (s *Server) getMemory(ctx context.Context, req *mcp.CallToolRequest, input *GetMemoryInput) (*mcp.CallToolResult, any, error) {
	store, err := s.storeFor(input.Tier)
	if err != nil {
		return nil, nil, err
	}

	rec, err := store.Get(ctx, input.ID)
	if err != nil {
		var nf *memory.NotFoundError
		if errors.As(err, &nf) {
			return makeTextResult("Memory not found"), nil, nil
		}
		return nil, nil, fmt.Errorf("get memory: %w", err)
	}

	return makeJSONResult(rec)
}

func (s *Server) forget(ctx context.Context, req *mcp.CallToolRequest, input *ForgetInput) (*mcp.CallToolResult, any, error) {
	store, err := s.storeFor(input.Tier)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Delete(ctx, input.ID); err != nil {
		return nil, nil, fmt.Errorf("forget: %w", err)
	}

	return makeTextResult(fmt.Sprintf("Deleted memory %d from %s-term", input.ID, input.Tier)), nil, nil
}

func (s *Server) reflectNow(ctx context.Context, req *mcp.CallToolRequest, input *ReflectInput) (*mcp.CallToolResult, any, error) {
	insight, err := s.svc.Reflect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reflect: %w", err)
	}
	if insight == nil {
		return makeTextResult("Nothing to reflect on: short-term memory is empty"), nil, nil
	}

	return makeJSONResult(insight)
}

func (s *Server) memoryStats(ctx context.Context, req *mcp.CallToolRequest, input *StatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("stats: %w", err)
	}

	return makeJSONResult(stats)
}

func (s *Server) decayNow(ctx context.Context, req *mcp.CallToolRequest, input *DecayInput) (*mcp.CallToolResult, any, error) {
	results, err := s.svc.DecayNow(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("decay: %w", err)
	}

	return makeJSONResult(results)
}

func (s *Server) storeFor(tier string) (*memory.Store, error) {
	switch memory.Tier(tier) {
	case memory.TierShort:
		return s.svc.ShortTerm(), nil
	case memory.TierLong:
		return s.svc.LongTerm(), nil
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
}

func makeTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func makeJSONResult(data any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}
