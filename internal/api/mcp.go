package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Adviser Adviser
	Store   *storage.Store
	// Locale is the default locale for advice produced over MCP.
	Locale string
}

func (d MCPDeps) callContext(lat, lon float64, hasPlace bool) advisor.CallContext {
	cc := advisor.CallContext{Locale: d.Locale}
	if hasPlace {
		cc.Location = &advisor.Location{Latitude: lat, Longitude: lon}
	}
	return cc
}

// placeArgs reads the optional latitude/longitude tool arguments.
func placeArgs(req mcp.CallToolRequest) (lat, lon float64, ok bool) {
	lat = req.GetFloat("latitude", 0)
	lon = req.GetFloat("longitude", 0)
	// 0,0 is open ocean; treat an entirely absent pair as "no location".
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}

// NewMCPServer creates an MCP server exposing the advisory capabilities and
// the retained farm records.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"fieldhand",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("fieldhand — farm advisory: soil analysis, crop planning, market analysis, irrigation advice and retained farm logs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_soil",
			mcp.WithDescription("Analyze soil readings into a structured assessment with a 0-100 health score."),
			mcp.WithNumber("ph", mcp.Description("Soil pH"), mcp.Required()),
			mcp.WithNumber("organic_matter", mcp.Description("Organic matter percentage"), mcp.Required()),
			mcp.WithString("texture", mcp.Description("Soil texture, e.g. Loam"), mcp.Required()),
			mcp.WithNumber("latitude", mcp.Description("Farm latitude")),
			mcp.WithNumber("longitude", mcp.Description("Farm longitude")),
		),
		mcpAnalyzeSoil(deps),
	)

	s.AddTool(
		mcp.NewTool("market_analysis",
			mcp.WithDescription("Analyze market conditions for goods near a location."),
			mcp.WithString("query", mcp.Description("Goods to analyze, e.g. 'organic tomatoes'"), mcp.Required()),
			mcp.WithNumber("latitude", mcp.Description("Farm latitude"), mcp.Required()),
			mcp.WithNumber("longitude", mcp.Description("Farm longitude"), mcp.Required()),
		),
		mcpMarketAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("plan_crop",
			mcp.WithDescription("Propose a seasonal crop plan for a location."),
			mcp.WithString("soil_type", mcp.Description("Soil type"), mcp.Required()),
			mcp.WithString("season", mcp.Description("Season, e.g. 'long rains'"), mcp.Required()),
			mcp.WithBoolean("pest_resistant", mcp.Description("Only recommend pest-resistant varieties")),
			mcp.WithNumber("latitude", mcp.Description("Farm latitude"), mcp.Required()),
			mcp.WithNumber("longitude", mcp.Description("Farm longitude"), mcp.Required()),
		),
		mcpPlanCrop(deps),
	)

	s.AddTool(
		mcp.NewTool("irrigation_advice",
			mcp.WithDescription("Advise on irrigation for a crop and growth stage at a location."),
			mcp.WithString("crop", mcp.Description("Crop name"), mcp.Required()),
			mcp.WithString("growth_stage", mcp.Description("Growth stage, e.g. flowering")),
			mcp.WithNumber("latitude", mcp.Description("Farm latitude"), mcp.Required()),
			mcp.WithNumber("longitude", mcp.Description("Farm longitude"), mcp.Required()),
		),
		mcpIrrigationAdvice(deps),
	)

	s.AddTool(
		mcp.NewTool("weather_tip",
			mcp.WithDescription("One short farming tip for today's weather."),
			mcp.WithNumber("latitude", mcp.Description("Farm latitude")),
			mcp.WithNumber("longitude", mcp.Description("Farm longitude")),
		),
		mcpWeatherTip(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_agronomist",
			mcp.WithDescription("Ask the agronomist a free-form farming question."),
			mcp.WithString("question", mcp.Description("The question"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"fieldhand://soil-logs/recent",
			"Recent Soil Logs",
			mcp.WithResourceDescription("Retained soil logs, newest first, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSoilLogs(deps),
	)

	return s
}

func mcpAnalyzeSoil(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ph, err := req.RequireFloat("ph")
		if err != nil {
			return mcpError("ph is required"), nil
		}
		om, err := req.RequireFloat("organic_matter")
		if err != nil {
			return mcpError("organic_matter is required"), nil
		}
		texture, err := req.RequireString("texture")
		if err != nil {
			return mcpError("texture is required"), nil
		}

		lat, lon, hasPlace := placeArgs(req)
		out, err := deps.Adviser.AnalyzeSoil(ctx, deps.callContext(lat, lon, hasPlace), advisor.SoilInput{
			PH:            ph,
			OrganicMatter: om,
			Texture:       texture,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("soil analysis failed: %v", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpMarketAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		lat, lon, hasPlace := placeArgs(req)

		out, err := deps.Adviser.AnalyzeMarket(ctx, deps.callContext(lat, lon, hasPlace), advisor.MarketInput{Query: query})
		if err != nil {
			return mcpError(fmt.Sprintf("market analysis failed: %v", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpPlanCrop(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		soilType, err := req.RequireString("soil_type")
		if err != nil {
			return mcpError("soil_type is required"), nil
		}
		season, err := req.RequireString("season")
		if err != nil {
			return mcpError("season is required"), nil
		}
		lat, lon, hasPlace := placeArgs(req)

		out, err := deps.Adviser.PlanCrop(ctx, deps.callContext(lat, lon, hasPlace), advisor.PlanInput{
			SoilType:      soilType,
			Season:        season,
			PestResistant: req.GetBool("pest_resistant", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("crop planning failed: %v", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpIrrigationAdvice(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		crop, err := req.RequireString("crop")
		if err != nil {
			return mcpError("crop is required"), nil
		}
		lat, lon, hasPlace := placeArgs(req)

		out, err := deps.Adviser.AdviseIrrigation(ctx, deps.callContext(lat, lon, hasPlace), advisor.IrrigationInput{
			Crop:        crop,
			GrowthStage: req.GetString("growth_stage", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("irrigation advice failed: %v", err)), nil
		}
		return mcpText(out.Text), nil
	}
}

func mcpWeatherTip(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lat, lon, hasPlace := placeArgs(req)
		out, err := deps.Adviser.GetWeatherTip(ctx, deps.callContext(lat, lon, hasPlace))
		if err != nil {
			return mcpError(fmt.Sprintf("weather tip failed: %v", err)), nil
		}
		return mcpText(out.Text), nil
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		session := &advisor.Session{}
		out, err := deps.Adviser.Converse(ctx, advisor.CallContext{Locale: deps.Locale}, session, question)
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcpText(out.Text), nil
	}
}

func mcpResourceSoilLogs(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		logs, err := deps.Store.SoilLogs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing soil logs: %w", err)
		}

		b, err := json.Marshal(logs)
		if err != nil {
			return nil, fmt.Errorf("marshaling soil logs: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
