package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
)

const (
	historyURI          = "proposals://history"
	proposalURIPrefix   = "proposals://"
	proposalURITemplate = proposalURIPrefix + "{id}"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service Service
	Fetch   Fetcher // optional; without it generate_proposal accepts text only
	Version string
}

// NewMCPServer creates an MCP server exposing the proposal tools, the
// history resource and single proposals by ID.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"swiftme",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("swiftme writes freelance job proposals grounded in the stored freelancer profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("setup_profile",
			mcp.WithDescription("Store a freelancer profile in the experience knowledge base. Profiles are appended, never replaced."),
			mcp.WithString("name", mcp.Description("Freelancer name"), mcp.Required()),
			mcp.WithArray("skills", mcp.Description("Skills list"), mcp.WithStringItems(), mcp.Required()),
			mcp.WithString("experience", mcp.Description("Free-text experience summary"), mcp.Required()),
			mcp.WithArray("past_projects", mcp.Description("Past project descriptions"), mcp.WithStringItems()),
			mcp.WithString("rates", mcp.Description("Rates, e.g. $80/hour")),
			mcp.WithString("specialization", mcp.Description("Area of specialization")),
		),
		mcpSetupProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_proposal",
			mcp.WithDescription("Generate a proposal for a job posting using the stored profile experience."),
			mcp.WithString("job_posting", mcp.Description("Job posting text")),
			mcp.WithString("job_posting_url", mcp.Description("URL of the job posting, used when job_posting is empty")),
			mcp.WithString("tone", mcp.Description("Writing tone (default professional)"), mcp.Enum("formal", "casual", "professional")),
			mcp.WithString("custom_instructions", mcp.Description("Extra instructions for the writer")),
		),
		mcpGenerateProposal(deps),
	)

	s.AddTool(
		mcp.NewTool("search_experience",
			mcp.WithDescription("Semantically search stored experience and return the most relevant snippets."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("k", mcp.Description("Maximum number of results (default 3)")),
		),
		mcpSearchExperience(deps),
	)

	s.AddResource(
		mcp.NewResource(
			historyURI,
			"Proposal History",
			mcp.WithResourceDescription("The most recent generated proposals as JSON, oldest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			proposalURITemplate,
			"Proposal",
			mcp.WithTemplateDescription("A generated proposal by ID, from history or the archive"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProposal(deps),
	)

	return s
}

func mcpSetupProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p := profile.Profile{
			Name:           req.GetString("name", ""),
			Skills:         req.GetStringSlice("skills", nil),
			Experience:     req.GetString("experience", ""),
			PastProjects:   req.GetStringSlice("past_projects", nil),
			Rates:          req.GetString("rates", ""),
			Specialization: req.GetString("specialization", ""),
		}
		if err := p.Validate(); err != nil {
			return mcpError(fmt.Sprintf("invalid profile: %v", err)), nil
		}
		if !deps.Service.SetupProfile(ctx, p) {
			return mcpError("failed to setup profile"), nil
		}
		return mcpText("Profile successfully stored in knowledge base"), nil
	}
}

func mcpGenerateProposal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tone, err := proposal.ParseTone(req.GetString("tone", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		posting := strings.TrimSpace(req.GetString("job_posting", ""))
		if posting == "" {
			url := strings.TrimSpace(req.GetString("job_posting_url", ""))
			if url == "" {
				return mcpError("job_posting or job_posting_url is required"), nil
			}
			if deps.Fetch == nil {
				return mcpError("job_posting_url is not supported"), nil
			}
			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			posting, err = deps.Fetch(fetchCtx, url)
			cancel()
			if err != nil {
				return mcpError(fmt.Sprintf("fetching job posting: %v", err)), nil
			}
		}

		p, err := deps.Service.GenerateProposal(ctx, posting, tone, req.GetString("custom_instructions", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("Error generating proposal: %v", err)), nil
		}

		b, err := json.Marshal(toResponse(p))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal proposal: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchExperience(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		k := req.GetInt("k", 0)
		if k < 0 {
			k = 0
		}
		if k > 50 {
			k = 50
		}

		hits := deps.Service.SearchExperience(ctx, query, k)
		if len(hits) == 0 {
			return mcpText("[]"), nil
		}
		b, err := json.Marshal(hits)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Service.History())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
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

func mcpResourceProposal(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(req.Params.URI, proposalURIPrefix)
		if id == "" || id == req.Params.URI {
			return nil, fmt.Errorf("invalid proposal URI %q", req.Params.URI)
		}
		p, err := deps.Service.Proposal(ctx, id)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal proposal: %w", err)
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
