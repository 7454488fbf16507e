package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/internmatch/internal/catalog"
	"github.com/kalambet/internmatch/internal/profile"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles ProfileService
	Version  string

	Internships   *catalog.Catalog // optional
	Notifications *catalog.Feed    // optional
}

// NewMCPServer creates an MCP server with the profile tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"internmatch",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("internmatch: candidate profiles scored for internship suitability."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List all candidate profiles with their latest analysis."),
		),
		mcpListProfiles(deps),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Get a single candidate profile by id."),
			mcp.WithString("id", mcp.Description("Profile id"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("import_profile",
			mcp.WithDescription("Import a LinkedIn profile by URL and wait for its suitability analysis."),
			mcp.WithString("url", mcp.Description("LinkedIn profile URL"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Candidate name, if known")),
			mcp.WithString("headline", mcp.Description("Profile headline, if known")),
			mcp.WithString("location", mcp.Description("Candidate location, if known")),
			mcp.WithArray("skills", mcp.Description("Skills, if known")),
		),
		mcpImportProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("reanalyze_profile",
			mcp.WithDescription("Re-run the suitability analysis for an existing profile and wait for the result."),
			mcp.WithString("id", mcp.Description("Profile id"), mcp.Required()),
		),
		mcpReanalyzeProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("add_skill",
			mcp.WithDescription("Add a skill to a candidate profile. Existing skills are left as they are."),
			mcp.WithString("id", mcp.Description("Profile id"), mcp.Required()),
			mcp.WithString("skill", mcp.Description("Skill to add"), mcp.Required()),
		),
		mcpAddSkill(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_skill",
			mcp.WithDescription("Remove a skill from a candidate profile."),
			mcp.WithString("id", mcp.Description("Profile id"), mcp.Required()),
			mcp.WithString("skill", mcp.Description("Skill to remove"), mcp.Required()),
		),
		mcpRemoveSkill(deps),
	)

	if deps.Internships != nil {
		s.AddTool(
			mcp.NewTool("list_internships",
				mcp.WithDescription("List recommended internships, best match first."),
				mcp.WithBoolean("new_only", mcp.Description("Only listings marked new")),
				mcp.WithNumber("min_match", mcp.Description("Minimum match percentage (0-100)")),
			),
			mcpListInternships(deps),
		)
	}

	if deps.Notifications != nil {
		s.AddTool(
			mcp.NewTool("list_notifications",
				mcp.WithDescription("List recent notifications, newest first."),
				mcp.WithNumber("limit", mcp.Description("Maximum notifications to return (default 20)")),
			),
			mcpListNotifications(deps),
		)
	}

	s.AddResource(
		mcp.NewResource(
			"profiles://all",
			"Candidate Profiles",
			mcp.WithResourceDescription("All candidate profiles as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	return s
}

func mcpListProfiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records := deps.Profiles.List()
		if records == nil {
			records = []profile.Record{}
		}
		return mcpJSON(records), nil
	}
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		rec, err := deps.Profiles.Get(id)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(rec), nil
	}
}

func mcpImportProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}
		draft := profile.Draft{
			Name:     req.GetString("name", ""),
			Headline: req.GetString("headline", ""),
			Location: req.GetString("location", ""),
			Skills:   req.GetStringSlice("skills", nil),
		}

		task, err := deps.Profiles.Import(context.WithoutCancel(ctx), url, draft)
		if err != nil {
			return mcpError(fmt.Sprintf("import failed: %v", err)), nil
		}
		return mcpWait(ctx, task)
	}
}

func mcpReanalyzeProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		task, err := deps.Profiles.Reanalyze(context.WithoutCancel(ctx), id)
		if err != nil {
			return mcpError(fmt.Sprintf("reanalysis failed: %v", err)), nil
		}
		return mcpWait(ctx, task)
	}
}

func mcpAddSkill(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		skill, err := req.RequireString("skill")
		if err != nil {
			return mcpError("skill is required"), nil
		}
		rec, err := deps.Profiles.AddSkill(ctx, id, skill)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(rec), nil
	}
}

func mcpRemoveSkill(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		skill, err := req.RequireString("skill")
		if err != nil {
			return mcpError("skill is required"), nil
		}
		rec, err := deps.Profiles.RemoveSkill(ctx, id, skill)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(rec), nil
	}
}

func mcpListInternships(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := catalog.Filter{
			NewOnly:  req.GetBool("new_only", false),
			MinMatch: req.GetInt("min_match", 0),
		}
		return mcpJSON(deps.Internships.List(f)), nil
	}
}

func mcpListNotifications(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		return mcpJSON(NotificationsResponse{
			Unread:        deps.Notifications.Unread(),
			Notifications: deps.Notifications.List(limit),
		}), nil
	}
}

// mcpWait blocks until task finishes. A cancelled call leaves the task running.
func mcpWait(ctx context.Context, task *profile.Task) (*mcp.CallToolResult, error) {
	rec, err := task.Wait(ctx)
	if err != nil {
		return mcpError(fmt.Sprintf("analysis of %s failed: %v", task.ID(), err)), nil
	}
	return mcpJSON(rec), nil
}

func mcpResourceProfiles(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records := deps.Profiles.List()
		if records == nil {
			records = []profile.Record{}
		}
		b, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
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

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
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
