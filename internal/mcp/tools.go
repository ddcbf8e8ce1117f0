package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/presenter"
)

type listPresentationsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"full-text search over title, description, speaker and tags"`
	Room   string `json:"room,omitempty" jsonschema:"only presentations in this room"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Offset int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

type presentationInput struct {
	PresentationID string `json:"presentation_id" jsonschema:"presentation ID"`
}

type openPresenterInput struct {
	PresentationID string `json:"presentation_id" jsonschema:"presentation ID"`
	Mode           string `json:"mode,omitempty" jsonschema:"embed (default) drives the web viewer, addin drives PowerPoint through the task pane"`
}

type navigateInput struct {
	PresentationID string `json:"presentation_id" jsonschema:"presentation ID"`
	Direction      string `json:"direction" jsonschema:"next or prev"`
}

type presenterStateInput struct {
	PresentationID string `json:"presentation_id,omitempty" jsonschema:"presentation ID; omit to list every open session"`
}

type listAuditInput struct {
	PresentationID string `json:"presentation_id,omitempty" jsonschema:"only entries for this presentation"`
	Action         string `json:"action,omitempty" jsonschema:"move_time, update_details, attach_file, import_schedule or presenter_opened"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of entries"`
	Offset         int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

func registerTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_presentations",
		Description: "List presentations in schedule order, or search them when query is set",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in listPresentationsInput) (*sdkmcp.CallToolResult, any, error) {
		var (
			items []presentation.Presentation
			err   error
		)
		if in.Query != "" {
			items, err = svc.Presentations.Search(ctx, in.Query, in.Limit)
		} else {
			items, err = svc.Presentations.List(ctx, presentation.ListOptions{Room: in.Room, Limit: in.Limit, Offset: in.Offset})
		}
		if err != nil {
			return errorResult(err)
		}
		if items == nil {
			items = []presentation.Presentation{}
		}
		return jsonResult(map[string]any{"presentations": items})
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_presentation",
		Description: "Get one presentation including its schedule and attached file",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in presentationInput) (*sdkmcp.CallToolResult, any, error) {
		p, err := svc.Presentations.Get(ctx, in.PresentationID)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(p)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_presenter",
		Description: "Open a presenter session for a presentation, replacing any open one. Returns the session state",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in openPresenterInput) (*sdkmcp.CallToolResult, any, error) {
		c, err := svc.Presenter.Open(ctx, in.PresentationID, presenter.Mode(in.Mode))
		if err != nil {
			if c == nil {
				return errorResult(err)
			}
			// The session exists in the error state; report both.
			return jsonResult(map[string]any{"session": c.Snapshot(), "error": MapError(err)})
		}
		return jsonResult(c.Snapshot())
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "navigate_slide",
		Description: "Move the presenter one slide forward or back and mirror the move to the audience view",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in navigateInput) (*sdkmcp.CallToolResult, any, error) {
		c, err := svc.Presenter.Get(in.PresentationID)
		if err != nil {
			return errorResult(err)
		}
		if _, err := c.Navigate(ctx, presenter.Direction(in.Direction)); err != nil {
			return errorResult(err)
		}
		return jsonResult(c.Snapshot())
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_audience_view",
		Description: "Open the audience view for an open presenter session. Returns the URL to show on the audience display",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in presentationInput) (*sdkmcp.CallToolResult, any, error) {
		c, err := svc.Presenter.Get(in.PresentationID)
		if err != nil {
			return errorResult(err)
		}
		if _, err := c.OpenAudienceView(ctx); err != nil {
			return errorResult(err)
		}
		return jsonResult(c.Snapshot())
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "presenter_state",
		Description: "Get the state and diagnostic trace of a presenter session, or every open session",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in presenterStateInput) (*sdkmcp.CallToolResult, any, error) {
		if in.PresentationID == "" {
			return jsonResult(map[string]any{"sessions": svc.Presenter.List()})
		}
		c, err := svc.Presenter.Get(in.PresentationID)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(c.HostSnapshot(ctx))
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_presenter",
		Description: "Close a presenter session and its audience view",
	}, func(_ context.Context, _ *sdkmcp.CallToolRequest, in presentationInput) (*sdkmcp.CallToolResult, any, error) {
		if err := svc.Presenter.Close(in.PresentationID); err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"closed": in.PresentationID})
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_audit",
		Description: "List audit log entries, newest first",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in listAuditInput) (*sdkmcp.CallToolResult, any, error) {
		opts := audit.ListOptions{Limit: in.Limit, Offset: in.Offset}
		if in.PresentationID != "" {
			opts.PresentationID = &in.PresentationID
		}
		if in.Action != "" {
			action := audit.Action(in.Action)
			opts.Action = &action
		}
		entries, err := svc.Audit.List(ctx, opts)
		if err != nil {
			return errorResult(err)
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		return jsonResult(map[string]any{"entries": entries})
	})
}

// jsonResult returns v as the tool's text content.
func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports err as a tool error carrying the mapped APIError.
func errorResult(err error) (*sdkmcp.CallToolResult, any, error) {
	data, mErr := json.Marshal(MapError(err))
	if mErr != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
