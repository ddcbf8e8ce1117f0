package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `lectern runs conference presentations: a presenter drives the slides and an audience display follows.

Core concepts:
- Presentation: a scheduled talk with an optional attached deck (a drive item or a legacy public URL).
- Presenter session: at most one per presentation. It resolves the viewer URL, tracks the current slide and mirrors every move to the audience view.
- Audience view: a page that follows the session over a relay channel and jumps to each GOTO_SLIDE it receives.
- Trace: every session keeps a timestamped diagnostic trace; read it with presenter_state when something looks wrong.

Typical workflow:
1) Find the talk: list_presentations (set query to search) then get_presentation.
2) Start: open_presenter(presentation_id). A session in the error state still opens; its error says why.
3) Show it: open_audience_view and put the returned audience_url on the projector.
4) Drive: navigate_slide(direction=next|prev). The slide index is not clamped to the deck length.
5) Finish: close_presenter.

Docs:
- lectern://docs/index
- lectern://docs/troubleshooting
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "lectern://docs/index",
		Name:        "docs_index",
		Title:       "lectern docs index",
		Description: "What the tools do and the order to call them in.",
		Content: `# lectern: Agent Docs Index

## Tools

- ` + "`list_presentations`" + ` / ` + "`get_presentation`" + ` browse the programme.
- ` + "`open_presenter`" + ` starts a session (mode ` + "`embed`" + ` by default, ` + "`addin`" + ` when the PowerPoint task pane is connected).
- ` + "`open_audience_view`" + ` opens the audience display and returns its URL.
- ` + "`navigate_slide`" + ` moves one slide and mirrors the move.
- ` + "`presenter_state`" + ` returns the session snapshot including its trace.
- ` + "`close_presenter`" + ` ends the session.
- ` + "`list_audit`" + ` shows who moved, edited or attached what.

## Limitations

- The slide count comes from the storage provider when available and falls back to a default.
- Navigating past the last slide is not prevented.
`,
	},
	{
		URI:         "lectern://docs/troubleshooting",
		Name:        "docs_troubleshooting",
		Title:       "Troubleshooting presenter sessions",
		Description: "Reading the session trace and the common error codes.",
		Content: `# Troubleshooting

Read ` + "`presenter_state`" + ` first: the trace lists each step the session took.

- ` + "`AUTH_REQUIRED`" + `: the storage account needs signing in at /auth/login.
- ` + "`STORAGE_ERROR`" + `: the file could not be read or has no download URL. Re-upload or re-link it.
- ` + "`NO_FILE`" + `: attach a file to the presentation first.
- ` + "`NOT_READY`" + `: the session failed to load or was closed; open it again.
- ` + "`ADDIN_UNAVAILABLE`" + `: open the lectern task pane in PowerPoint, or use embed mode.
- Trace line "audience view window is not open": navigation worked but nothing was mirrored. Call ` + "`open_audience_view`" + `.
- Trace line "Audience view window closed": the display disconnected. Open it again.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
