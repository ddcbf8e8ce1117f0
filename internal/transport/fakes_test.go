package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
)

type fakePresentations struct {
	mu       sync.Mutex
	items    map[string]*presentation.Presentation
	lastList presentation.ListOptions
	actor    string
}

func newFakePresentations(items ...*presentation.Presentation) *fakePresentations {
	f := &fakePresentations{items: map[string]*presentation.Presentation{}}
	for _, p := range items {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakePresentations) Create(ctx context.Context, req presentation.CreateRequest) (*presentation.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actor, _ = audit.ActorFromContext(ctx)
	id := req.ID
	if id == "" {
		id = "generated"
	}
	p := &presentation.Presentation{ID: id, Title: req.Title, Room: req.Room, LengthMinutes: req.LengthMinutes}
	f.items[id] = p
	return p, nil
}

func (f *fakePresentations) Get(_ context.Context, id string) (*presentation.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, presentation.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePresentations) List(_ context.Context, opts presentation.ListOptions) ([]presentation.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = opts
	var out []presentation.Presentation
	for _, p := range f.items {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePresentations) Search(_ context.Context, query string, _ int) ([]presentation.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []presentation.Presentation
	for _, p := range f.items {
		if p.Title == query {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePresentations) Reschedule(ctx context.Context, id string, newTime time.Time) (*presentation.Presentation, error) {
	p, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ScheduledTime = &newTime
	return p, nil
}

func (f *fakePresentations) UpdateDetails(ctx context.Context, id string, req presentation.UpdateDetailsRequest) (*presentation.Presentation, error) {
	p, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	return p, nil
}

func (f *fakePresentations) AttachFile(ctx context.Context, id, fileRef string, provider presentation.FileProvider) (*presentation.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, presentation.ErrNotFound
	}
	p.FileRef = &fileRef
	if provider != "" {
		p.FileProvider = &provider
	} else {
		p.FileProvider = nil
	}
	cp := *p
	return &cp, nil
}

type fakeSchedule struct {
	body string
}

func (f *fakeSchedule) Import(_ context.Context, r io.Reader) (*schedule.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	if f.body == "" {
		return nil, schedule.ErrEmptySchedule
	}
	return &schedule.ImportResult{Rows: 1, PresentationsCreated: 1}, nil
}

func (f *fakeSchedule) ListSessions(context.Context) ([]schedule.Session, error) {
	return nil, nil
}

type fakeAudit struct {
	opts audit.ListOptions
}

func (f *fakeAudit) List(_ context.Context, opts audit.ListOptions) ([]audit.Entry, error) {
	f.opts = opts
	return []audit.Entry{{ID: 1, Action: audit.ActionAttachFile}}, nil
}

type fakeUploader struct {
	name    string
	folder  string
	content string
}

func (f *fakeUploader) Upload(_ context.Context, name string, content io.Reader, folder string) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.name, f.folder, f.content = name, folder, string(data)
	return "item-1", nil
}

type fakeResolver struct{}

func (fakeResolver) ResolvePresentation(_ context.Context, fileID string) (string, error) {
	return "https://view.test/embed?src=" + fileID, nil
}

func (fakeResolver) ResolvePublic(publicURL string, _ bool) (string, error) {
	return "https://view.test/embed?src=" + publicURL, nil
}

func (fakeResolver) Resolve(_ context.Context, fileID string) (string, error) {
	return "https://view.test/embed?src=" + fileID + "&plain", nil
}

type fakeLocator struct{}

func (fakeLocator) WebURL(_ context.Context, id string) (string, error) {
	return "https://onedrive.test/" + id, nil
}

type fakeLogin struct {
	code string
}

func (f *fakeLogin) LoginURL(state string) (string, error) {
	return "https://login.test/authorize?state=" + state, nil
}

func (f *fakeLogin) CompleteLogin(_ context.Context, code string) error {
	f.code = code
	return nil
}

type staticResolver struct {
	tokens map[string]string
}

func (r *staticResolver) ResolveActor(_ context.Context, token string) (string, error) {
	actor, ok := r.tokens[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return actor, nil
}
