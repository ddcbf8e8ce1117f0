package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/presenter"
	"github.com/rpggio/lectern/internal/relay"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server        *httptest.Server
	presentations *fakePresentations
	schedule      *fakeSchedule
	audit         *fakeAudit
	files         *fakeUploader
	login         *fakeLogin
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	fileRef := "item-9"
	provider := presentation.ProviderOneDrive
	env := &testEnv{
		presentations: newFakePresentations(
			&presentation.Presentation{ID: "p1", Title: "Go at Scale", FileRef: &fileRef, FileProvider: &provider},
			&presentation.Presentation{ID: "p2", Title: "No Slides Yet"},
		),
		schedule: &fakeSchedule{},
		audit:    &fakeAudit{},
		files:    &fakeUploader{},
		login:    &fakeLogin{},
	}

	hub := relay.NewHub("http://conf.test", nil)
	manager := presenter.NewManager(env.presentations, fakeResolver{}, nil, hub, nil, nil,
		presenter.ManagerConfig{DefaultTotalSlides: 5, PollInterval: 20 * time.Millisecond}, nil)
	t.Cleanup(manager.CloseAll)

	deps := Deps{
		Presentations: env.presentations,
		Schedule:      env.schedule,
		Audit:         env.audit,
		Files:         env.files,
		UploadFolder:  "Presentations",
		Viewer:        fakeResolver{},
		Locator:       fakeLocator{},
		Presenter:     manager,
		Relay:         hub,
		Login:         env.login,
	}
	if mutate != nil {
		mutate(&deps)
	}

	env.server = httptest.NewServer(NewServer(deps))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, data []byte) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHTTPServer_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestHTTPServer_CreatePresentationValidates(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/presentations", `{"title":"  ","speaker_email":"nope","length_minutes":-5}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decodeError(t, body)
	require.Equal(t, "VALIDATION_FAILED", errResp.ErrorCode)
	require.Contains(t, errResp.Errors, "title")
	require.Contains(t, errResp.Errors, "speaker_email")
	require.Contains(t, errResp.Errors, "length_minutes")

	resp, _ = env.do(t, http.MethodPost, "/api/presentations", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/presentations", `{"id":"p3","title":"Tracing","room":"A1","length_minutes":30}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p presentation.Presentation
	require.NoError(t, json.Unmarshal(body, &p))
	require.Equal(t, "p3", p.ID)
	require.Equal(t, "A1", p.Room)
}

func TestHTTPServer_PresentationLookups(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/presentations/missing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", decodeError(t, body).ErrorCode)

	resp, body = env.do(t, http.MethodGet, "/api/presentations?room=A1&has_file=true&limit=5&offset=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []presentation.Presentation
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	require.Equal(t, "A1", env.presentations.lastList.Room)
	require.NotNil(t, env.presentations.lastList.HasFile)
	require.True(t, *env.presentations.lastList.HasFile)
	require.Equal(t, 5, env.presentations.lastList.Limit)
	require.Equal(t, 2, env.presentations.lastList.Offset)

	resp, body = env.do(t, http.MethodGet, "/api/presentations?q="+url.QueryEscape("Go at Scale"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, _ = env.do(t, http.MethodGet, "/api/presentations?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/presentations?has_file=maybe", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_UpdateAndReschedule(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPatch, "/api/presentations/p2", `{"title":"Slides Soon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Slides Soon")

	resp, _ = env.do(t, http.MethodPatch, "/api/presentations/p2", `{"title":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/presentations/p2/schedule", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPut, "/api/presentations/p2/schedule", `{"scheduled_time":"2026-06-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p presentation.Presentation
	require.NoError(t, json.Unmarshal(body, &p))
	require.NotNil(t, p.ScheduledTime)
	require.Equal(t, 10, p.ScheduledTime.Hour())
}

func TestHTTPServer_UploadFile(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "deck.pptx")
	require.NoError(t, err)
	_, err = part.Write([]byte("pptx-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/presentations/p2/file", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Equal(t, "deck.pptx", env.files.name)
	require.Equal(t, "Presentations", env.files.folder)
	require.Equal(t, "pptx-bytes", env.files.content)

	var p presentation.Presentation
	require.NoError(t, json.Unmarshal(body, &p))
	require.Equal(t, "item-1", *p.FileRef)
	require.Equal(t, presentation.ProviderOneDrive, *p.FileProvider)

	req, err = http.NewRequest(http.MethodPost, env.server.URL+"/api/presentations/missing/file", strings.NewReader(""))
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ = send(t, req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_UploadWithoutStorage(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Files = nil })

	resp, body := env.do(t, http.MethodPost, "/api/presentations/p2/file", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "NOT_CONFIGURED", decodeError(t, body).ErrorCode)
}

func TestHTTPServer_LinkLegacyFile(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodPut, "/api/presentations/p2/file", `{"url":"not a url"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPut, "/api/presentations/p2/file", `{"url":"https://files.test/deck.pptx"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p presentation.Presentation
	require.NoError(t, json.Unmarshal(body, &p))
	require.True(t, p.IsLegacyFile())
}

func TestHTTPServer_ImportSchedule(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/schedule/import", strings.NewReader("title\nKeynote\n"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	resp, body := send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "title\nKeynote\n", env.schedule.body)
	require.Contains(t, string(body), `"presentations_created":1`)

	resp, body = env.do(t, http.MethodPost, "/api/schedule/import", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_INPUT", decodeError(t, body).ErrorCode)
}

func TestHTTPServer_ListAudit(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/audit?presentation_id=p1&action=attach_file&limit=10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"action":"attach_file"`)
	require.Equal(t, "p1", *env.audit.opts.PresentationID)
	require.EqualValues(t, "attach_file", *env.audit.opts.Action)
	require.Equal(t, 10, env.audit.opts.Limit)
}

func TestHTTPServer_PresenterFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/presenter/p2", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "NO_FILE", decodeError(t, body).ErrorCode)

	resp, _ = env.do(t, http.MethodPost, "/api/presenter/p1", `{"mode":"slideshow"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/presenter/p1", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var snap presenter.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Equal(t, presenter.StateReady, snap.State)
	require.Equal(t, 1, snap.CurrentSlide)
	require.Equal(t, 5, snap.TotalSlides)
	require.Equal(t, "https://view.test/embed?src=item-9", snap.ViewURL)
	require.True(t, strings.HasPrefix(snap.SurfaceURL, "/ws/relay/"))

	resp, _ = env.do(t, http.MethodPost, "/api/presenter/p1/navigate", `{"direction":"sideways"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/presenter/p1/navigate", `{"direction":"next"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Equal(t, 2, snap.CurrentSlide)
	require.False(t, snap.AudienceOpen)

	resp, body = env.do(t, http.MethodPost, "/api/presenter/p1/audience", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	require.True(t, snap.AudienceOpen)
	require.Contains(t, snap.AudienceURL, "/presentations/p1/audience?viewUrl=")
	require.Contains(t, snap.AudienceURL, "&channel=")

	resp, _ = env.do(t, http.MethodGet, "/presentations/p1/presenter", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, snap.PresenterURL, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Go at Scale - Presenter")

	resp, _ = env.do(t, http.MethodGet, "/api/presenter/p1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/presenter/p1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/presenter/p1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", decodeError(t, body).ErrorCode)
}

func TestHTTPServer_PresentationLinks(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/presentations/p1/links", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"view_url":"https://view.test/embed?src=item-9&plain","web_url":"https://onedrive.test/item-9"}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/api/presentations/p2/links", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "NO_FILE", decodeError(t, body).ErrorCode)

	resp, _ = env.do(t, http.MethodPut, "/api/presentations/p2/file", `{"url":"https://files.test/deck.pptx"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, "/api/presentations/p2/links", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"view_url":"https://view.test/embed?src=https://files.test/deck.pptx","web_url":"https://files.test/deck.pptx"}`, string(body))
}

func TestHTTPServer_PresenterPageUsesControlKey(t *testing.T) {
	resolver := &staticResolver{tokens: map[string]string{"secret": "stage-manager"}}
	env := newTestEnv(t, func(d *Deps) { d.Auth = AuthMiddleware(resolver, nil) })

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/presenter/p1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, body := send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var snap presenter.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	pageURL, err := url.Parse(snap.PresenterURL)
	require.NoError(t, err)
	key := pageURL.Query().Get("key")
	require.NotEmpty(t, key)

	// The page is served without a bearer token.
	resp, body = env.do(t, http.MethodGet, snap.PresenterURL, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `<button id="prev" disabled>`)

	pageCall := func(path, presenterKey string) (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/presentations/p1/presenter"+path, strings.NewReader(`{"direction":"next"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if presenterKey != "" {
			req.Header.Set("X-Presenter-Key", presenterKey)
		}
		return send(t, req)
	}

	resp, _ = pageCall("/navigate", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = pageCall("/navigate", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = pageCall("/navigate", key)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Equal(t, 2, snap.CurrentSlide)

	resp, body = pageCall("/audience", key)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	require.True(t, snap.AudienceOpen)

	// The bearer-guarded API still refuses the page's key.
	req, err = http.NewRequest(http.MethodGet, env.server.URL+"/api/presenter/p1", nil)
	require.NoError(t, err)
	req.Header.Set("X-Presenter-Key", key)
	resp, _ = send(t, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/presentations/p2/presenter?key="+key, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_AudiencePage(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/presentations/p1/audience", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "No presentation URL provided")

	view := url.QueryEscape("https://view.test/embed?src=item-9")
	resp, body = env.do(t, http.MethodGet, "/presentations/p1/audience?viewUrl="+view+"&channel=abc", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `id="viewer"`)
	require.Contains(t, string(body), "Go at Scale - Audience View")
	require.NotContains(t, string(body), "No presentation URL provided")
}

func TestHTTPServer_RelayUnknownChannel(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/ws/relay/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_LoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.Equal(t, state, cookie.Value)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/auth/callback?state=other&code=abc", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, body := send(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_STATE", decodeError(t, body).ErrorCode)

	req, err = http.NewRequest(http.MethodGet, env.server.URL+"/auth/callback?state="+state+"&code=abc", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, _ = send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "abc", env.login.code)
}

func TestHTTPServer_LoginNotConfigured(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Login = nil })

	resp, body := env.do(t, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "NOT_CONFIGURED", decodeError(t, body).ErrorCode)
}

func TestHTTPServer_AuthGuardsAPI(t *testing.T) {
	resolver := &staticResolver{tokens: map[string]string{"secret": "stage-manager"}}
	env := newTestEnv(t, func(d *Deps) { d.Auth = AuthMiddleware(resolver, nil) })

	resp, _ := env.do(t, http.MethodGet, "/api/presentations", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/presentations", strings.NewReader(`{"title":"Keynote"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, _ = send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "stage-manager", env.presentations.actor)
}
