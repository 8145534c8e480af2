package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/staging"
	"github.com/Anant-tripathi/WABulkMessenger/internal/store"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

type testEnv struct {
	svc        *Service
	handler    http.Handler
	dispatcher *dispatch.Service
	lists      store.Store
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	pacing, err := dispatch.NewPacing(time.Millisecond, 2*time.Millisecond)
	if err != nil {
		t.Fatalf("NewPacing: %v", err)
	}
	// Not started: submitted runs stay queued, which is all the API needs.
	d := dispatch.New(dispatch.Config{QueueSize: 8}, nil, pacing, logx.Nop(), nil)

	staged, err := staging.New(staging.Config{Dir: t.TempDir(), MaxFileSize: 64}, logx.Nop())
	if err != nil {
		t.Fatalf("staging: %v", err)
	}

	lists, err := store.Open(store.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = lists.Close() })

	svc := New(cfg, Deps{
		Dispatcher: d,
		Staging:    staged,
		Store:      lists,
	}, logx.Nop())

	return &testEnv{svc: svc, handler: svc.routes(), dispatcher: d, lists: lists}
}

type form struct {
	fields map[string][]string
	files  map[string][]byte // field "name.ext" -> content
}

func (f form) request(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range f.fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	for name, content := range f.files {
		// field and filename split on first colon: "csv:contacts.csv"
		field, filename := name, name
		for i := 0; i < len(name); i++ {
			if name[i] == ':' {
				field, filename = name[:i], name[i+1:]
				break
			}
		}
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func TestSubmitRunInlineContacts(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})

	req := form{fields: map[string][]string{
		"contact": {"+919876543210", "+918888888888"},
		"name":    {"Asha", "Ravi"},
		"message": {"Hi {{name}}"},
	}}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	id, _ := decodeBody(t, rec)["run_id"].(string)
	if id == "" {
		t.Fatalf("missing run_id")
	}
	st, ok := env.dispatcher.Status(id)
	if !ok || st.Total != 2 {
		t.Fatalf("status = %+v, ok=%v", st, ok)
	}
}

func TestSubmitRunCSVUpload(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})

	csv := "name,number\nAsha,+919876543210\nBroken,12ab\n"
	req := form{
		fields: map[string][]string{"message": {"hello"}},
		files:  map[string][]byte{"csv:contacts.csv": []byte(csv)},
	}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	id, _ := decodeBody(t, rec)["run_id"].(string)
	st, _ := env.dispatcher.Status(id)
	if st.Total != 1 {
		t.Fatalf("only the valid CSV row counts: %+v", st)
	}
}

func TestSubmitRunFromSavedList(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	recs := []campaign.Recipient{{ID: 1, DisplayName: "Asha", ContactID: "+919876543210", Valid: true}}
	if err := env.lists.SaveList(context.Background(), "festival", recs); err != nil {
		t.Fatalf("save list: %v", err)
	}

	req := form{fields: map[string][]string{
		"list":    {"festival"},
		"message": {"hello"},
	}}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitRunNoRecipients(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	req := form{fields: map[string][]string{"message": {"hello"}}}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitRunValidationFailure(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	// Recipient present but invalid: passes resolution, fails validation.
	req := form{fields: map[string][]string{
		"contact": {"not-a-number"},
		"message": {"hello"},
	}}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitRunOversizedAttachment(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true}) // staging cap is 64 bytes

	req := form{
		fields: map[string][]string{
			"contact": {"+919876543210"},
			"message": {"hello"},
		},
		files: map[string][]byte{"attachment:big.bin": bytes.Repeat([]byte("x"), 100)},
	}.request(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRunStatusNotFound(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestTokenGuard(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true, Token: "hunter2"})

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token must be rejected, status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected, status = %d", rec.Code)
	}

	// CORS preflight bypasses the guard.
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/runs", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{Enabled: true})
	recs := []campaign.Recipient{{ID: 1, DisplayName: "Asha", ContactID: "+919876543210", Valid: true}}
	if err := env.lists.SaveList(context.Background(), "a", recs); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("lists status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/a", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get list status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/lists/a", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete list status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/a", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted list status = %d", rec.Code)
	}
}
