package documents_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/one-zero-eight/guard/internal/app/features/documents"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"github.com/one-zero-eight/guard/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*documents.Handler, *testutil.MemoryProvider) {
	t.Helper()
	store := testutil.NewMemoryStore()
	provider := testutil.NewMemoryProvider()
	svc := grants.New(store, provider, nil, "https://api.example.org", zap.NewNop())
	return documents.NewHandler(svc, zap.NewNop()), provider
}

func postJSON(target, body string, u auth.TokenUser) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return testutil.WithUser(req, u)
}

func TestSetupRegistersSharedFile(t *testing.T) {
	h, p := newHandler(t)
	p.AddFile("file-1", "Grades", models.KindSpreadsheet)

	rec := httptest.NewRecorder()
	h.Setup(rec, postJSON("/documents", `{"file_id":"file-1","default_role":"reader"}`, testutil.NewUser()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Slug     string `json:"slug"`
		Title    string `json:"title"`
		JoinLink string `json:"join_link"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Slug == "" || resp.JoinLink == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if resp.Title != "Grades" {
		t.Fatalf("title = %q", resp.Title)
	}
}

func TestSetupUnsharedFileRejected(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Setup(rec, postJSON("/documents", `{"file_id":"unknown","default_role":"reader"}`, testutil.NewUser()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSetupRequiresAuthentication(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Setup(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSetupMalformedBody(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Setup(rec, postJSON("/documents", `{not json`, testutil.NewUser()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProvisionStripsMarkupFromTitle(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Provision(rec, postJSON("/documents/new",
		`{"kind":"spreadsheet","title":"<script>alert(1)</script> Grades ","default_role":"reader"}`,
		testutil.NewUser()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Title != "Grades" {
		t.Fatalf("title = %q, want sanitized %q", resp.Title, "Grades")
	}
}

func TestProvisionEmptyTitleAfterSanitizing(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Provision(rec, postJSON("/documents/new",
		`{"kind":"spreadsheet","title":"<b></b>","default_role":"reader"}`,
		testutil.NewUser()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetForeignDocumentForbidden(t *testing.T) {
	h, p := newHandler(t)
	p.AddFile("file-1", "Grades", models.KindSpreadsheet)

	rec := httptest.NewRecorder()
	h.Setup(rec, postJSON("/documents", `{"file_id":"file-1","default_role":"reader"}`, testutil.NewUser()))
	var created struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/"+created.Slug, nil)
	req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.NewUser()), "slug", created.Slug)
	rec = httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGetUnknownSlug(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.NewUser()), "slug", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServiceAccountEmail(t *testing.T) {
	h, p := newHandler(t)

	req := testutil.WithUser(httptest.NewRequest(http.MethodGet, "/service-account-email", nil), testutil.NewUser())
	rec := httptest.NewRecorder()
	h.ServiceAccountEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["email"] != p.ServiceEmail() {
		t.Fatalf("email = %q, want %q", resp["email"], p.ServiceEmail())
	}
}
