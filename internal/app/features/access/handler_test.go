package access_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/one-zero-eight/guard/internal/app/features/access"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"github.com/one-zero-eight/guard/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	handler  *access.Handler
	svc      *grants.Service
	provider *testutil.MemoryProvider
	author   auth.TokenUser
	slug     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemoryStore()
	provider := testutil.NewMemoryProvider()
	svc := grants.New(store, provider, nil, "https://api.example.org", zap.NewNop())

	provider.AddFile("file-1", "Grades", models.KindSpreadsheet)
	author := testutil.NewUser()
	res, err := svc.Setup(t.Context(), grants.SetupRequest{
		AuthorID:    author.ID,
		FileID:      "file-1",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return &fixture{
		handler:  access.NewHandler(svc, zap.NewNop()),
		svc:      svc,
		provider: provider,
		author:   author,
		slug:     res.Record.Slug,
	}
}

func (f *fixture) request(method, body string, u auth.TokenUser, params ...string) *http.Request {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/documents/"+f.slug, rd)
	req = testutil.WithUser(req, u)
	req = testutil.WithChiURLParam(req, "slug", f.slug)
	for i := 0; i+1 < len(params); i += 2 {
		req = testutil.WithChiURLParam(req, params[i], params[i+1])
	}
	return req
}

func TestJoinGrantsAccess(t *testing.T) {
	f := newFixture(t)
	member := testutil.NewUser()

	rec := httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Role    string `json:"role"`
		Email   string `json:"email"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Role != "reader" || !resp.Created {
		t.Fatalf("response = %+v", resp)
	}
	if f.provider.GrantCalls != 1 {
		t.Fatalf("grant calls = %d, want 1", f.provider.GrantCalls)
	}
}

func TestJoinAgainReturnsOKWithoutNewGrant(t *testing.T) {
	f := newFixture(t)
	member := testutil.NewUser()

	rec := httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first join status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))
	if rec.Code != http.StatusOK {
		t.Fatalf("second join status = %d, want 200", rec.Code)
	}
	if f.provider.GrantCalls != 1 {
		t.Fatalf("grant calls = %d, want 1", f.provider.GrantCalls)
	}
}

func TestJoinBannedUserGets403(t *testing.T) {
	f := newFixture(t)
	member := testutil.NewUser()

	if _, err := f.svc.Ban(t.Context(), f.slug, f.author.ID, member.ID, "member@gmail.com", ""); err != nil {
		t.Fatalf("ban: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestBanRequiresAuthorAndRevokes(t *testing.T) {
	f := newFixture(t)
	member := testutil.NewUser()

	rec := httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))
	if rec.Code != http.StatusCreated {
		t.Fatalf("join status = %d", rec.Code)
	}

	// Non-author cannot ban.
	rec = httptest.NewRecorder()
	f.handler.Ban(rec, f.request(http.MethodPost, `{"user_id":"`+member.ID.Hex()+`"}`, testutil.NewUser()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-author ban status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.handler.Ban(rec, f.request(http.MethodPost, `{"user_id":"`+member.ID.Hex()+`"}`, f.author))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ban status = %d, body %s", rec.Code, rec.Body.String())
	}
	if f.provider.RevokeCalls != 1 {
		t.Fatalf("revoke calls = %d, want 1", f.provider.RevokeCalls)
	}
}

func TestBanInvalidUserID(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Ban(rec, f.request(http.MethodPost, `{"user_id":"not-hex"}`, f.author))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUnban(t *testing.T) {
	f := newFixture(t)
	member := testutil.NewUser()

	if _, err := f.svc.Ban(t.Context(), f.slug, f.author.ID, member.ID, "member@gmail.com", ""); err != nil {
		t.Fatalf("ban: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.Unban(rec, f.request(http.MethodDelete, "", f.author, "userID", member.ID.Hex()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unban status = %d", rec.Code)
	}

	// The user can join again afterwards.
	rec = httptest.NewRecorder()
	f.handler.Join(rec, f.request(http.MethodPost, `{"email":"member@gmail.com"}`, member))
	if rec.Code != http.StatusCreated {
		t.Fatalf("rejoin status = %d", rec.Code)
	}
}

func TestCleanupReportsRevokedCount(t *testing.T) {
	f := newFixture(t)

	// Grants the registration does not account for.
	ctx := t.Context()
	if _, err := f.provider.Grant(ctx, "file-1", models.RoleReader, "stray1@gmail.com"); err != nil {
		t.Fatalf("seed stray: %v", err)
	}
	if _, err := f.provider.Grant(ctx, "file-1", models.RoleWriter, "stray2@gmail.com"); err != nil {
		t.Fatalf("seed stray: %v", err)
	}
	f.provider.GrantCalls = 0

	rec := httptest.NewRecorder()
	f.handler.Cleanup(rec, f.request(http.MethodPost, "", f.author))
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Revoked int `json:"revoked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Revoked != 2 {
		t.Fatalf("revoked = %d, want 2", resp.Revoked)
	}
}
