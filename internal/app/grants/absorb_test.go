package grants

import (
	"errors"
	"testing"

	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// addAbsorbable sets up a file with a pending ownership transfer, a couple of
// public link grants, and the previous owner's personal grant.
func addAbsorbable(p *fakeProvider, fileID, ownerEmail string) {
	f := p.addFile(fileID, "Shared notes", models.KindDocument)
	f.pending = true
	f.public = 2
	f.grants = append(f.grants,
		fakeGrant{id: "perm-owner", email: ownerEmail, role: models.RoleWriter},
		fakeGrant{id: "perm-sa", email: p.email, role: "owner"},
	)
}

func TestAbsorbAcceptsOwnershipAndRegisters(t *testing.T) {
	svc, st, p := newTestService(t)
	addAbsorbable(p, "f1", "owner@gmail.com")
	author := primitive.NewObjectID()

	res, err := svc.Absorb(t.Context(), AbsorbRequest{
		AuthorID:    author,
		AuthorEmail: "owner@gmail.com",
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if res.PublicLinksRemoved != 2 {
		t.Fatalf("public links removed = %d, want 2", res.PublicLinksRemoved)
	}
	if res.CleanupRecommended {
		t.Fatal("owner and service account grants must not trigger a cleanup hint")
	}
	if p.file("f1").pending {
		t.Fatal("pending transfer not accepted")
	}
	rec, err := st.GetByFileID(t.Context(), "f1")
	if err != nil {
		t.Fatalf("record missing: %v", err)
	}
	if rec.OwnerEmail != "owner@gmail.com" {
		t.Fatalf("owner email = %q", rec.OwnerEmail)
	}
}

func TestAbsorbWithoutPendingTransfer(t *testing.T) {
	svc, _, p := newTestService(t)
	p.addFile("f1", "Shared notes", models.KindDocument)

	_, err := svc.Absorb(t.Context(), AbsorbRequest{
		AuthorID:    primitive.NewObjectID(),
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestAbsorbAlreadyRegisteredFile(t *testing.T) {
	svc, _, p := newTestService(t)
	rec := seedDocument(t, svc, p, primitive.NewObjectID(), models.RoleReader)

	_, err := svc.Absorb(t.Context(), AbsorbRequest{
		AuthorID:    primitive.NewObjectID(),
		FileID:      rec.FileID,
		DefaultRole: models.RoleReader,
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestAbsorbFlagsStrayGrants(t *testing.T) {
	svc, _, p := newTestService(t)
	addAbsorbable(p, "f1", "owner@gmail.com")
	f := p.file("f1")
	f.grants = append(f.grants,
		fakeGrant{id: "perm-x", email: "friend@gmail.com", role: models.RoleWriter},
		fakeGrant{id: "perm-y", email: "colleague@gmail.com", role: models.RoleReader},
	)

	res, err := svc.Absorb(t.Context(), AbsorbRequest{
		AuthorID:    primitive.NewObjectID(),
		AuthorEmail: "owner@gmail.com",
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if !res.CleanupRecommended || res.StrayGrants != 2 {
		t.Fatalf("stray=%d recommended=%v, want 2/true", res.StrayGrants, res.CleanupRecommended)
	}
}

func TestCleanupRevokesUnaccountedGrants(t *testing.T) {
	svc, _, p := newTestService(t)
	author := primitive.NewObjectID()
	rec := seedDocument(t, svc, p, author, models.RoleReader)

	// One legitimate member.
	joined, err := svc.Join(t.Context(), rec.Slug, JoinRequest{UserID: primitive.NewObjectID(), Email: "member@gmail.com"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	// Grants the record knows nothing about.
	f := p.file(rec.FileID)
	f.grants = append(f.grants,
		fakeGrant{id: "perm-a", email: "stray1@gmail.com", role: models.RoleWriter},
		fakeGrant{id: "perm-b", email: "stray2@gmail.com", role: models.RoleReader},
		fakeGrant{id: "perm-sa", email: p.email, role: "owner"},
	)

	revoked, err := svc.Cleanup(t.Context(), rec.Slug, author)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("revoked = %d, want 2", revoked)
	}
	live, _ := p.ListUserGrants(t.Context(), rec.FileID)
	if _, ok := live["member@gmail.com"]; !ok {
		t.Fatal("member grant was revoked")
	}
	if _, ok := live[p.email]; !ok {
		t.Fatal("service account grant was revoked")
	}
	if live["member@gmail.com"] != joined.Join.GrantID {
		t.Fatal("member grant id changed")
	}
}

func TestCleanupKeepsAuthorOwnerGrant(t *testing.T) {
	svc, _, p := newTestService(t)
	author := primitive.NewObjectID()
	res, err := svc.Provision(t.Context(), ProvisionRequest{
		AuthorID:    author,
		AuthorEmail: "Author@Gmail.com",
		Kind:        models.KindSpreadsheet,
		Title:       "Attendance",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	f := p.file(res.Record.FileID)
	f.grants = append(f.grants, fakeGrant{id: "perm-stray", email: "stray@gmail.com", role: models.RoleReader})

	revoked, err := svc.Cleanup(t.Context(), res.Record.Slug, author)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("revoked = %d, want only the stray", revoked)
	}
	live, _ := p.ListUserGrants(t.Context(), res.Record.FileID)
	if _, ok := live["Author@Gmail.com"]; !ok {
		t.Fatal("author owner grant was revoked")
	}
}

func TestCleanupRequiresAuthor(t *testing.T) {
	svc, _, p := newTestService(t)
	rec := seedDocument(t, svc, p, primitive.NewObjectID(), models.RoleReader)

	_, err := svc.Cleanup(t.Context(), rec.Slug, primitive.NewObjectID())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
