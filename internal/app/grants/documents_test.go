package grants

import (
	"errors"
	"testing"

	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSetupRegistersExistingFile(t *testing.T) {
	svc, st, p := newTestService(t)
	p.addFile("f1", "Course plan", models.KindDocument)

	author := primitive.NewObjectID()
	res, err := svc.Setup(t.Context(), SetupRequest{
		AuthorID:    author,
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if res.Record.Title != "Course plan" {
		t.Fatalf("title = %q", res.Record.Title)
	}
	if res.Record.FileKind != models.KindDocument {
		t.Fatalf("kind = %q", res.Record.FileKind)
	}
	if res.Record.Slug == "" || res.JoinLink == "" {
		t.Fatal("setup must produce a slug and join link")
	}
	if _, err := st.GetBySlug(t.Context(), res.Record.Slug); err != nil {
		t.Fatalf("record not stored: %v", err)
	}
}

func TestSetupSameFileTwice(t *testing.T) {
	svc, _, p := newTestService(t)
	p.addFile("f1", "Course plan", models.KindDocument)

	req := SetupRequest{AuthorID: primitive.NewObjectID(), FileID: "f1", DefaultRole: models.RoleReader}
	if _, err := svc.Setup(t.Context(), req); err != nil {
		t.Fatalf("first setup: %v", err)
	}
	_, err := svc.Setup(t.Context(), req)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSetupWithoutServiceAccess(t *testing.T) {
	svc, _, p := newTestService(t)
	p.addFile("f1", "Course plan", models.KindDocument)
	p.mu.Lock()
	p.hasAcct["f1"] = false
	p.mu.Unlock()

	_, err := svc.Setup(t.Context(), SetupRequest{
		AuthorID:    primitive.NewObjectID(),
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSetupUnsupportedFileType(t *testing.T) {
	svc, _, p := newTestService(t)
	p.addFile("f1", "Deck", models.FileKind("presentation"))

	_, err := svc.Setup(t.Context(), SetupRequest{
		AuthorID:    primitive.NewObjectID(),
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSetupSurvivesGreetingFailure(t *testing.T) {
	svc, _, p := newTestService(t)
	p.addFile("f1", "Grades", models.KindSpreadsheet)
	p.greetingErr = errors.New("sheets down")

	if _, err := svc.Setup(t.Context(), SetupRequest{
		AuthorID:    primitive.NewObjectID(),
		FileID:      "f1",
		DefaultRole: models.RoleReader,
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestProvisionCreatesFileAndGrantsAuthor(t *testing.T) {
	svc, _, p := newTestService(t)
	author := primitive.NewObjectID()

	res, err := svc.Provision(t.Context(), ProvisionRequest{
		AuthorID:    author,
		AuthorEmail: "author@gmail.com",
		Kind:        models.KindSpreadsheet,
		Title:       "Attendance",
		DefaultRole: models.RoleReader,
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if res.Record.OwnerGrantID == "" {
		t.Fatal("author grant missing")
	}
	f := p.file(res.Record.FileID)
	if f == nil {
		t.Fatal("file not created")
	}
	if f.title != "Attendance" {
		t.Fatalf("title = %q", f.title)
	}
	if len(f.grants) != 1 || f.grants[0].role != models.RoleWriter {
		t.Fatalf("author grant = %+v, want one writer grant", f.grants)
	}
}

func TestProvisionDeletesFileWhenRegistrationFails(t *testing.T) {
	svc, _, p := newTestService(t)
	p.grantErr = errors.New("quota exceeded")

	_, err := svc.Provision(t.Context(), ProvisionRequest{
		AuthorID:    primitive.NewObjectID(),
		AuthorEmail: "author@gmail.com",
		Kind:        models.KindSpreadsheet,
		Title:       "Attendance",
		DefaultRole: models.RoleReader,
	})
	if err == nil {
		t.Fatal("expected provision to fail")
	}
	if p.deleteCalls != 1 {
		t.Fatalf("delete calls = %d, want the orphan file removed", p.deleteCalls)
	}
	if len(p.files) != 0 {
		t.Fatalf("%d files left behind", len(p.files))
	}
}

func TestProvisionUnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Provision(t.Context(), ProvisionRequest{
		AuthorID:    primitive.NewObjectID(),
		Kind:        models.FileKind("drawing"),
		Title:       "Doodle",
		DefaultRole: models.RoleReader,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCopyFromKeepsSourceUntouched(t *testing.T) {
	svc, st, p := newTestService(t)
	p.addFile("template", "Template", models.KindSpreadsheet)
	author := primitive.NewObjectID()

	res, err := svc.CopyFrom(t.Context(), CopyRequest{
		AuthorID:    author,
		AuthorEmail: "author@gmail.com",
		SourceID:    "template",
		Title:       "Week 3",
		DefaultRole: models.RoleWriter,
	})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if res.Record.FileID == "template" {
		t.Fatal("copy must register the new file, not the source")
	}
	if src := p.file("template"); src == nil || len(src.grants) != 0 {
		t.Fatal("source file was modified")
	}
	if _, err := st.GetByFileID(t.Context(), "template"); err == nil {
		t.Fatal("source must stay unregistered")
	}
}

func TestDeleteRemovesRecordOnly(t *testing.T) {
	svc, st, p := newTestService(t)
	author := primitive.NewObjectID()
	rec := seedDocument(t, svc, p, author, models.RoleReader)

	if err := svc.Delete(t.Context(), rec.Slug, author); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetBySlug(t.Context(), rec.Slug); err == nil {
		t.Fatal("record survived delete")
	}
	if p.file(rec.FileID) == nil {
		t.Fatal("provider file should survive unregistration")
	}
	if p.deleteCalls != 0 {
		t.Fatalf("deleteCalls = %d, want 0", p.deleteCalls)
	}
	if _, err := svc.Get(t.Context(), rec.Slug, author); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestDeleteRequiresAuthor(t *testing.T) {
	svc, _, p := newTestService(t)
	rec := seedDocument(t, svc, p, primitive.NewObjectID(), models.RoleReader)

	err := svc.Delete(t.Context(), rec.Slug, primitive.NewObjectID())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRenameTitle(t *testing.T) {
	svc, _, p := newTestService(t)
	author := primitive.NewObjectID()
	rec := seedDocument(t, svc, p, author, models.RoleReader)

	updated, err := svc.RenameTitle(t.Context(), rec.Slug, author, "Grades v2")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Title != "Grades v2" {
		t.Fatalf("title = %q", updated.Title)
	}
	if f := p.file(rec.FileID); f.title != "Grades v2" {
		t.Fatalf("provider title = %q", f.title)
	}
}

func TestGetRequiresAuthor(t *testing.T) {
	svc, _, p := newTestService(t)
	rec := seedDocument(t, svc, p, primitive.NewObjectID(), models.RoleReader)

	_, err := svc.Get(t.Context(), rec.Slug, primitive.NewObjectID())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListByAuthorScopes(t *testing.T) {
	svc, _, p := newTestService(t)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	p.addFile("fa", "A", models.KindDocument)
	p.addFile("fb", "B", models.KindDocument)
	if _, err := svc.Setup(t.Context(), SetupRequest{AuthorID: a, FileID: "fa", DefaultRole: models.RoleReader}); err != nil {
		t.Fatalf("setup a: %v", err)
	}
	if _, err := svc.Setup(t.Context(), SetupRequest{AuthorID: b, FileID: "fb", DefaultRole: models.RoleReader}); err != nil {
		t.Fatalf("setup b: %v", err)
	}

	docs, err := svc.ListByAuthor(t.Context(), a)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].FileID != "fa" {
		t.Fatalf("docs = %+v, want only fa", docs)
	}
}
