package grants

import (
	"context"
	"time"

	"github.com/one-zero-eight/guard/internal/app/store/audit"
	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"github.com/one-zero-eight/guard/internal/app/system/gdrive"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SetupRequest registers a file the author already created and shared with
// the service account.
type SetupRequest struct {
	AuthorID    primitive.ObjectID
	FileID      string
	DefaultRole models.Role
	ExpireAt    *time.Time
}

// SetupResult is the registered record plus the link joiners should follow.
type SetupResult struct {
	Record   models.DocumentRecord
	JoinLink string
}

// Setup puts an existing provider file under guard. The file must not already
// be registered and the service account must already hold access to it.
func (s *Service) Setup(ctx context.Context, req SetupRequest) (SetupResult, error) {
	if req.FileID == "" {
		return SetupResult{}, validationf("file id is required")
	}
	if !req.DefaultRole.Valid() {
		return SetupResult{}, validationf("unknown role %q", req.DefaultRole)
	}
	if _, err := s.store.GetByFileID(ctx, req.FileID); err == nil {
		return SetupResult{}, ErrAlreadyExists
	} else if err != documentstore.ErrNotFound {
		return SetupResult{}, err
	}

	ok, err := s.provider.HasServiceAccess(ctx, req.FileID)
	if err != nil {
		return SetupResult{}, err
	}
	if !ok {
		return SetupResult{}, validationf("share the file with %s first", s.provider.ServiceEmail())
	}

	title, kind, supported, err := s.provider.Metadata(ctx, req.FileID)
	if err != nil {
		return SetupResult{}, err
	}
	if !supported {
		return SetupResult{}, validationf("unsupported file type")
	}

	rec, err := s.createRecord(ctx, req.AuthorID, req.FileID, kind, title, req.DefaultRole, req.ExpireAt, "", "")
	if err != nil {
		return SetupResult{}, err
	}

	link := s.JoinLink(rec.Slug)
	s.writeGreeting(ctx, &rec, link)
	s.auditDocument(ctx, audit.EventDocumentSetup, req.AuthorID, rec.Slug, rec.FileID, true, "")
	return SetupResult{Record: rec, JoinLink: link}, nil
}

// ProvisionRequest asks the service to create a fresh file and register it in
// one step.
type ProvisionRequest struct {
	AuthorID    primitive.ObjectID
	AuthorEmail string
	Kind        models.FileKind
	Title       string
	DefaultRole models.Role
	ExpireAt    *time.Time
}

// Provision creates a new provider file owned by the service account,
// optionally grants the author writer access, and registers the result. If
// registration fails after the file exists, the file is deleted so no
// orphaned file lingers in the provider.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (SetupResult, error) {
	if req.Title == "" {
		return SetupResult{}, validationf("title is required")
	}
	if !req.DefaultRole.Valid() {
		return SetupResult{}, validationf("unknown role %q", req.DefaultRole)
	}
	if !gdrive.SupportedKind(req.Kind) {
		return SetupResult{}, validationf("unsupported file kind %q", req.Kind)
	}

	fileID, err := s.provider.CreateFile(ctx, req.Kind, req.Title)
	if err != nil {
		return SetupResult{}, err
	}
	res, err := s.finishProvision(ctx, req.AuthorID, req.AuthorEmail, fileID, req.Kind, req.Title, req.DefaultRole, req.ExpireAt)
	if err != nil {
		s.discardFile(ctx, fileID)
		return SetupResult{}, err
	}
	s.auditDocument(ctx, audit.EventDocumentCreated, req.AuthorID, res.Record.Slug, fileID, true, "")
	return res, nil
}

// CopyRequest provisions by copying an existing provider file.
type CopyRequest struct {
	AuthorID    primitive.ObjectID
	AuthorEmail string
	SourceID    string
	Title       string
	DefaultRole models.Role
	ExpireAt    *time.Time
}

// CopyFrom copies a source file the service account can read into a new
// service-owned file and registers the copy. The source itself stays
// untouched and unregistered.
func (s *Service) CopyFrom(ctx context.Context, req CopyRequest) (SetupResult, error) {
	if req.SourceID == "" {
		return SetupResult{}, validationf("source file id is required")
	}
	if req.Title == "" {
		return SetupResult{}, validationf("title is required")
	}
	if !req.DefaultRole.Valid() {
		return SetupResult{}, validationf("unknown role %q", req.DefaultRole)
	}

	_, kind, supported, err := s.provider.Metadata(ctx, req.SourceID)
	if err != nil {
		return SetupResult{}, err
	}
	if !supported {
		return SetupResult{}, validationf("unsupported file type")
	}

	fileID, err := s.provider.CopyFile(ctx, req.SourceID, req.Title)
	if err != nil {
		return SetupResult{}, err
	}
	res, err := s.finishProvision(ctx, req.AuthorID, req.AuthorEmail, fileID, kind, req.Title, req.DefaultRole, req.ExpireAt)
	if err != nil {
		s.discardFile(ctx, fileID)
		return SetupResult{}, err
	}
	s.auditDocument(ctx, audit.EventDocumentCopied, req.AuthorID, res.Record.Slug, fileID, true, "")
	return res, nil
}

// finishProvision runs the steps shared by Provision and CopyFrom once the
// file exists: author grant, record creation, greeting.
func (s *Service) finishProvision(ctx context.Context, authorID primitive.ObjectID, authorEmail, fileID string, kind models.FileKind, title string, defaultRole models.Role, expireAt *time.Time) (SetupResult, error) {
	ownerGrantID := ""
	if authorEmail != "" {
		id, err := s.provider.Grant(ctx, fileID, models.RoleWriter, authorEmail)
		if err != nil {
			return SetupResult{}, err
		}
		ownerGrantID = id
	}

	rec, err := s.createRecord(ctx, authorID, fileID, kind, title, defaultRole, expireAt, authorEmail, ownerGrantID)
	if err != nil {
		return SetupResult{}, err
	}
	link := s.JoinLink(rec.Slug)
	s.writeGreeting(ctx, &rec, link)
	return SetupResult{Record: rec, JoinLink: link}, nil
}

func (s *Service) createRecord(ctx context.Context, authorID primitive.ObjectID, fileID string, kind models.FileKind, title string, defaultRole models.Role, expireAt *time.Time, ownerEmail, ownerGrantID string) (models.DocumentRecord, error) {
	rec, err := s.store.Create(ctx, models.DocumentRecord{
		AuthorID:     authorID,
		DefaultRole:  defaultRole,
		FileID:       fileID,
		FileKind:     kind,
		Title:        title,
		OwnerEmail:   ownerEmail,
		OwnerGrantID: ownerGrantID,
		ExpireAt:     expireAt,
	})
	if err == documentstore.ErrDuplicateFile {
		return models.DocumentRecord{}, ErrAlreadyExists
	}
	if err != nil {
		return models.DocumentRecord{}, err
	}
	return rec, nil
}

// writeGreeting drops the how-to-share sheet into files that support it.
// Best effort: a greeting failure never fails the registration.
func (s *Service) writeGreeting(ctx context.Context, rec *models.DocumentRecord, link string) {
	if !gdrive.SupportsGreeting(rec.FileKind) {
		return
	}
	if _, err := s.provider.WriteGreetingSheet(ctx, rec.FileID, link, rec.DefaultRole); err != nil {
		s.log.Warn("greeting sheet failed",
			zap.String("slug", rec.Slug),
			zap.String("file_id", rec.FileID),
			zap.Error(err))
	}
}

func (s *Service) discardFile(ctx context.Context, fileID string) {
	if err := s.provider.DeleteFile(ctx, fileID); err != nil {
		s.log.Warn("orphan file cleanup failed",
			zap.String("file_id", fileID),
			zap.Error(err))
	}
}

// Delete unregisters the document. Author only. The provider file stays;
// it is removed only as compensation when provisioning itself fails.
func (s *Service) Delete(ctx context.Context, slug string, actorID primitive.ObjectID) error {
	rec, err := s.loadOwned(ctx, slug, actorID)
	if err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, slug)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.auditDocument(ctx, audit.EventDocumentDeleted, actorID, slug, rec.FileID, true, "")
	return nil
}

// RenameTitle changes the document's title in the provider and the record.
func (s *Service) RenameTitle(ctx context.Context, slug string, actorID primitive.ObjectID, title string) (models.DocumentRecord, error) {
	if title == "" {
		return models.DocumentRecord{}, validationf("title is required")
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.loadOwned(ctx, slug, actorID)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if rec.Title == title {
			return rec, nil
		}
		if err := s.provider.UpdateTitle(ctx, rec.FileID, rec.FileKind, title); err != nil {
			return models.DocumentRecord{}, err
		}
		rec.Title = title

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if !ok {
			continue
		}
		s.auditDocument(ctx, audit.EventTitleUpdated, actorID, slug, rec.FileID, true, "")
		return stored, nil
	}
	return models.DocumentRecord{}, errCASExhausted("rename", slug)
}

// Get returns the full record, author only.
func (s *Service) Get(ctx context.Context, slug string, actorID primitive.ObjectID) (models.DocumentRecord, error) {
	return s.loadOwned(ctx, slug, actorID)
}

// ListByAuthor returns every document the actor registered.
func (s *Service) ListByAuthor(ctx context.Context, actorID primitive.ObjectID) ([]models.DocumentRecord, error) {
	return s.store.ListByAuthor(ctx, actorID)
}
