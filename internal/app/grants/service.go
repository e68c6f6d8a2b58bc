// Package grants is the access grant reconciliation core: it owns the
// authoritative join/ban/role state for each protected document and keeps it
// consistent with the live ACL held by the external provider.
//
// Every mutating operation is a read-modify-write over one document record:
// load, validate locally, call the provider, write the whole record back.
// The write is a compare-and-swap on the record version; a conflicted
// operation re-reads and retries, so the idempotency checks run again
// against fresh state.
package grants

import (
	"context"
	"fmt"

	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"github.com/one-zero-eight/guard/internal/app/system/auditlog"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecordStore is the persistence the core needs: whole-record reads and
// version-guarded whole-record writes, keyed by slug, file id and author.
// Implemented by documentstore.Store.
type RecordStore interface {
	Create(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error)
	GetBySlug(ctx context.Context, slug string) (models.DocumentRecord, error)
	GetByFileID(ctx context.Context, fileID string) (models.DocumentRecord, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.DocumentRecord, error)
	Replace(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error)
	Delete(ctx context.Context, slug string) (bool, error)
}

// Provider is the external permission provider as the core sees it:
// normalized operations, normalized errors. Implemented by gdrive.Client.
type Provider interface {
	Grant(ctx context.Context, fileID string, role models.Role, email string) (string, error)
	Revoke(ctx context.Context, fileID, grantID string) error
	UpdateRole(ctx context.Context, fileID, grantID string, role models.Role) error
	ListUserGrants(ctx context.Context, fileID string) (map[string]string, error)
	CountUserGrants(ctx context.Context, fileID string) (int, error)
	AcceptPendingOwnership(ctx context.Context, fileID string) (bool, error)
	StripPublicSharingAndLock(ctx context.Context, fileID string) (int, error)
	HasServiceAccess(ctx context.Context, fileID string) (bool, error)
	Metadata(ctx context.Context, fileID string) (title string, kind models.FileKind, ok bool, err error)
	CreateFile(ctx context.Context, kind models.FileKind, title string) (string, error)
	CopyFile(ctx context.Context, srcFileID, title string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
	UpdateTitle(ctx context.Context, fileID string, kind models.FileKind, title string) error
	WriteGreetingSheet(ctx context.Context, spreadsheetID, joinLink string, role models.Role) (string, error)
	ServiceEmail() string
}

// Service drives grant reconciliation for all documents.
type Service struct {
	store    RecordStore
	provider Provider
	audit    *auditlog.Logger
	log      *zap.Logger
	baseURL  string
}

// New wires the reconciliation core. audit may be nil (tests).
func New(store RecordStore, provider Provider, audit *auditlog.Logger, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		audit:    audit,
		log:      logger,
		baseURL:  baseURL,
	}
}

// JoinLink is the public URL identity-verified users follow to request
// access.
func (s *Service) JoinLink(slug string) string {
	return s.baseURL + "/guard/documents/" + slug + "/join"
}

// ServiceAccountEmail is the provider identity authors share their files
// with before registering them.
func (s *Service) ServiceAccountEmail() string {
	return s.provider.ServiceEmail()
}

// casAttempts bounds the retry loop on concurrent-write conflicts. Each
// attempt re-reads the record, so idempotency checks see fresh state.
const casAttempts = 3

func (s *Service) load(ctx context.Context, slug string) (models.DocumentRecord, error) {
	rec, err := s.store.GetBySlug(ctx, slug)
	if err == documentstore.ErrNotFound {
		return models.DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return models.DocumentRecord{}, err
	}
	return rec, nil
}

func (s *Service) loadOwned(ctx context.Context, slug string, actorID primitive.ObjectID) (models.DocumentRecord, error) {
	rec, err := s.load(ctx, slug)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	if !rec.IsAuthor(actorID) {
		return models.DocumentRecord{}, ErrForbidden
	}
	return rec, nil
}

// replace writes rec back and normalizes store errors. The bool result is
// false on a version conflict, telling the caller to re-read and retry.
func (s *Service) replace(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, bool, error) {
	stored, err := s.store.Replace(ctx, rec)
	switch err {
	case nil:
		return stored, true, nil
	case documentstore.ErrConflict:
		return models.DocumentRecord{}, false, nil
	case documentstore.ErrNotFound:
		return models.DocumentRecord{}, false, ErrNotFound
	default:
		return models.DocumentRecord{}, false, err
	}
}

func errCASExhausted(op, slug string) error {
	return fmt.Errorf("%s on %s: gave up after %d conflicting writes", op, slug, casAttempts)
}
