package grants

import (
	"context"
	"time"

	"github.com/one-zero-eight/guard/internal/app/store/audit"
	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AbsorbRequest takes over a file whose current owner has initiated an
// ownership transfer to the service account.
type AbsorbRequest struct {
	AuthorID    primitive.ObjectID
	AuthorEmail string
	FileID      string
	DefaultRole models.Role
	ExpireAt    *time.Time
}

// AbsorbResult reports the registration plus whether leftover grants from the
// file's previous life were detected.
type AbsorbResult struct {
	Record             models.DocumentRecord
	JoinLink           string
	PublicLinksRemoved int
	StrayGrants        int
	CleanupRecommended bool
}

// Absorb completes a pending ownership transfer: the service account accepts
// ownership, strips link sharing, locks resharing, and registers the file.
// The previous owner keeps their personal grant and becomes the document's
// author.
func (s *Service) Absorb(ctx context.Context, req AbsorbRequest) (AbsorbResult, error) {
	if req.FileID == "" {
		return AbsorbResult{}, validationf("file id is required")
	}
	if !req.DefaultRole.Valid() {
		return AbsorbResult{}, validationf("unknown role %q", req.DefaultRole)
	}
	if _, err := s.store.GetByFileID(ctx, req.FileID); err == nil {
		return AbsorbResult{}, ErrAlreadyExists
	} else if err != documentstore.ErrNotFound {
		return AbsorbResult{}, err
	}

	accepted, err := s.provider.AcceptPendingOwnership(ctx, req.FileID)
	if err != nil {
		return AbsorbResult{}, err
	}
	if !accepted {
		return AbsorbResult{}, validationf("no pending ownership transfer to %s on this file", s.provider.ServiceEmail())
	}

	removed, err := s.provider.StripPublicSharingAndLock(ctx, req.FileID)
	if err != nil {
		return AbsorbResult{}, err
	}

	title, kind, supported, err := s.provider.Metadata(ctx, req.FileID)
	if err != nil {
		return AbsorbResult{}, err
	}
	if !supported {
		return AbsorbResult{}, validationf("unsupported file type")
	}

	rec, err := s.createRecord(ctx, req.AuthorID, req.FileID, kind, title, req.DefaultRole, req.ExpireAt, req.AuthorEmail, "")
	if err != nil {
		return AbsorbResult{}, err
	}

	// Grants the previous owner handed out directly are invisible to the
	// record. Beyond the service account and the author there should be
	// none; anything more is a candidate for Cleanup.
	stray := 0
	if count, err := s.provider.CountUserGrants(ctx, req.FileID); err != nil {
		s.log.Warn("grant count after absorb failed",
			zap.String("slug", rec.Slug),
			zap.Error(err))
	} else if count > 2 {
		stray = count - 2
	}

	link := s.JoinLink(rec.Slug)
	s.writeGreeting(ctx, &rec, link)
	s.auditDocument(ctx, audit.EventDocumentAbsorbed, req.AuthorID, rec.Slug, rec.FileID, true, "")
	return AbsorbResult{
		Record:             rec,
		JoinLink:           link,
		PublicLinksRemoved: removed,
		StrayGrants:        stray,
		CleanupRecommended: stray > 0,
	}, nil
}

// Cleanup revokes every user grant on the file that the record does not
// account for. Kept: each join's contact, the service account itself, and
// the author's owner grant. Author only. Returns how many grants went away.
func (s *Service) Cleanup(ctx context.Context, slug string, actorID primitive.ObjectID) (int, error) {
	rec, err := s.loadOwned(ctx, slug, actorID)
	if err != nil {
		return 0, err
	}

	keep := map[string]struct{}{
		normalizeEmail(s.provider.ServiceEmail()): {},
	}
	if rec.OwnerEmail != "" {
		keep[normalizeEmail(rec.OwnerEmail)] = struct{}{}
	}
	for _, j := range rec.Joins {
		keep[normalizeEmail(j.Email)] = struct{}{}
	}

	live, err := s.provider.ListUserGrants(ctx, rec.FileID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for email, grantID := range live {
		if _, ok := keep[normalizeEmail(email)]; ok {
			continue
		}
		if err := s.provider.Revoke(ctx, rec.FileID, grantID); err != nil {
			s.log.Warn("stray grant revoke failed",
				zap.String("slug", slug),
				zap.String("email", email),
				zap.Error(err))
			continue
		}
		revoked++
	}

	s.auditAccess(ctx, audit.EventGrantsCleaned, actorID, primitive.NilObjectID, slug, true, "", map[string]string{
		"revoked": itoa(revoked),
	})
	return revoked, nil
}
