package grants

import (
	"context"
	"time"

	"github.com/one-zero-eight/guard/internal/app/store/audit"
	"github.com/one-zero-eight/guard/internal/app/system/metrics"
	"github.com/one-zero-eight/guard/internal/app/system/roles"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// JoinRequest identifies the user asking for access to a document.
type JoinRequest struct {
	UserID   primitive.ObjectID
	Email    string
	OrgEmail string
}

// JoinResult reports the grant a join produced or found already in place.
type JoinResult struct {
	Record  models.DocumentRecord
	Join    models.Join
	Created bool
}

// Join admits a verified user to the document behind slug. Joining is keyed
// on the contact email: a user already joined with that email gets their
// existing membership back and no second grant is created. Banned users are
// refused before any provider call.
func (s *Service) Join(ctx context.Context, slug string, req JoinRequest) (JoinResult, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		return JoinResult{}, validationf("contact email is required")
	}

	// The grant survives across CAS retries: if the write conflicts after
	// the provider call succeeded, the retry reuses the grant instead of
	// asking the provider again. If a retry then finds the grant has become
	// unwanted (a racing ban, or the same email joined through another
	// request) it is revoked before returning.
	grantID := ""
	grantRole := models.Role("")
	grantFileID := ""

	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.load(ctx, slug)
		if err != nil {
			if err == ErrNotFound {
				metrics.JoinsRejected.WithLabelValues("not_found").Inc()
			}
			return JoinResult{}, err
		}
		if rec.IsBanned(req.UserID) {
			metrics.JoinsRejected.WithLabelValues("banned").Inc()
			s.auditAccess(ctx, audit.EventJoinRejected, req.UserID, req.UserID, slug, false, "banned", nil)
			s.revokeOrphan(ctx, grantFileID, grantID)
			return JoinResult{}, ErrBanned
		}
		if existing, ok := rec.JoinByEmail(req.Email); ok {
			if existing.GrantID != grantID {
				s.revokeOrphan(ctx, grantFileID, grantID)
			}
			return JoinResult{Record: rec, Join: existing, Created: false}, nil
		}

		role := roles.Resolve(&rec, req.UserID, "")
		if grantID == "" || grantRole != role {
			if grantID != "" {
				// The default role changed under us between attempts.
				if err := s.provider.UpdateRole(ctx, rec.FileID, grantID, role); err != nil {
					return JoinResult{}, err
				}
			} else {
				grantID, err = s.provider.Grant(ctx, rec.FileID, role, req.Email)
				if err != nil {
					s.auditAccess(ctx, audit.EventJoinRejected, req.UserID, req.UserID, slug, false, "provider", nil)
					return JoinResult{}, err
				}
				grantFileID = rec.FileID
			}
			grantRole = role
		}

		j := models.Join{
			UserID:   req.UserID,
			Email:    req.Email,
			OrgEmail: req.OrgEmail,
			Role:     role,
			JoinedAt: time.Now().UTC(),
			GrantID:  grantID,
		}
		rec.Joins = append(rec.Joins, j)

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return JoinResult{}, err
		}
		if !ok {
			continue
		}
		s.auditAccess(ctx, audit.EventUserJoined, req.UserID, req.UserID, slug, true, "", map[string]string{"role": string(role)})
		return JoinResult{Record: stored, Join: j, Created: true}, nil
	}
	s.revokeOrphan(ctx, grantFileID, grantID)
	return JoinResult{}, errCASExhausted("join", slug)
}

// revokeOrphan takes back a grant that never made it into a stored record.
func (s *Service) revokeOrphan(ctx context.Context, fileID, grantID string) {
	if grantID == "" {
		return
	}
	if err := s.provider.Revoke(ctx, fileID, grantID); err != nil {
		s.log.Warn("orphan grant revoke failed",
			zap.String("file_id", fileID),
			zap.String("grant_id", grantID),
			zap.Error(err))
	}
}

// Ban blocks a user from the document and removes any membership they hold.
// Only the author may ban. Revoking the live grant is best effort: a provider
// failure is logged and the ban still lands.
func (s *Service) Ban(ctx context.Context, slug string, actorID, targetID primitive.ObjectID, email, orgEmail string) (models.DocumentRecord, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.loadOwned(ctx, slug, actorID)
		if err != nil {
			return models.DocumentRecord{}, err
		}

		// A repeat ban skips only the ban entry. The join sweep always
		// runs so a membership that drifted in beside the ban is still
		// stripped and its grant revoked.
		alreadyBanned := rec.IsBanned(targetID)

		kept := rec.Joins[:0:0]
		removedJoin := false
		for _, j := range rec.Joins {
			if j.UserID != targetID {
				kept = append(kept, j)
				continue
			}
			removedJoin = true
			if j.GrantID != "" {
				if err := s.provider.Revoke(ctx, rec.FileID, j.GrantID); err != nil {
					s.log.Warn("revoke on ban failed",
						zap.String("slug", slug),
						zap.String("grant_id", j.GrantID),
						zap.Error(err))
				}
			}
			if email == "" {
				email = j.Email
			}
			if orgEmail == "" {
				orgEmail = j.OrgEmail
			}
		}
		if alreadyBanned && !removedJoin {
			return rec, nil
		}
		rec.Joins = kept
		if !alreadyBanned {
			rec.Bans = append(rec.Bans, models.Ban{
				UserID:   targetID,
				Email:    email,
				OrgEmail: orgEmail,
				BannedAt: time.Now().UTC(),
			})
		}

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if !ok {
			continue
		}
		if !alreadyBanned {
			s.auditAccess(ctx, audit.EventUserBanned, actorID, targetID, slug, true, "", nil)
		}
		return stored, nil
	}
	return models.DocumentRecord{}, errCASExhausted("ban", slug)
}

// Unban lifts a ban. Idempotent: unbanning a user who is not banned is a
// no-op. The user gets no grant back; they must join again.
func (s *Service) Unban(ctx context.Context, slug string, actorID, targetID primitive.ObjectID) (models.DocumentRecord, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.loadOwned(ctx, slug, actorID)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		kept := rec.Bans[:0:0]
		removed := false
		for _, b := range rec.Bans {
			if b.UserID == targetID {
				removed = true
				continue
			}
			kept = append(kept, b)
		}
		if !removed {
			return rec, nil
		}
		rec.Bans = kept

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if !ok {
			continue
		}
		s.auditAccess(ctx, audit.EventUserUnbanned, actorID, targetID, slug, true, "", nil)
		return stored, nil
	}
	return models.DocumentRecord{}, errCASExhausted("unban", slug)
}

// RoleUpdateResult reports how far a default-role change propagated.
type RoleUpdateResult struct {
	Record  models.DocumentRecord
	Updated int
	Failed  int
}

// UpdateDefaultRole changes the role new joiners receive and propagates it to
// every existing member. The stored record converges: every Join is stamped
// with the new role whatever the provider says. Provider updates that fail
// count toward Failed and leave drift the cleanup pass repairs later.
func (s *Service) UpdateDefaultRole(ctx context.Context, slug string, actorID primitive.ObjectID, role models.Role) (RoleUpdateResult, error) {
	if !role.Valid() {
		return RoleUpdateResult{}, validationf("unknown role %q", role)
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.loadOwned(ctx, slug, actorID)
		if err != nil {
			return RoleUpdateResult{}, err
		}
		rec.DefaultRole = role

		updated, failed := 0, 0
		for i := range rec.Joins {
			j := &rec.Joins[i]
			j.Role = role
			if j.GrantID == "" {
				failed++
				continue
			}
			if err := s.provider.UpdateRole(ctx, rec.FileID, j.GrantID, role); err != nil {
				failed++
				s.log.Warn("role propagation failed",
					zap.String("slug", slug),
					zap.String("grant_id", j.GrantID),
					zap.Error(err))
				continue
			}
			updated++
		}

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return RoleUpdateResult{}, err
		}
		if !ok {
			continue
		}
		s.auditAccess(ctx, audit.EventDefaultRoleUpdated, actorID, primitive.NilObjectID, slug, failed == 0, "", map[string]string{"role": string(role)})
		return RoleUpdateResult{Record: stored, Updated: updated, Failed: failed}, nil
	}
	return RoleUpdateResult{}, errCASExhausted("update default role", slug)
}

// UpdateUserRole changes one member's role without touching the default.
func (s *Service) UpdateUserRole(ctx context.Context, slug string, actorID, targetID primitive.ObjectID, role models.Role) (models.DocumentRecord, error) {
	if !role.Valid() {
		return models.DocumentRecord{}, validationf("unknown role %q", role)
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := s.loadOwned(ctx, slug, actorID)
		if err != nil {
			return models.DocumentRecord{}, err
		}

		idx := -1
		for i, j := range rec.Joins {
			if j.UserID == targetID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return models.DocumentRecord{}, validationf("user has not joined this document")
		}
		j := &rec.Joins[idx]
		if j.Role == role {
			return rec, nil
		}
		if j.GrantID == "" {
			return models.DocumentRecord{}, validationf("membership has no grant to update")
		}
		if err := s.provider.UpdateRole(ctx, rec.FileID, j.GrantID, role); err != nil {
			return models.DocumentRecord{}, err
		}
		j.Role = role

		stored, ok, err := s.replace(ctx, rec)
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if !ok {
			continue
		}
		s.auditAccess(ctx, audit.EventUserRoleUpdated, actorID, targetID, slug, true, "", map[string]string{"role": string(role)})
		return stored, nil
	}
	return models.DocumentRecord{}, errCASExhausted("update user role", slug)
}

func (s *Service) auditAccess(ctx context.Context, eventType string, actorID, subjectID primitive.ObjectID, slug string, success bool, reason string, details map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Access(ctx, eventType, actorID, subjectID, slug, success, reason, details)
}

func (s *Service) auditDocument(ctx context.Context, eventType string, actorID primitive.ObjectID, slug, fileID string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Document(ctx, eventType, actorID, slug, fileID, success, reason)
}
