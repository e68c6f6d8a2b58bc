// Package roles decides the effective access role for a user on a protected
// document.
package roles

import (
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resolve returns the role the user should hold on the record's file.
//
// The author always gets writer access, whatever the configured default or
// the requested role says: the owner of a record must never be locked out of
// their own document. Everyone else gets the record's default role; the
// requested role is ignored for non-authors (callers don't choose their own
// access level).
func Resolve(rec *models.DocumentRecord, userID primitive.ObjectID, requested models.Role) models.Role {
	if rec.IsAuthor(userID) {
		return models.RoleWriter
	}
	return rec.DefaultRole
}
