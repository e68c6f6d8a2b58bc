package roles_test

import (
	"testing"

	"github.com/one-zero-eight/guard/internal/app/system/roles"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolve_AuthorAlwaysWriter(t *testing.T) {
	author := primitive.NewObjectID()

	for _, def := range []models.Role{models.RoleReader, models.RoleWriter} {
		for _, requested := range []models.Role{"", models.RoleReader, models.RoleWriter} {
			rec := &models.DocumentRecord{AuthorID: author, DefaultRole: def}
			if got := roles.Resolve(rec, author, requested); got != models.RoleWriter {
				t.Errorf("default=%s requested=%s: author got %s, want writer", def, requested, got)
			}
		}
	}
}

func TestResolve_NonAuthorGetsDefault(t *testing.T) {
	rec := &models.DocumentRecord{
		AuthorID:    primitive.NewObjectID(),
		DefaultRole: models.RoleReader,
	}
	other := primitive.NewObjectID()

	// The requested role is ignored for non-authors.
	if got := roles.Resolve(rec, other, models.RoleWriter); got != models.RoleReader {
		t.Errorf("got %s, want reader", got)
	}

	rec.DefaultRole = models.RoleWriter
	if got := roles.Resolve(rec, other, models.RoleReader); got != models.RoleWriter {
		t.Errorf("got %s, want writer", got)
	}
}
