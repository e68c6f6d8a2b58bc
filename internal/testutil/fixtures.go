package testutil

import (
	"time"

	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentRecord builds a registration ready for store tests. Callers tweak
// fields on the result; the store assigns ID, slug and version on Create.
func DocumentRecord(authorID primitive.ObjectID, fileID string) models.DocumentRecord {
	return models.DocumentRecord{
		AuthorID:    authorID,
		DefaultRole: models.RoleReader,
		FileID:      fileID,
		FileKind:    models.KindSpreadsheet,
		Title:       "Test Document",
	}
}

// JoinFor builds a membership for the given user.
func JoinFor(userID primitive.ObjectID, email, grantID string) models.Join {
	return models.Join{
		UserID:   userID,
		Email:    email,
		OrgEmail: userID.Hex() + "@org.example",
		Role:     models.RoleReader,
		JoinedAt: time.Now().UTC().Truncate(time.Millisecond),
		GrantID:  grantID,
	}
}
