// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryDocument = "document"
	CategoryAccess   = "access"
)

// Document event types
const (
	EventDocumentCreated  = "document_created"
	EventDocumentCopied   = "document_copied"
	EventDocumentSetup    = "document_setup"
	EventDocumentAbsorbed = "document_absorbed"
	EventDocumentDeleted  = "document_deleted"
	EventTitleUpdated     = "title_updated"
)

// Access event types
const (
	EventUserJoined         = "user_joined"
	EventJoinRejected       = "join_rejected"
	EventUserBanned         = "user_banned"
	EventUserUnbanned       = "user_unbanned"
	EventDefaultRoleUpdated = "default_role_updated"
	EventUserRoleUpdated    = "user_role_updated"
	EventGrantsCleaned      = "grants_cleaned"
)

// Event is one audited operation on a protected document.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// ActorID is the identity performing the operation; SubjectID the
	// identity it targets (banned/unbanned user), when there is one.
	ActorID   *primitive.ObjectID `bson:"actor_id,omitempty"`
	SubjectID *primitive.ObjectID `bson:"subject_id,omitempty"`

	// Document context.
	Slug   string `bson:"slug,omitempty"`
	FileID string `bson:"file_id,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// Store persists audit events.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates indexes for the query paths we actually use.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "slug", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "actor_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// RecentForSlug returns the latest events for one document, newest first.
func (s *Store) RecentForSlug(ctx context.Context, slug string, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, bson.M{"slug": slug}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
