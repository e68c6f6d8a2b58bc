// internal/app/store/documents/documentstore.go
package documentstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/one-zero-eight/guard/internal/app/system/slug"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("document record not found")
	ErrDuplicateFile = errors.New("this file is already registered")
	ErrConflict      = errors.New("document record was modified concurrently")
)

// slugAttempts bounds the retry loop on a slug unique-index collision.
// With a 62^10 keyspace a single collision is already extraordinary.
const slugAttempts = 5

// Store owns CRUD for document records. Records are read and written whole;
// Replace enforces a compare-and-swap on the record version so that two
// concurrent read-modify-write cycles cannot silently overwrite each other.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("documents")}
}

// Create inserts a new record, assigning ID, slug, version and timestamps.
// A slug collision is retried with a fresh slug; a duplicate file id returns
// ErrDuplicateFile.
func (s *Store) Create(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.SchemaVersion = models.DocumentSchemaVersion
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Joins == nil {
		rec.Joins = []models.Join{}
	}
	if rec.Bans == nil {
		rec.Bans = []models.Ban{}
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		if rec.Slug == "" {
			rec.Slug = slug.New()
		}
		_, err := s.c.InsertOne(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.DocumentRecord{}, err
		}
		// The unique index on file_id and the one on slug both surface as
		// a duplicate-key error; disambiguate by probing for the file.
		if existing, lookupErr := s.GetByFileID(ctx, rec.FileID); lookupErr == nil && existing.ID != rec.ID {
			return models.DocumentRecord{}, ErrDuplicateFile
		}
		rec.Slug = ""
	}
	return models.DocumentRecord{}, errors.New("could not allocate a unique slug")
}

// GetBySlug retrieves a record by its public handle.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.DocumentRecord, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

// GetByFileID retrieves a record by its external file id.
func (s *Store) GetByFileID(ctx context.Context, fileID string) (models.DocumentRecord, error) {
	return s.findOne(ctx, bson.M{"file_id": fileID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.DocumentRecord, error) {
	var rec models.DocumentRecord
	err := s.c.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.DocumentRecord{}, ErrNotFound
		}
		return models.DocumentRecord{}, err
	}
	return rec, nil
}

// ListByAuthor returns all records owned by the given identity, oldest
// first.
func (s *Store) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.DocumentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"author_id": authorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.DocumentRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Replace writes the whole record back, guarded by a compare-and-swap on
// Version. Returns the stored record with the bumped version on success and
// ErrConflict if another writer got there first (callers re-read and retry).
func (s *Store) Replace(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	prev := rec.Version
	rec.Version = prev + 1
	rec.UpdatedAt = time.Now().UTC()

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": rec.ID, "version": prev}, rec)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	if res.MatchedCount == 0 {
		// Either the record vanished or the version moved under us.
		if _, lookupErr := s.findOne(ctx, bson.M{"_id": rec.ID}); lookupErr == ErrNotFound {
			return models.DocumentRecord{}, ErrNotFound
		}
		return models.DocumentRecord{}, ErrConflict
	}
	return rec, nil
}

// Delete removes the record with the given slug. Only the system-of-record
// entry is touched; the provider-side file stays.
func (s *Store) Delete(ctx context.Context, slug string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// EnsureIndexes creates the unique slug/file_id indexes and the author
// lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_document_slug"),
		},
		{
			Keys:    bson.D{{Key: "file_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_document_file_id"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("idx_document_author"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Migrate upgrades records written by earlier shapes of the schema to the
// current one. Runs once at startup; the policy is additive-only, so older
// binaries can still read migrated records.
//
// v1 -> v2: records carried a single default role and no per-join role;
// backfill each join's role from the record default and stamp version
// fields.
func (s *Store) Migrate(ctx context.Context) (int64, error) {
	// Records from before versioning have no schema_version field at all.
	filter := bson.M{"$or": bson.A{
		bson.M{"schema_version": bson.M{"$exists": false}},
		bson.M{"schema_version": bson.M{"$lt": models.DocumentSchemaVersion}},
	}}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var migrated int64
	for cur.Next(ctx) {
		var rec models.DocumentRecord
		if err := cur.Decode(&rec); err != nil {
			return migrated, err
		}
		for i := range rec.Joins {
			if rec.Joins[i].Role == "" {
				rec.Joins[i].Role = rec.DefaultRole
			}
		}
		rec.SchemaVersion = models.DocumentSchemaVersion
		if rec.Version == 0 {
			rec.Version = 1
		}
		if _, err := s.c.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec); err != nil {
			return migrated, err
		}
		migrated++
	}
	return migrated, cur.Err()
}
