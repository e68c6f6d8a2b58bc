package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the access level granted on a protected document.
type Role string

const (
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	return r == RoleWriter || r == RoleReader
}

// FileKind identifies what kind of file the external provider hosts.
type FileKind string

const (
	KindSpreadsheet FileKind = "spreadsheet"
	KindDocument    FileKind = "document"
)

// DocumentSchemaVersion is the current shape of DocumentRecord. Records
// written by earlier iterations are upgraded once at startup; evolution is
// additive-only.
const DocumentSchemaVersion = 2

// Join is an active grant of access to one provider contact. GrantID links
// the entry to the provider-side permission that implements it.
type Join struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email    string             `bson:"email" json:"email"`      // provider account (e.g. gmail)
	OrgEmail string             `bson:"org_email" json:"org_email"` // verified organizational address
	Role     Role               `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
	GrantID  string             `bson:"grant_id,omitempty" json:"grant_id,omitempty"`
}

// Ban prevents an identity from joining. Bans are keyed by UserID, not by
// provider contact: an identity cannot dodge a ban by joining under a
// different address.
type Ban struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	OrgEmail string             `bson:"org_email,omitempty" json:"org_email,omitempty"`
	BannedAt time.Time          `bson:"banned_at" json:"banned_at"`
}

// DocumentRecord is the system-of-record entry for one protected external
// document. Mutations always re-read the record, modify it in memory and
// write the whole record back; Version guards that write (compare-and-swap).
type DocumentRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchemaVersion int                `bson:"schema_version" json:"-"`
	Version       int64              `bson:"version" json:"-"`

	// AuthorID exclusively controls ban/unban/role/delete operations.
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`
	DefaultRole Role               `bson:"default_role" json:"default_role"`

	// External provider linkage.
	FileID   string   `bson:"file_id" json:"file_id"`
	FileKind FileKind `bson:"file_kind" json:"file_kind"`

	// Slug is the public, unguessable join handle. Unique across records.
	Slug  string `bson:"slug" json:"slug"`
	Title string `bson:"title" json:"title"`

	// Owner-side provider state.
	OwnerEmail   string `bson:"owner_email,omitempty" json:"owner_email,omitempty"`
	OwnerGrantID string `bson:"owner_grant_id,omitempty" json:"owner_grant_id,omitempty"`

	ExpireAt *time.Time `bson:"expire_at,omitempty" json:"expire_at,omitempty"`

	Joins []Join `bson:"joins" json:"joins"`
	Bans  []Ban  `bson:"bans" json:"bans"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// JoinByEmail returns the join entry for the given provider contact, if any.
func (d *DocumentRecord) JoinByEmail(email string) (Join, bool) {
	for _, j := range d.Joins {
		if strings.EqualFold(j.Email, email) {
			return j, true
		}
	}
	return Join{}, false
}

// IsBanned reports whether the identity appears on the ban list.
func (d *DocumentRecord) IsBanned(userID primitive.ObjectID) bool {
	for _, b := range d.Bans {
		if b.UserID == userID {
			return true
		}
	}
	return false
}

// IsAuthor reports whether the identity owns this record.
func (d *DocumentRecord) IsAuthor(userID primitive.ObjectID) bool {
	return d.AuthorID == userID
}
