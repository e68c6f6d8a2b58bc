package gdrive

import (
	"context"
	"fmt"

	"github.com/one-zero-eight/guard/internal/domain/models"
	"google.golang.org/api/drive/v3"
)

// fileCapability describes how one file kind is created and retitled. The
// reconciliation core stays kind-agnostic: adding a new kind means adding a
// row here, not branching elsewhere.
type fileCapability struct {
	mimeType    string
	hasGreeting bool // spreadsheets get the instructions tab
}

var capabilities = map[models.FileKind]fileCapability{
	models.KindSpreadsheet: {
		mimeType:    "application/vnd.google-apps.spreadsheet",
		hasGreeting: true,
	},
	models.KindDocument: {
		mimeType: "application/vnd.google-apps.document",
	},
}

var kindByMime = func() map[string]models.FileKind {
	m := make(map[string]models.FileKind, len(capabilities))
	for kind, capability := range capabilities {
		m[capability.mimeType] = kind
	}
	return m
}()

// SupportedKind reports whether the system knows how to manage files of this
// kind.
func SupportedKind(kind models.FileKind) bool {
	_, ok := capabilities[kind]
	return ok
}

// SupportsGreeting reports whether files of this kind carry the instructions
// tab.
func SupportsGreeting(kind models.FileKind) bool {
	return capabilities[kind].hasGreeting
}

// Metadata fetches the file's title and kind. Files whose MIME type has no
// capability row are reported with ok=false and must be rejected by the
// caller.
func (c *Client) Metadata(ctx context.Context, fileID string) (title string, kind models.FileKind, ok bool, err error) {
	f, err := c.drive.Files.Get(fileID).Fields("name", "mimeType").Context(ctx).Do()
	if err != nil {
		return "", "", false, providerErr("get metadata", err)
	}
	kind, ok = kindByMime[f.MimeType]
	return f.Name, kind, ok, nil
}

// CreateFile provisions a fresh file of the given kind and returns its id.
// The file lands in the configured Drive folder when one is set.
func (c *Client) CreateFile(ctx context.Context, kind models.FileKind, title string) (string, error) {
	capability, ok := capabilities[kind]
	if !ok {
		return "", fmt.Errorf("unsupported file kind %q", kind)
	}
	f := &drive.File{
		Name:     title,
		MimeType: capability.mimeType,
	}
	if c.folder != "" {
		f.Parents = []string{c.folder}
	}
	created, err := c.drive.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", providerErr("create file", err)
	}
	return created.Id, nil
}

// CopyFile duplicates an existing file under a new title and returns the
// copy's id.
func (c *Client) CopyFile(ctx context.Context, srcFileID, title string) (string, error) {
	f := &drive.File{Name: title}
	if c.folder != "" {
		f.Parents = []string{c.folder}
	}
	copied, err := c.drive.Files.Copy(srcFileID, f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", providerErr("copy file", err)
	}
	return copied.Id, nil
}

// DeleteFile removes the provider-side file. Only used as compensation when
// record creation fails right after provisioning.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.drive.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return providerErr("delete file", err)
	}
	return nil
}

// UpdateTitle renames the file. All supported kinds share Drive's rename
// call today; kinds that ever need a different path get it through their
// capability row.
func (c *Client) UpdateTitle(ctx context.Context, fileID string, kind models.FileKind, title string) error {
	if !SupportedKind(kind) {
		return fmt.Errorf("unsupported file kind %q", kind)
	}
	_, err := c.drive.Files.Update(fileID, &drive.File{Name: title}).Context(ctx).Do()
	if err != nil {
		return providerErr("update title", err)
	}
	return nil
}
