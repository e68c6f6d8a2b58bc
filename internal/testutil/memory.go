package testutil

import (
	"context"
	"fmt"
	"sync"

	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memory-backed doubles for the grants service's store and provider,
// shared by handler tests across feature packages.

// MemoryStore keeps document records in a map with the same
// version-checked replace semantics as the Mongo store.
type MemoryStore struct {
	mu     sync.Mutex
	bySlug map[string]models.DocumentRecord
	seq    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySlug: map[string]models.DocumentRecord{}}
}

func (m *MemoryStore) Create(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bySlug {
		if existing.FileID == rec.FileID {
			return models.DocumentRecord{}, documentstore.ErrDuplicateFile
		}
	}
	m.seq++
	rec.ID = primitive.NewObjectID()
	rec.Slug = fmt.Sprintf("testslug%02d", m.seq)
	rec.SchemaVersion = models.DocumentSchemaVersion
	rec.Version = 1
	if rec.Joins == nil {
		rec.Joins = []models.Join{}
	}
	if rec.Bans == nil {
		rec.Bans = []models.Ban{}
	}
	m.bySlug[rec.Slug] = rec
	return rec, nil
}

func (m *MemoryStore) GetBySlug(ctx context.Context, slug string) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.bySlug[slug]
	if !ok {
		return models.DocumentRecord{}, documentstore.ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) GetByFileID(ctx context.Context, fileID string) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.bySlug {
		if rec.FileID == fileID {
			return rec, nil
		}
	}
	return models.DocumentRecord{}, documentstore.ErrNotFound
}

func (m *MemoryStore) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentRecord
	for _, rec := range m.bySlug {
		if rec.AuthorID == authorID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Replace(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.bySlug[rec.Slug]
	if !ok {
		return models.DocumentRecord{}, documentstore.ErrNotFound
	}
	if current.Version != rec.Version {
		return models.DocumentRecord{}, documentstore.ErrConflict
	}
	rec.Version++
	m.bySlug[rec.Slug] = rec
	return rec, nil
}

func (m *MemoryStore) Delete(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySlug[slug]; !ok {
		return false, nil
	}
	delete(m.bySlug, slug)
	return true, nil
}

type memoryGrant struct {
	ID    string
	Email string
	Role  models.Role
}

type memoryFile struct {
	Title   string
	Kind    models.FileKind
	Pending bool
	Public  int
	Grants  []memoryGrant
}

// MemoryProvider is an in-memory permission provider.
type MemoryProvider struct {
	mu    sync.Mutex
	files map[string]*memoryFile
	seq   int
	email string

	GrantCalls  int
	RevokeCalls int
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		files: map[string]*memoryFile{},
		email: "svc@guard-test.iam.gserviceaccount.com",
	}
}

// AddFile seeds a file the service account can reach.
func (p *MemoryProvider) AddFile(fileID, title string, kind models.FileKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[fileID] = &memoryFile{Title: title, Kind: kind}
}

// MarkPendingTransfer flags a file as having a pending ownership transfer.
func (p *MemoryProvider) MarkPendingTransfer(fileID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.files[fileID]; ok {
		f.Pending = true
	}
}

func (p *MemoryProvider) Grant(ctx context.Context, fileID string, role models.Role, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GrantCalls++
	f, ok := p.files[fileID]
	if !ok {
		return "", fmt.Errorf("no such file %s", fileID)
	}
	p.seq++
	id := fmt.Sprintf("perm%02d", p.seq)
	f.Grants = append(f.Grants, memoryGrant{ID: id, Email: email, Role: role})
	return id, nil
}

func (p *MemoryProvider) Revoke(ctx context.Context, fileID, grantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RevokeCalls++
	f, ok := p.files[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	kept := f.Grants[:0]
	for _, g := range f.Grants {
		if g.ID != grantID {
			kept = append(kept, g)
		}
	}
	f.Grants = kept
	return nil
}

func (p *MemoryProvider) UpdateRole(ctx context.Context, fileID, grantID string, role models.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	for i := range f.Grants {
		if f.Grants[i].ID == grantID {
			f.Grants[i].Role = role
			return nil
		}
	}
	return fmt.Errorf("no such grant %s", grantID)
}

func (p *MemoryProvider) ListUserGrants(ctx context.Context, fileID string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}
	out := map[string]string{}
	for _, g := range f.Grants {
		out[g.Email] = g.ID
	}
	return out, nil
}

func (p *MemoryProvider) CountUserGrants(ctx context.Context, fileID string) (int, error) {
	m, err := p.ListUserGrants(ctx, fileID)
	if err != nil {
		return 0, err
	}
	return len(m), nil
}

func (p *MemoryProvider) AcceptPendingOwnership(ctx context.Context, fileID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return false, fmt.Errorf("no such file %s", fileID)
	}
	if !f.Pending {
		return false, nil
	}
	f.Pending = false
	return true, nil
}

func (p *MemoryProvider) StripPublicSharingAndLock(ctx context.Context, fileID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return 0, fmt.Errorf("no such file %s", fileID)
	}
	removed := f.Public
	f.Public = 0
	return removed, nil
}

func (p *MemoryProvider) HasServiceAccess(ctx context.Context, fileID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.files[fileID]
	return ok, nil
}

func (p *MemoryProvider) Metadata(ctx context.Context, fileID string) (string, models.FileKind, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return "", "", false, fmt.Errorf("no such file %s", fileID)
	}
	supported := f.Kind == models.KindSpreadsheet || f.Kind == models.KindDocument
	return f.Title, f.Kind, supported, nil
}

func (p *MemoryProvider) CreateFile(ctx context.Context, kind models.FileKind, title string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("file%02d", p.seq)
	p.files[id] = &memoryFile{Title: title, Kind: kind}
	return id, nil
}

func (p *MemoryProvider) CopyFile(ctx context.Context, srcFileID, title string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	src, ok := p.files[srcFileID]
	if !ok {
		return "", fmt.Errorf("no such file %s", srcFileID)
	}
	p.seq++
	id := fmt.Sprintf("file%02d", p.seq)
	p.files[id] = &memoryFile{Title: title, Kind: src.Kind}
	return id, nil
}

func (p *MemoryProvider) DeleteFile(ctx context.Context, fileID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[fileID]; !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	delete(p.files, fileID)
	return nil
}

func (p *MemoryProvider) UpdateTitle(ctx context.Context, fileID string, kind models.FileKind, title string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	f.Title = title
	return nil
}

func (p *MemoryProvider) WriteGreetingSheet(ctx context.Context, spreadsheetID, joinLink string, role models.Role) (string, error) {
	return joinLink, nil
}

func (p *MemoryProvider) ServiceEmail() string { return p.email }
