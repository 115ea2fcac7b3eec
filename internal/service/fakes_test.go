package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/repository"
)

// memStore backs the in-memory repositories used across service tests.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	items map[string]*models.Item
	scans []models.Scan
	audit []*models.AuditLog
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users: map[string]*models.User{},
		items: map[string]*models.Item{},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(id string, role models.UserRole) *access.Caller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, Email: id + "@example.com", Name: strings.ToUpper(id), Role: role}
	return &access.Caller{ID: id, Role: role}
}

type memUsers struct{ *memStore }

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	user.CreatedAt = r.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id, hash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
		u.UpdatedAt = updatedAt
	}
	return nil
}

func (r memUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r memUsers) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r memUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, log)
	return nil
}

type memItems struct{ *memStore }

func (r memItems) Create(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.QRCode == item.QRCode {
			return repository.ErrDuplicateQRCode
		}
	}
	if item.CustomFields == nil {
		item.CustomFields = models.CustomFields{}
	}
	item.CreatedAt = r.tick()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r memItems) FindByID(_ context.Context, id string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memItems) FindByQRCode(_ context.Context, code string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.QRCode == code {
			cp := *item
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memItems) List(_ context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Item{}
	for _, item := range r.items {
		if filter.OwnerID != "" && item.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && item.Category != *filter.Category {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (r memItems) Update(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[item.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cp := *item
	cp.OwnerID = existing.OwnerID
	cp.QRCode = existing.QRCode
	cp.UpdatedAt = r.tick()
	r.items[item.ID] = &cp
	return nil
}

func (r memItems) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r memItems) ListIDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []string{}
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

func (r memItems) ListImagesByOwner(_ context.Context, ownerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := []string{}
	for _, item := range r.items {
		if item.OwnerID == ownerID && item.Image != nil {
			refs = append(refs, *item.Image)
		}
	}
	return refs, nil
}

func (r memItems) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, item := range r.items {
		if item.OwnerID == ownerID {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

type memScans struct{ *memStore }

func (r memScans) Create(_ context.Context, scan *models.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	scan.ScannedAt = r.tick()
	r.scans = append(r.scans, *scan)
	return nil
}

func (r memScans) ListByItem(_ context.Context, itemID string) ([]models.Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Scan{}
	for i := len(r.scans) - 1; i >= 0; i-- {
		if r.scans[i].ItemID == itemID {
			out = append(out, r.scans[i])
		}
	}
	return out, nil
}

func (r memScans) DeleteByItemIDs(_ context.Context, itemIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := r.scans[:0]
	var n int64
	for _, s := range r.scans {
		if drop[s.ItemID] {
			n++
			continue
		}
		kept = append(kept, s)
	}
	r.scans = kept
	return n, nil
}

func (r memScans) ListForExport(_ context.Context, _ models.ScanExportFilter) ([]models.ScanExportRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := []models.ScanExportRow{}
	for i := len(r.scans) - 1; i >= 0; i-- {
		row := models.ScanExportRow{Scan: r.scans[i]}
		if item, ok := r.items[row.ItemID]; ok {
			row.QRCode = item.QRCode
			row.ItemName = item.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *memStore) scanCount(itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.scans {
		if s.ItemID == itemID {
			n++
		}
	}
	return n
}

// storageSpy fails the test on any lookup.
type storageSpy struct {
	t *testing.T
}

func (s storageSpy) FindByID(context.Context, string) (*models.Item, error) {
	s.t.Fatalf("storage lookup must not happen")
	return nil, nil
}

func (s storageSpy) FindByQRCode(context.Context, string) (*models.Item, error) {
	s.t.Fatalf("storage lookup must not happen")
	return nil, nil
}

// sequenceGenerator replays fixed identifiers, repeating the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	if idx >= len(g.codes) {
		idx = len(g.codes) - 1
	}
	g.calls++
	return g.codes[idx]
}

type recordingNotifier struct {
	mu    sync.Mutex
	scans []models.Scan
}

func (n *recordingNotifier) NotifyScan(_ *models.Item, scan *models.Scan) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scans = append(n.scans, *scan)
}

type testServices struct {
	store    *memStore
	items    *ItemService
	scans    *ScanService
	users    *UserService
	notifier *recordingNotifier
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newMemStore()
	validate := NewValidator()
	notifier := &recordingNotifier{}
	return &testServices{
		store:    store,
		items:    NewItemService(memItems{store}, memScans{store}, memUsers{store}, nil, nil, nil, nil, validate, nil, ItemConfig{ScanBaseURL: "https://lf.example/"}),
		scans:    NewScanService(memScans{store}, memItems{store}, notifier, nil, nil, nil, validate, nil),
		users:    NewUserService(memUsers{store}, memItems{store}, memScans{store}, nil, nil, validate, nil),
		notifier: notifier,
	}
}

func strPtr(v string) *string { return &v }
