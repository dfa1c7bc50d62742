package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ioezgamer/studio/internal/auth"
	"github.com/ioezgamer/studio/internal/config"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/ioezgamer/studio/internal/util"
)

// fakeStore is an in-memory DataStore that also serves sessions and users.
// The Fn fields override individual calls.
type fakeStore struct {
	mu         sync.Mutex
	roles      map[string]string
	users      map[string]store.User
	records    map[string]store.MaintenanceRecord
	items      []store.ReferenceItem
	refresh    map[string]string
	revoked    map[string]bool
	writes     int
	roleLookup int

	pingFn         func(context.Context) error
	getRoleFn      func(context.Context, string) (string, error)
	insertRecordFn func(context.Context, store.MaintenanceRecord) error
	listRecordsFn  func(context.Context) ([]store.MaintenanceRecord, error)
	listItemsFn    func(context.Context, string) ([]store.ReferenceItem, error)
	insertItemsFn  func(context.Context, []store.ReferenceItem) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:   map[string]string{},
		users:   map[string]store.User{},
		records: map[string]store.MaintenanceRecord{},
		refresh: map[string]string{},
		revoked: map[string]bool{},
	}
}

// addUser registers a user; role "" leaves the role row missing.
func (f *fakeStore) addUser(id, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = store.User{ID: id, Email: id + "@example.com", DisplayName: "User " + id}
	if role != "" {
		f.roles[id] = role
	}
}

func (f *fakeStore) setRole(id, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[id] = role
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) GetRole(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	f.roleLookup++
	f.mu.Unlock()
	if f.getRoleFn != nil {
		return f.getRoleFn(ctx, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, user store.User, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	f.roles[user.ID] = role
	return nil
}

func (f *fakeStore) InsertRecord(ctx context.Context, record store.MaintenanceRecord) error {
	if f.insertRecordFn != nil {
		return f.insertRecordFn(ctx, record)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.records[record.ID] = record
	return nil
}

func (f *fakeStore) UpdateRecord(_ context.Context, id string, patch store.RecordPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return store.ErrNotFound
	}
	f.writes++
	if patch.Equipment != nil {
		record.Equipment = *patch.Equipment
	}
	if patch.AssetNumber != nil {
		record.AssetNumber = *patch.AssetNumber
	}
	if patch.User != nil {
		record.User = *patch.User
	}
	if patch.Technician != nil {
		record.Technician = *patch.Technician
	}
	if patch.Date != nil {
		record.Date = *patch.Date
	}
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.Notes != nil {
		record.Notes = *patch.Notes
	}
	if patch.Tasks != nil {
		record.Tasks = *patch.Tasks
	}
	now := time.Now().UTC()
	record.UpdatedAt = &now
	f.records[id] = record
	return nil
}

func (f *fakeStore) DeleteRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return store.ErrNotFound
	}
	f.writes++
	delete(f.records, id)
	return nil
}

func (f *fakeStore) GetRecord(_ context.Context, id string) (store.MaintenanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return store.MaintenanceRecord{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListRecords(ctx context.Context) ([]store.MaintenanceRecord, error) {
	if f.listRecordsFn != nil {
		return f.listRecordsFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.MaintenanceRecord, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) SearchRecords(ctx context.Context, query, status string, _ int) ([]store.MaintenanceRecord, error) {
	records, err := f.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := []store.MaintenanceRecord{}
	for _, record := range records {
		if status != "" && string(record.Status) != status {
			continue
		}
		if strings.Contains(strings.ToLower(record.Equipment), strings.ToLower(query)) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertReferenceItems(ctx context.Context, items []store.ReferenceItem) error {
	if f.insertItemsFn != nil {
		if err := f.insertItemsFn(ctx, items); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes += len(items)
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeStore) ListReferenceItems(ctx context.Context, list string) ([]store.ReferenceItem, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, list)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.ReferenceItem{}
	for _, item := range f.items {
		if item.List == list {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[tokenHash] = userID
	return nil
}

func (f *fakeStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refresh[tokenHash]
	if !ok {
		return "", store.ErrNotFound
	}
	return userID, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, tokenHash)
	return nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

const testSecret = "test-secret"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    testSecret,
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
		AITimeout:    time.Second,
		DraftTTL:     time.Hour,
		AIRatePerSec: 100,
		AIRateBurst:  100,
	}
}

func newTestService(t *testing.T, fs *fakeStore) *Service {
	t.Helper()
	return newTestServiceWithDeps(t, Deps{Store: fs})
}

func newTestServiceWithDeps(t *testing.T, deps Deps) *Service {
	t.Helper()
	svc, err := New(testConfig(), deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), userID, "User "+userID, util.NewID("jti"), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

func printerInput() RecordInput {
	return RecordInput{
		Equipment:   "Printer",
		AssetNumber: "A-001",
		User:        "Jane",
		Technician:  "Bob",
		Date:        "2024-01-10",
		Status:      "Completed",
		Tasks:       []store.Task{{Description: "Cleaned rollers"}},
	}
}

// seedRecord inserts a record directly, bypassing the role gate.
func (f *fakeStore) seedRecord(id string, createdAt time.Time) store.MaintenanceRecord {
	record := store.MaintenanceRecord{
		ID:          id,
		Equipment:   "Laptop",
		AssetNumber: "L-" + id,
		User:        "Ana",
		Technician:  "Bob",
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:      store.StatusPending,
		Tasks:       []store.Task{{Description: "Updated BIOS"}},
		CreatedAt:   createdAt,
	}
	f.mu.Lock()
	f.records[id] = record
	f.mu.Unlock()
	return record
}
