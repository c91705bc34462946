package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
)

func newViewCache(t *testing.T) (*miniredis.Miniredis, *cache.ViewCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewViewCache(client, "view:", time.Minute, nil, nil)
}

func strPtr(s string) *string { return &s }

type fakeMitraRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.MitraProfile
	updateErr error
}

func newFakeMitraRepo(records ...domain.MitraProfile) *fakeMitraRepo {
	f := &fakeMitraRepo{records: map[string]*domain.MitraProfile{}}
	for i := range records {
		r := records[i]
		f.records[r.ID] = &r
	}
	return f
}

func (f *fakeMitraRepo) List(_ context.Context, filter repository.MitraFilter) ([]domain.MitraProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MitraProfile
	for _, r := range f.records {
		if filter.Status != nil && r.VerificationStatus != *filter.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMitraRepo) GetByID(_ context.Context, id string) (*domain.MitraProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeMitraRepo) GetByUserID(_ context.Context, userID string) (*domain.MitraProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMitraRepo) UpdateVerification(_ context.Context, id string, status domain.VerificationStatus, verifiedAt *time.Time, from []domain.VerificationStatus) (*domain.MitraProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	r, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	allowed := false
	for _, s := range from {
		allowed = allowed || s == r.VerificationStatus
	}
	if !allowed {
		return nil, pgx.ErrNoRows
	}
	r.VerificationStatus = status
	if verifiedAt != nil {
		r.VerifiedAt = verifiedAt
	}
	cp := *r
	return &cp, nil
}

func (f *fakeMitraRepo) count(match func(*domain.MitraProfile) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if match(r) {
			n++
		}
	}
	return n
}

func (f *fakeMitraRepo) CountPending(context.Context) (int, error) {
	return f.count(func(r *domain.MitraProfile) bool { return r.VerificationStatus == domain.VerificationPending }), nil
}

func (f *fakeMitraRepo) CountActive(context.Context) (int, error) {
	return f.count(func(r *domain.MitraProfile) bool { return r.CanOperate() }), nil
}

type fakeProfileRepo struct {
	mu         sync.Mutex
	profiles   []domain.Profile
	batchCalls int
	err        error
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].UserID == userID {
			cp := f.profiles[i]
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) ListByUserIDs(_ context.Context, userIDs []string) ([]domain.Profile, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []domain.Profile
	for _, p := range f.profiles {
		if want[p.UserID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) List(context.Context) ([]domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Profile{}, f.profiles...), nil
}

type fakeRoleRepo struct {
	mu    sync.Mutex
	roles map[string]domain.Role
}

func (f *fakeRoleRepo) GetByUserID(_ context.Context, userID string) (*domain.UserRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.UserRole{UserID: userID, Role: role}, nil
}

func (f *fakeRoleRepo) Upsert(_ context.Context, userID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = role
	return nil
}

func (f *fakeRoleRepo) List(context.Context) ([]domain.UserRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UserRole
	for id, role := range f.roles {
		out = append(out, domain.UserRole{UserID: id, Role: role})
	}
	return out, nil
}

func (f *fakeRoleRepo) CountByRole(context.Context) (map[domain.Role]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[domain.Role]int{}
	for _, role := range f.roles {
		counts[role]++
	}
	return counts, nil
}

type fakeServiceRepo struct {
	services []domain.Service
}

func (f *fakeServiceRepo) List(context.Context) ([]domain.Service, error) { return f.services, nil }

func (f *fakeServiceRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Service, error) {
	var out []domain.Service
	for _, s := range f.services {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeServiceRepo) GetByID(_ context.Context, id string) (*domain.Service, error) {
	for _, s := range f.services {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeServiceRepo) Create(_ context.Context, s *domain.Service) error {
	s.ID = "s-new"
	f.services = append(f.services, *s)
	return nil
}

func (f *fakeServiceRepo) Update(_ context.Context, s *domain.Service) error {
	for i := range f.services {
		if f.services[i].ID == s.ID {
			f.services[i] = *s
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeServiceRepo) Delete(_ context.Context, id string) error {
	for i := range f.services {
		if f.services[i].ID == id {
			f.services = append(f.services[:i], f.services[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeServiceRepo) Count(context.Context) (int, error) { return len(f.services), nil }

type fakeOrderRepo struct {
	orders []domain.Order
}

func (f *fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				match = match || s == o.Status
			}
			if !match {
				continue
			}
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

type fakeAccountRepo struct {
	created []*domain.Account
	err     error
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	if f.err != nil {
		return f.err
	}
	account.User.ID = "u-new"
	account.Profile.UserID = "u-new"
	if account.Mitra != nil {
		account.Mitra.ID = "m-new"
		account.Mitra.UserID = "u-new"
	}
	f.created = append(f.created, account)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]domain.Session{}}
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessionRepo) Save(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *s
	stored.AccessToken = ""
	f.sessions[s.ID] = stored
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) Extend(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.ExpiresAt = expiresAt
	f.sessions[id] = s
	return nil
}

type fakeDocuments struct {
	saved   map[string]string
	deleted []string
	saveErr error
}

func (f *fakeDocuments) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	key := folder + "/" + filename
	f.saved[key] = string(data)
	return key, nil
}

func (f *fakeDocuments) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.published))
	for i, e := range d.published {
		out[i] = e.Type
	}
	return out
}

var errBackend = errors.New("backend unavailable")
