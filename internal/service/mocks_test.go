package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/pkg/ulid"
	"github.com/minka-latam/minka-sub002/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// --- Mock Repositories ---

type mockProfileRepo struct {
	profiles map[string]*models.Profile
	err      error
	calls    int
}

func newMockProfileRepo(profiles ...*models.Profile) *mockProfileRepo {
	m := &mockProfileRepo{profiles: make(map[string]*models.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProfileRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProfileRepo) List(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*models.Profile
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.profiles[ids[i]])
	}
	return out, nil
}

func (m *mockProfileRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(m.profiles)), m.err
}

func (m *mockProfileRepo) Update(ctx context.Context, p *models.Profile) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.profiles[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

type mockNotificationRepo struct {
	notifications map[string]*models.Notification
	err           error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*models.Notification)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	if n.ID == "" {
		n.ID = ulid.New()
	}
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	if m.err != nil {
		return m.err
	}
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var changed int64
	now := time.Now()
	for _, n := range m.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

// --- Mock Identity Provider ---

type mockProvider struct {
	sessions map[string]*models.Session
	err      error
}

func (m *mockProvider) GetSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[cred.Token]
	if !ok {
		return nil, identity.ErrNoSession
	}
	return s, nil
}

func (m *mockProvider) SignOut(ctx context.Context, cred identity.Credential) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[cred.Token]; !ok {
		return identity.ErrNoSession
	}
	delete(m.sessions, cred.Token)
	return nil
}

// MockIdentityProvider is a testify mock for call-level expectations.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) GetSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, cred identity.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}
