// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/auth"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*User)}
}

func (m *memoryRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	u.IsActive = true
	u.DateJoined = time.Now()
	u.UpdatedAt = u.DateJoined
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (m *memoryRepo) UpdateProfile(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return fmt.Errorf("update profile: %w", core.ErrNotFound)
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].PasswordHash = hash
	return nil
}

func (m *memoryRepo) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].TokenVersion++
	return nil
}

func (m *memoryRepo) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].EmailVerified = true
	return nil
}

func (m *memoryRepo) List(_ context.Context, params ListUsersParams) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params.Normalize()

	var matched []User
	for _, u := range m.rows {
		if params.Search == "" || strings.Contains(u.Email, params.Search) {
			matched = append(matched, *u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	start := min(params.Offset(), len(matched))
	end := min(start+params.PageSize, len(matched))
	return matched[start:end], len(matched), nil
}

func (m *memoryRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, string) {
	t.Helper()

	root := t.TempDir()
	store, err := storage.NewLocal(root, "http://localhost:8080/media")
	require.NoError(t, err)

	repo := newMemoryRepo()
	return NewService(repo, store, nil), repo, root
}

func TestCreateSanitizesNames(t *testing.T) {
	svc, _, _ := newTestService(t)

	info, err := svc.Create(context.Background(), auth.NewUser{
		Email:        " Ada@Example.com",
		PasswordHash: "hash",
		FirstName:    "<script>alert(1)</script>Ada",
		LastName:     "O'Brien & Sons",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", info.Email)
	assert.Equal(t, "Ada", info.FirstName)
	assert.Equal(t, "O'Brien & Sons", info.LastName)
	assert.True(t, info.IsActive)
	assert.Nil(t, info.ProfileImageURL)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, auth.NewUser{Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, auth.NewUser{Email: "ADA@example.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.Create(ctx, auth.NewUser{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	first := "Augusta"
	resp, err := svc.UpdateProfile(ctx, info.ID, ProfileUpdate{FirstName: &first})
	require.NoError(t, err)

	assert.Equal(t, "Augusta", resp.FirstName)
	assert.Equal(t, "Lovelace", resp.LastName)
}

func TestUpdateProfileReplacesImage(t *testing.T) {
	svc, repo, root := newTestService(t)
	ctx := context.Background()

	info, err := svc.Create(ctx, auth.NewUser{Email: "ada@example.com"})
	require.NoError(t, err)

	img := &storage.Image{Data: pngBytes, MimeType: "image/png", Ext: ".png"}

	resp, err := svc.UpdateProfile(ctx, info.ID, ProfileUpdate{ProfileImage: img})
	require.NoError(t, err)
	require.NotNil(t, resp.ProfileImage)
	assert.True(t, strings.HasPrefix(*resp.ProfileImage, "http://localhost:8080/media/profiles/"))

	stored, err := repo.GetByID(ctx, info.ID)
	require.NoError(t, err)
	firstKey := *stored.ProfileImage

	_, err = svc.UpdateProfile(ctx, info.ID, ProfileUpdate{ProfileImage: img})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(firstKey)))
	assert.True(t, os.IsNotExist(err))

	stored, err = repo.GetByID(ctx, info.ID)
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *stored.ProfileImage)
}

func TestUpdateProfileClearsImage(t *testing.T) {
	svc, repo, root := newTestService(t)
	ctx := context.Background()

	info, err := svc.Create(ctx, auth.NewUser{Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)

	img := &storage.Image{Data: pngBytes, MimeType: "image/png", Ext: ".png"}
	_, err = svc.UpdateProfile(ctx, info.ID, ProfileUpdate{ProfileImage: img})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, info.ID)
	require.NoError(t, err)
	key := *stored.ProfileImage

	resp, err := svc.UpdateProfile(ctx, info.ID, ProfileUpdate{ClearProfileImage: true})
	require.NoError(t, err)
	assert.Nil(t, resp.ProfileImage)
	assert.Equal(t, "Ada", resp.FirstName)

	stored, err = repo.GetByID(ctx, info.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ProfileImage)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	_, err = svc.UpdateProfile(ctx, info.ID, ProfileUpdate{ClearProfileImage: true})
	assert.NoError(t, err)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateProfile(context.Background(), "missing", ProfileUpdate{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLookupAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.Create(ctx, auth.NewUser{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.IncrementTokenVersion(ctx, info.ID))

	account, err := svc.LookupAccount(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.TokenVersion)
	assert.True(t, account.IsActive)
	assert.False(t, account.IsStaff)
}
