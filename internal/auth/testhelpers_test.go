// AngelaMos | 2026
// testhelpers_test.go

package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/config"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/otp"
)

type memoryTokens struct {
	mu   sync.Mutex
	rows map[string]*RefreshToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{rows: make(map[string]*RefreshToken)}
}

func (m *memoryTokens) Create(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	cp.CreatedAt = time.Now()
	m.rows[t.ID] = &cp
	return nil
}

func (m *memoryTokens) FindByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find: %w", core.ErrNotFound)
}

func (m *memoryTokens) MarkAsUsed(_ context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.IsUsed {
		return fmt.Errorf("mark: %w", core.ErrNotFound)
	}
	now := time.Now()
	t.IsUsed = true
	t.UsedAt = &now
	t.ReplacedByID = &replacedByID
	return nil
}

func (m *memoryTokens) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.RevokedAt != nil {
		return fmt.Errorf("revoke: %w", core.ErrNotFound)
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (m *memoryTokens) RevokeByFamilyID(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.rows {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memoryTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.rows {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memoryTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.rows {
		if t.ExpiresAt.Before(before) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) revokedCount(familyID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		if t.FamilyID == familyID && t.RevokedAt != nil {
			n++
		}
	}
	return n
}

type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*UserInfo
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*UserInfo)}
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get by email: %w", core.ErrNotFound)
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("get by id: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == nu.Email {
			return nil, fmt.Errorf("create: %w", core.ErrDuplicateKey)
		}
	}
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        nu.Email,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		PasswordHash: nu.PasswordHash,
		IsActive:     true,
		DateJoined:   time.Now(),
	}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].TokenVersion++
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].PasswordHash = hash
	return nil
}

func (m *memoryUsers) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].EmailVerified = true
	return nil
}

func (m *memoryUsers) LookupAccount(ctx context.Context, id string) (*middleware.Account, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &middleware.Account{
		ID:           u.ID,
		Email:        u.Email,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		TokenVersion: u.TokenVersion,
	}, nil
}

func (m *memoryUsers) mutate(id string, fn func(*UserInfo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.byID[id])
}

type memoryOTPs struct {
	mu     sync.Mutex
	issued []*otp.OTP
}

func (m *memoryOTPs) Issue(_ context.Context, to otp.Recipient, purpose otp.Purpose) (*otp.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &otp.OTP{
		ID:        uuid.New().String(),
		UserID:    to.UserID,
		Code:      fmt.Sprintf("%06d", len(m.issued)+100000),
		Purpose:   purpose,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	m.issued = append(m.issued, o)
	return o, nil
}

func (m *memoryOTPs) Validate(_ context.Context, userID, code string, purpose otp.Purpose) (*otp.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.issued) - 1; i >= 0; i-- {
		o := m.issued[i]
		if o.UserID == userID && o.Purpose == purpose {
			if o.IsUsed || o.Code != code {
				return nil, otp.ErrInvalidCode
			}
			return o, nil
		}
	}
	return nil, otp.ErrInvalidCode
}

func (m *memoryOTPs) Consume(_ context.Context, o *otp.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.IsUsed {
		return otp.ErrInvalidCode
	}
	o.IsUsed = true
	return nil
}

func (m *memoryOTPs) latest(purpose otp.Purpose) *otp.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.issued) - 1; i >= 0; i-- {
		if m.issued[i].Purpose == purpose {
			return m.issued[i]
		}
	}
	return nil
}

type testEnv struct {
	service *Service
	jwt     *JWTManager
	tokens  *memoryTokens
	users   *memoryUsers
	otps    *memoryOTPs
	redis   *miniredis.Miniredis
}

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "roomcraft-test",
		Audience:           "roomcraft-test",
	})
	require.NoError(t, err)
	return m
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		jwt:    newTestJWTManager(t),
		tokens: newMemoryTokens(),
		users:  newMemoryUsers(),
		otps:   &memoryOTPs{},
		redis:  mr,
	}
	env.service = NewService(env.tokens, env.jwt, env.users, env.otps, client, nil)
	return env
}

func (e *testEnv) register(t *testing.T, email, password string) *UserInfo {
	t.Helper()

	require.NoError(t, e.service.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
	}))
	u, err := e.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}
