// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/mocks"
	"github.com/holomush/holoauth/internal/cache"
	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/mail"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/settings"
)

type fakePlayer struct {
	name    string
	address string
}

func (p fakePlayer) Name() string    { return p.name }
func (p fakePlayer) Address() string { return p.address }

type delivery struct {
	player string
	key    message.Key
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []delivery
}

func (m *recordingMessenger) Send(_ context.Context, p Player, key message.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, delivery{player: p.Name(), key: key})
}

func (m *recordingMessenger) deliveries() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.sent...)
}

// prefixHasher stores passwords as "hashed:<password>". Hashes starting
// with "legacy:" report that they need an upgrade.
type prefixHasher struct{}

func (prefixHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (prefixHasher) Verify(password, hash string) (bool, error) {
	if rest, ok := strings.CutPrefix(hash, "legacy:"); ok {
		return rest == password, nil
	}
	return hash == "hashed:"+password, nil
}

func (prefixHasher) NeedsUpgrade(hash string) bool {
	return strings.HasPrefix(hash, "legacy:")
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []mail.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type harness struct {
	deps      Deps
	store     *mocks.MockAccountRepository
	cache     *cache.PlayerCache
	messenger *recordingMessenger
	mailer    *fakeMailer
	settings  *settings.Settings
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	values map[string]any
	hasher auth.PasswordHasher
}

func withSetting(path string, value any) harnessOption {
	return func(c *harnessConfig) { c.values[path] = value }
}

func withHasher(h auth.PasswordHasher) harnessOption {
	return func(c *harnessConfig) { c.hasher = h }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{values: map[string]any{}, hasher: prefixHasher{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := settings.New()
	for path, value := range cfg.values {
		require.NoError(t, s.Set(path, value))
	}

	store := mocks.NewMockAccountRepository(t)
	validator, err := auth.NewValidator(s, store)
	require.NoError(t, err)

	h := &harness{
		store:     store,
		cache:     cache.New(),
		messenger: &recordingMessenger{},
		mailer:    &fakeMailer{},
		settings:  s,
	}
	svc, err := NewService(ServiceConfig{
		Settings:  s,
		Validator: validator,
		Hasher:    cfg.hasher,
		Messenger: h.messenger,
		Mailer:    h.mailer,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	h.deps = Deps{Cache: h.cache, Store: store, Service: svc}
	return h
}

// login puts a session for name into the cache.
func (h *harness) login(t *testing.T, name, password, email string) *auth.Account {
	t.Helper()
	acc, err := auth.NewAccount(name, "hashed:"+password, "10.0.0.1")
	require.NoError(t, err)
	acc.SetEmail(email)
	h.cache.AddPlayer(acc)
	return acc
}

func (h *harness) cachedEmail(t *testing.T, name string) string {
	t.Helper()
	acc, ok := h.cache.GetAuth(identity.Normalize(name))
	require.True(t, ok, "expected %s to be cached", name)
	return acc.EmailValue()
}

func anyAccount() any {
	return mock.AnythingOfType("*auth.Account")
}
