// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/settings"
)

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		player   string
		password string
		confirm  string
		opts     []harnessOption
		want     message.Key
	}{
		{
			name:     "registration disabled",
			player:   "newbie",
			password: "s3cret!",
			confirm:  "s3cret!",
			opts:     []harnessOption{withSetting(settings.RegistrationEnabled.Path(), false)},
			want:     message.RegistrationDisabled,
		},
		{
			name:     "email registration mode",
			player:   "newbie",
			password: "s3cret!",
			confirm:  "s3cret!",
			opts:     []harnessOption{withSetting(settings.UseEmailRegistration.Path(), true)},
			want:     message.RegisterEmailMessage,
		},
		{name: "name too short", player: "ab", password: "s3cret!", confirm: "s3cret!", want: message.InvalidNameLength},
		{name: "name has spaces", player: "bad name", password: "s3cret!", confirm: "s3cret!", want: message.InvalidNameCharacters},
		{name: "confirmation differs", player: "newbie", password: "s3cret!", confirm: "s3cret?", want: message.PasswordMatchError},
		{name: "password is name", player: "newbie", password: "NewBie", confirm: "NewBie", want: message.PasswordIsUsername},
		{name: "password too short", player: "newbie", password: "abc", confirm: "abc", want: message.InvalidPasswordLength},
		{name: "password unsafe", player: "newbie", password: "qwerty", confirm: "qwerty", want: message.PasswordUnsafe},
		{name: "password characters", player: "newbie", password: "pass word", confirm: "pass word", want: message.PasswordCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.opts...)

			got := NewRegister(h.deps, fakePlayer{name: tt.player}, tt.password, tt.confirm).Run(t.Context())

			assert.Equal(t, tt.want, got)
			assert.Zero(t, h.cache.Len())
		})
	}
}

func TestRegister_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.login(t, "newbie", "s3cret!", "")

	got := NewRegister(h.deps, fakePlayer{name: "NEWBIE"}, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.AlreadyLoggedIn, got)
}

func TestRegister_NameTaken(t *testing.T) {
	h := newHarness(t)
	h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(true, nil)

	got := NewRegister(h.deps, fakePlayer{name: "NewBie"}, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.NameAlreadyRegistered, got)
}

func TestRegister_IPLimit(t *testing.T) {
	h := newHarness(t, withSetting(settings.MaxRegistrationsPerIP.Path(), 2))
	h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(false, nil)
	h.store.On("CountAuthsByIP", mock.Anything, "10.1.1.1").Return(2, nil)

	got := NewRegister(h.deps, fakePlayer{name: "newbie", address: "10.1.1.1"}, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.MaxRegisterExceeded, got)
}

func TestRegister_IPLimitSkippedWithoutAddress(t *testing.T) {
	h := newHarness(t)
	h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(false, nil)
	h.store.On("SaveAuth", mock.Anything, mock.AnythingOfType("*auth.Account")).Return(nil)

	got := NewRegister(h.deps, fakePlayer{name: "newbie"}, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.RegisterSuccess, got)
}

func TestRegister_SuccessLogsIn(t *testing.T) {
	h := newHarness(t)
	player := fakePlayer{name: "NewBie", address: "10.1.1.1"}
	h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(false, nil)
	h.store.On("CountAuthsByIP", mock.Anything, "10.1.1.1").Return(0, nil)
	h.store.On("SaveAuth", mock.Anything, mock.MatchedBy(func(acc *auth.Account) bool {
		return acc.Key == "newbie" &&
			acc.DisplayName == "NewBie" &&
			acc.PasswordHash == "hashed:s3cret!" &&
			acc.RegistrationIP == "10.1.1.1" &&
			acc.LastLogin != nil
	})).Return(nil)

	got := NewRegister(h.deps, player, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.RegisterSuccess, got)
	assert.True(t, h.cache.IsAuthenticated("newbie"))
}

func TestRegister_WithoutForcedLogin(t *testing.T) {
	h := newHarness(t, withSetting(settings.ForceLoginAfterRegister.Path(), false))
	h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(false, nil)
	h.store.On("SaveAuth", mock.Anything, mock.MatchedBy(func(acc *auth.Account) bool {
		return acc.LastLogin == nil
	})).Return(nil)

	got := NewRegister(h.deps, fakePlayer{name: "newbie"}, "s3cret!", "s3cret!").Run(t.Context())

	assert.Equal(t, message.RegisterSuccess, got)
	assert.False(t, h.cache.IsAuthenticated("newbie"))
}

func TestRegister_StoreFailure(t *testing.T) {
	for name, storeErr := range map[string]error{
		"duplicate": auth.ErrDuplicate,
		"outage":    errors.New("connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.store.On("IsAuthAvailable", mock.Anything, identity.Key("newbie")).Return(false, nil)
			h.store.On("SaveAuth", mock.Anything, mock.AnythingOfType("*auth.Account")).Return(storeErr)

			got := NewRegister(h.deps, fakePlayer{name: "newbie"}, "s3cret!", "s3cret!").Run(t.Context())

			assert.Equal(t, message.Error, got)
			assert.False(t, h.cache.IsAuthenticated("newbie"))
		})
	}
}

func TestRegisterEmail(t *testing.T) {
	const email = "my.mail@example.org"
	emailMode := withSetting(settings.UseEmailRegistration.Path(), true)

	t.Run("password mode asks for password registration", func(t *testing.T) {
		h := newHarness(t)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.RegisterMessage, got)
	})

	t.Run("confirmation differs", func(t *testing.T) {
		h := newHarness(t, emailMode)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, "other@example.org").Run(t.Context())

		assert.Equal(t, message.InvalidEmail, got)
	})

	t.Run("placeholder email", func(t *testing.T) {
		h := newHarness(t, emailMode)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, "your@email.com", "your@email.com").Run(t.Context())

		assert.Equal(t, message.InvalidEmail, got)
	})

	t.Run("name taken", func(t *testing.T) {
		h := newHarness(t, emailMode)
		h.store.On("IsAuthAvailable", mock.Anything, identity.Key("user")).Return(true, nil)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.NameAlreadyRegistered, got)
	})

	t.Run("email taken", func(t *testing.T) {
		h := newHarness(t, emailMode)
		h.store.On("IsAuthAvailable", mock.Anything, identity.Key("user")).Return(false, nil)
		h.store.On("CountAuthsByEmail", mock.Anything, email).Return(3, nil)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.EmailAlreadyUsed, got)
	})

	t.Run("success mails generated password", func(t *testing.T) {
		h := newHarness(t, emailMode, withSetting(settings.GeneratedPasswordLength.Path(), 12))
		h.store.On("IsAuthAvailable", mock.Anything, identity.Key("user")).Return(false, nil)
		h.store.On("CountAuthsByEmail", mock.Anything, email).Return(0, nil)
		h.store.On("SaveAuth", mock.Anything, emailIs(email)).Return(nil)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.RegisterEmailSuccess, got)
		require.Len(t, h.mailer.sent, 1)
		sent := h.mailer.sent[0]
		assert.Equal(t, email, sent.To)

		saved := h.store.Calls[len(h.store.Calls)-1].Arguments.Get(1).(*auth.Account)
		password, ok := strings.CutPrefix(saved.PasswordHash, "hashed:")
		require.True(t, ok)
		assert.Len(t, password, 12)
		assert.Contains(t, sent.Body, password)
		assert.False(t, h.cache.IsAuthenticated("user"))
	})

	t.Run("mail failure removes the account", func(t *testing.T) {
		h := newHarness(t, emailMode)
		h.mailer.err = errors.New("smtp: 421")
		h.store.On("IsAuthAvailable", mock.Anything, identity.Key("user")).Return(false, nil)
		h.store.On("CountAuthsByEmail", mock.Anything, email).Return(0, nil)
		h.store.On("SaveAuth", mock.Anything, emailIs(email)).Return(nil)
		h.store.On("RemoveAuth", mock.Anything, identity.Key("user")).Return(nil)

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.EmailSendFailure, got)
	})

	t.Run("store failure sends no mail", func(t *testing.T) {
		h := newHarness(t, emailMode)
		h.store.On("IsAuthAvailable", mock.Anything, identity.Key("user")).Return(false, nil)
		h.store.On("CountAuthsByEmail", mock.Anything, email).Return(0, nil)
		h.store.On("SaveAuth", mock.Anything, emailIs(email)).Return(errors.New("boom"))

		got := NewRegisterEmail(h.deps, fakePlayer{name: "user"}, email, email).Run(t.Context())

		assert.Equal(t, message.Error, got)
		assert.Empty(t, h.mailer.sent)
	})
}
