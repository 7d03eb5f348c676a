// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/mail"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/settings"
)

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Settings  *settings.Settings
	Validator *auth.Validator
	Hasher    auth.PasswordHasher
	Messenger Messenger
	Mailer    mail.Sender  // defaults to mail.Disabled
	Logger    *slog.Logger // defaults to slog.Default()
}

// Service is the single helper processes use for settings, validation,
// password handling and message delivery.
type Service struct {
	settings  *settings.Settings
	validator *auth.Validator
	hasher    auth.PasswordHasher
	messenger Messenger
	mailer    mail.Sender
	logger    *slog.Logger
}

// NewService creates a Service. Settings, Validator, Hasher and Messenger
// are required.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Settings == nil:
		return nil, oops.Code("PROCESS_INVALID_CONFIG").Errorf("settings are required")
	case cfg.Validator == nil:
		return nil, oops.Code("PROCESS_INVALID_CONFIG").Errorf("validator is required")
	case cfg.Hasher == nil:
		return nil, oops.Code("PROCESS_INVALID_CONFIG").Errorf("password hasher is required")
	case cfg.Messenger == nil:
		return nil, oops.Code("PROCESS_INVALID_CONFIG").Errorf("messenger is required")
	}

	s := &Service{
		settings:  cfg.Settings,
		validator: cfg.Validator,
		hasher:    cfg.Hasher,
		messenger: cfg.Messenger,
		mailer:    cfg.Mailer,
		logger:    cfg.Logger,
	}
	if s.mailer == nil {
		s.mailer = mail.Disabled{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// BoolProperty reads a boolean setting.
func (s *Service) BoolProperty(p settings.Property[bool]) bool {
	return settings.Get(s.settings, p)
}

// IntProperty reads an integer setting.
func (s *Service) IntProperty(p settings.Property[int]) int {
	return settings.Get(s.settings, p)
}

// StringProperty reads a string setting.
func (s *Service) StringProperty(p settings.Property[string]) string {
	return settings.Get(s.settings, p)
}

// DurationProperty reads a duration setting.
func (s *Service) DurationProperty(p settings.Property[time.Duration]) time.Duration {
	return settings.Get(s.settings, p)
}

// Send delivers key to player.
func (s *Service) Send(ctx context.Context, player Player, key message.Key) {
	s.messenger.Send(ctx, player, key)
}

// ValidateEmail reports whether email is acceptable input.
func (s *Service) ValidateEmail(email string) bool {
	return s.validator.ValidEmail(email)
}

// IsEmailFreeForRegistration reports whether player may bind email.
func (s *Service) IsEmailFreeForRegistration(ctx context.Context, email string, player Player) (bool, error) {
	//nolint:wrapcheck // validator errors carry their own codes
	return s.validator.EmailFreeForRegistration(ctx, email, identity.Normalize(player.Name()))
}

// ValidateName checks a player name.
func (s *Service) ValidateName(name string) error {
	//nolint:wrapcheck // validator errors carry their own codes
	return s.validator.ValidateName(name)
}

// ValidatePassword checks a new password for the named player.
func (s *Service) ValidatePassword(password, name string) error {
	//nolint:wrapcheck // validator errors carry their own codes
	return s.validator.ValidatePassword(password, name)
}

// HashPassword hashes a new password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", oops.Code("PROCESS_HASH_FAILED").Wrap(err)
	}
	return hash, nil
}

// VerifyPassword checks password against a stored hash.
func (s *Service) VerifyPassword(password, hash string) (bool, error) {
	ok, err := s.hasher.Verify(password, hash)
	if err != nil {
		return false, oops.Code("PROCESS_VERIFY_FAILED").Wrap(err)
	}
	return ok, nil
}

// NeedsRehash reports whether hash uses an outdated scheme or cost.
func (s *Service) NeedsRehash(hash string) bool {
	return s.hasher.NeedsUpgrade(hash)
}

// Lockout returns the configured failed-login policy.
func (s *Service) Lockout() auth.Lockout {
	return auth.Lockout{
		Threshold: s.IntProperty(settings.MaxLoginTries),
		Duration:  s.DurationProperty(settings.LockoutDuration),
	}
}

// Mailer returns the outbound mail sender.
func (s *Service) Mailer() mail.Sender {
	return s.mailer
}

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}
