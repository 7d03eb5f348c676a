// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/settings"
)

// Validation error codes. Processes map these to outcome messages.
const (
	CodeInvalidNameLength     = "AUTH_INVALID_NAME_LENGTH"
	CodeInvalidNameCharacters = "AUTH_INVALID_NAME_CHARACTERS"
	CodePasswordLength        = "AUTH_PASSWORD_LENGTH"
	CodePasswordCharacters    = "AUTH_PASSWORD_CHARACTERS"
	CodePasswordIsUsername    = "AUTH_PASSWORD_IS_USERNAME"
	CodePasswordUnsafe        = "AUTH_PASSWORD_UNSAFE"
)

// PlaceholderEmail is the sample address shipped in client help texts.
// It is never accepted as a real email.
const PlaceholderEmail = "your@email.com"

// emailRegex matches local@domain.tld with a conservative character set.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

// EmailLookup is the part of the store the email rules need.
type EmailLookup interface {
	CountAuthsByEmail(ctx context.Context, email string) (int, error)
	GetAuthByEmail(ctx context.Context, email string) (*Account, error)
}

// Validator applies the input rules for names, passwords and emails.
type Validator struct {
	settings        *settings.Settings
	emails          EmailLookup
	namePattern     *regexp.Regexp
	passwordPattern *regexp.Regexp
}

// NewValidator compiles the configured character patterns.
func NewValidator(s *settings.Settings, emails EmailLookup) (*Validator, error) {
	if emails == nil {
		return nil, oops.Errorf("email lookup is required")
	}

	namePattern, err := compileFull(settings.Get(s, settings.AllowedNameCharacters))
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_PATTERN").
			With("property", settings.AllowedNameCharacters.Path()).
			Wrap(err)
	}
	passwordPattern, err := compileFull(settings.Get(s, settings.AllowedPasswordCharacters))
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_PATTERN").
			With("property", settings.AllowedPasswordCharacters.Path()).
			Wrap(err)
	}

	return &Validator{
		settings:        s,
		emails:          emails,
		namePattern:     namePattern,
		passwordPattern: passwordPattern,
	}, nil
}

// compileFull anchors pattern so it must match the whole input.
func compileFull(pattern string) (*regexp.Regexp, error) {
	//nolint:wrapcheck // callers attach the property name
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

// ValidEmail reports whether email is structurally valid, is not the
// placeholder address, and passes the configured domain lists.
func (v *Validator) ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.EqualFold(email, PlaceholderEmail) {
		return false
	}
	if !emailRegex.MatchString(email) {
		return false
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if allowed := settings.Get(v.settings, settings.EmailDomainWhitelist); len(allowed) > 0 {
		return containsFold(allowed, domain)
	}
	return !containsFold(settings.Get(v.settings, settings.EmailDomainBlacklist), domain)
}

// EmailFreeForRegistration reports whether email may be bound to the
// account identified by key: either nobody holds it, or key itself is the
// only holder.
func (v *Validator) EmailFreeForRegistration(ctx context.Context, email string, key identity.Key) (bool, error) {
	count, err := v.emails.CountAuthsByEmail(ctx, email)
	if err != nil {
		return false, oops.Code("AUTH_EMAIL_LOOKUP_FAILED").
			With("operation", "count accounts by email").
			Wrap(err)
	}

	switch {
	case count == 0:
		return true, nil
	case count > 1:
		return false, nil
	}

	holder, err := v.emails.GetAuthByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Released between the two reads.
		return true, nil
	}
	if err != nil {
		return false, oops.Code("AUTH_EMAIL_LOOKUP_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return holder.Key == key, nil
}

// ValidateName checks a player name against the configured length bounds
// and allowed characters.
func (v *Validator) ValidateName(name string) error {
	length := utf8.RuneCountInString(name)
	minLen := settings.Get(v.settings, settings.MinNameLength)
	maxLen := settings.Get(v.settings, settings.MaxNameLength)
	if length < minLen || length > maxLen {
		return oops.Code(CodeInvalidNameLength).
			With("min", minLen).
			With("max", maxLen).
			Errorf("name must be between %d and %d characters", minLen, maxLen)
	}
	if !v.namePattern.MatchString(name) {
		return oops.Code(CodeInvalidNameCharacters).
			Errorf("name contains characters that are not allowed")
	}
	return nil
}

// ValidatePassword checks a new password. The first failing rule wins:
// allowed characters, not equal to the name, length bounds, unsafe list.
func (v *Validator) ValidatePassword(password, name string) error {
	if !v.passwordPattern.MatchString(password) {
		return oops.Code(CodePasswordCharacters).
			Errorf("password contains characters that are not allowed")
	}
	if strings.EqualFold(password, name) {
		return oops.Code(CodePasswordIsUsername).
			Errorf("password cannot be the player name")
	}

	length := utf8.RuneCountInString(password)
	minLen := settings.Get(v.settings, settings.MinPasswordLength)
	maxLen := settings.Get(v.settings, settings.MaxPasswordLength)
	if length < minLen || length > maxLen {
		return oops.Code(CodePasswordLength).
			With("min", minLen).
			With("max", maxLen).
			Errorf("password must be between %d and %d characters", minLen, maxLen)
	}

	if containsFold(settings.Get(v.settings, settings.UnsafePasswords), password) {
		return oops.Code(CodePasswordUnsafe).
			Errorf("password is too common")
	}
	return nil
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(item string) bool {
		return strings.EqualFold(strings.TrimSpace(item), s)
	})
}
