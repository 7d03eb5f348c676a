// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/pkg/errutil"
)

// validationOutcomes maps validator error codes to player outcomes.
var validationOutcomes = map[string]message.Key{
	auth.CodeInvalidNameLength:     message.InvalidNameLength,
	auth.CodeInvalidNameCharacters: message.InvalidNameCharacters,
	auth.CodePasswordLength:        message.InvalidPasswordLength,
	auth.CodePasswordCharacters:    message.PasswordCharacters,
	auth.CodePasswordIsUsername:    message.PasswordIsUsername,
	auth.CodePasswordUnsafe:        message.PasswordUnsafe,
}

// validationOutcome returns the outcome for a validator error, and false
// when err is not a validation failure.
func validationOutcome(err error) (message.Key, bool) {
	key, ok := validationOutcomes[errutil.Code(err)]
	return key, ok
}
