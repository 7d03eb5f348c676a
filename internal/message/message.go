// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package message defines the outcome keys reported to players and the
// catalog that turns them into text.
package message

// Key identifies one player-facing outcome.
type Key string

// Outcome keys.
const (
	Error                  Key = "ERROR"
	LoginMessage           Key = "LOGIN_MESSAGE"
	RegisterMessage        Key = "REGISTER_MESSAGE"
	RegisterEmailMessage   Key = "REGISTER_EMAIL_MESSAGE"
	EmailAddedSuccess      Key = "EMAIL_ADDED_SUCCESS"
	EmailChangedSuccess    Key = "EMAIL_CHANGED_SUCCESS"
	UsageAddEmail          Key = "USAGE_ADD_EMAIL"
	UsageChangeEmail       Key = "USAGE_CHANGE_EMAIL"
	InvalidEmail           Key = "INVALID_EMAIL"
	InvalidNewEmail        Key = "INVALID_NEW_EMAIL"
	InvalidOldEmail        Key = "INVALID_OLD_EMAIL"
	EmailAlreadyUsed       Key = "EMAIL_ALREADY_USED_ERROR"
	NotLoggedIn            Key = "NOT_LOGGED_IN"
	AlreadyLoggedIn        Key = "ALREADY_LOGGED_IN_ERROR"
	UserNotRegistered      Key = "USER_NOT_REGISTERED"
	NameAlreadyRegistered  Key = "NAME_ALREADY_REGISTERED"
	RegistrationDisabled   Key = "REGISTRATION_DISABLED"
	InvalidNameLength      Key = "INVALID_NAME_LENGTH"
	InvalidNameCharacters  Key = "INVALID_NAME_CHARACTERS"
	PasswordMatchError     Key = "PASSWORD_MATCH_ERROR"
	PasswordIsUsername     Key = "PASSWORD_IS_USERNAME_ERROR"
	PasswordUnsafe         Key = "PASSWORD_UNSAFE_ERROR"
	PasswordCharacters     Key = "PASSWORD_CHARACTERS_ERROR"
	InvalidPasswordLength  Key = "INVALID_PASSWORD_LENGTH"
	MaxRegisterExceeded    Key = "MAX_REGISTER_EXCEEDED"
	RegisterSuccess        Key = "REGISTER_SUCCESS"
	RegisterEmailSuccess   Key = "REGISTER_EMAIL_SUCCESS"
	EmailSendFailure       Key = "EMAIL_SEND_FAILURE"
	LoginSuccess           Key = "LOGIN_SUCCESS"
	WrongPassword          Key = "WRONG_PASSWORD"
	TempbanMaxLogins       Key = "TEMPBAN_MAX_LOGINS"
	LogoutSuccess          Key = "LOGOUT_SUCCESS"
	PasswordChangedSuccess Key = "PASSWORD_CHANGED_SUCCESS"
	UnregisteredSuccess    Key = "UNREGISTERED_SUCCESS"
	RateLimited            Key = "RATE_LIMITED"
	UnknownCommand         Key = "UNKNOWN_COMMAND"
)

// All lists every defined key.
var All = []Key{
	Error, LoginMessage, RegisterMessage, RegisterEmailMessage,
	EmailAddedSuccess, EmailChangedSuccess, UsageAddEmail, UsageChangeEmail,
	InvalidEmail, InvalidNewEmail, InvalidOldEmail, EmailAlreadyUsed,
	NotLoggedIn, AlreadyLoggedIn, UserNotRegistered, NameAlreadyRegistered,
	RegistrationDisabled, InvalidNameLength, InvalidNameCharacters,
	PasswordMatchError, PasswordIsUsername, PasswordUnsafe, PasswordCharacters,
	InvalidPasswordLength, MaxRegisterExceeded, RegisterSuccess,
	RegisterEmailSuccess, EmailSendFailure, LoginSuccess, WrongPassword,
	TempbanMaxLogins, LogoutSuccess, PasswordChangedSuccess, UnregisteredSuccess,
	RateLimited, UnknownCommand,
}

var known = func() map[Key]struct{} {
	m := make(map[Key]struct{}, len(All))
	for _, k := range All {
		m[k] = struct{}{}
	}
	return m
}()

// Valid reports whether k is a defined key.
func (k Key) Valid() bool {
	_, ok := known[k]
	return ok
}

func (k Key) String() string {
	return string(k)
}
