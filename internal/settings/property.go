// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package settings

import "time"

// Value is the set of types a Property can carry.
type Value interface {
	bool | int | float64 | string | []string | time.Duration
}

// Property is a typed, named configuration entry with a default.
type Property[T Value] struct {
	path string
	def  T
}

// defaults holds every declared property's default, keyed by path.
var defaults = map[string]any{}

func newProperty[T Value](path string, def T) Property[T] {
	defaults[path] = def
	return Property[T]{path: path, def: def}
}

// Path returns the dotted configuration path.
func (p Property[T]) Path() string {
	return p.path
}

// Default returns the value used when nothing overrides the property.
func (p Property[T]) Default() T {
	return p.def
}

// Registration.
var (
	RegistrationEnabled     = newProperty("registration.enabled", true)
	UseEmailRegistration    = newProperty("registration.use-email-registration", false)
	ForceLoginAfterRegister = newProperty("registration.force-login-after-register", true)
	MaxRegistrationsPerIP   = newProperty("registration.max-per-ip", 1)
)

// Name restrictions.
var (
	MinNameLength         = newProperty("restrictions.min-name-length", 3)
	MaxNameLength         = newProperty("restrictions.max-name-length", 16)
	AllowedNameCharacters = newProperty("restrictions.allowed-name-characters", "[a-zA-Z0-9_]*")
)

// Password and login security.
var (
	MinPasswordLength         = newProperty("security.min-password-length", 5)
	MaxPasswordLength         = newProperty("security.max-password-length", 30)
	AllowedPasswordCharacters = newProperty("security.allowed-password-characters", "[!-~]*")
	UnsafePasswords           = newProperty("security.unsafe-passwords", []string{
		"123456", "password", "qwerty", "12345", "54321", "123456789",
	})
	MaxLoginTries   = newProperty("security.max-login-tries", 7)
	LockoutDuration = newProperty("security.lockout-duration", 15*time.Minute)
)

// Email.
var (
	EmailDomainWhitelist    = newProperty("email.domain-whitelist", []string{})
	EmailDomainBlacklist    = newProperty("email.domain-blacklist", []string{})
	GeneratedPasswordLength = newProperty("email.generated-password-length", 10)
)

// Mail transport.
var (
	MailHost     = newProperty("mail.host", "")
	MailPort     = newProperty("mail.port", 587)
	MailFrom     = newProperty("mail.from", "")
	MailUsername = newProperty("mail.username", "")
	MailPassword = newProperty("mail.password", "")
)

// Runtime.
var (
	ExecutorWorkers = newProperty("executor.workers", 8)
	DatabaseDriver  = newProperty("database.driver", "postgres")
	DatabaseURL     = newProperty("database.url", "")
	SQLitePath      = newProperty("database.sqlite-path", "")
	AutoMigrate     = newProperty("database.auto-migrate", true)
	TelnetAddr      = newProperty("telnet.addr", "127.0.0.1:4201")
	MetricsAddr     = newProperty("metrics.addr", "127.0.0.1:9101")
	LogFormat       = newProperty("log.format", "json")
	LogLevel        = newProperty("log.level", "info")
	MessagesFile    = newProperty("messages.file", "")
	RateLimitBurst  = newProperty("ratelimit.burst", 10)
	RateLimitRate   = newProperty("ratelimit.rate", 2.0)
)
