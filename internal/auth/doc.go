// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the account record, credential primitives and the
// persistence contract for player identities.
//
// # Domain Types
//
// Account is the durable record of one registered identity. Create it with
// NewAccount so the identity key is normalized and timestamps are set;
// direct struct initialization bypasses that and may produce records whose
// key does not match their display name.
//
// # Validation
//
// Validator is the single home of the input rules (name, password, email
// syntax and email availability). Processes reach it through the process
// service and never re-implement a rule.
//
// # Persistence
//
// AccountRepository is the store gateway. Implementations live in the
// postgres and sqlite subpackages and wrap ErrNotFound / ErrDuplicate so
// callers can use errors.Is.
package auth
