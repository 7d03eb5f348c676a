// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks holds testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
)

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

var _ auth.AccountRepository = (*MockAccountRepository)(nil)

// NewMockAccountRepository creates a mock that asserts its expectations
// when the test ends.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) IsAuthAvailable(ctx context.Context, key identity.Key) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) GetAuth(ctx context.Context, key identity.Key) (*auth.Account, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAuthByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountRepository) CountAuthsByEmail(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) CountAuthsByIP(ctx context.Context, ip string) (int, error) {
	args := m.Called(ctx, ip)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) SaveAuth(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) UpdateEmail(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, key identity.Key, passwordHash string) error {
	return m.Called(ctx, key, passwordHash).Error(0)
}

func (m *MockAccountRepository) UpdateSession(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) RemoveAuth(ctx context.Context, key identity.Key) error {
	return m.Called(ctx, key).Error(0)
}
