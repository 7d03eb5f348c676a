// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/identity"
)

var _ = Describe("AccountRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.AccountRepository
	)

	newAccount := func(name, email, ip string) *auth.Account {
		account, err := auth.NewAccount(name, "hash-"+name, ip)
		Expect(err).NotTo(HaveOccurred())
		account.CreatedAt = account.CreatedAt.UTC().Truncate(time.Microsecond)
		account.UpdatedAt = account.CreatedAt
		if email != "" {
			account.SetEmail(email)
		}
		Expect(repo.SaveAuth(ctx, account)).To(Succeed())
		return account
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewAccountRepository(testPool)
		_, err := testPool.Exec(ctx, `DELETE FROM accounts`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a saved account case-insensitively", func() {
		saved := newAccount("Bobby", "Bobby@Mail.tld", "10.0.0.2")

		got, err := repo.GetAuth(ctx, identity.Normalize("BOBBY"))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(saved.ID))
		Expect(got.DisplayName).To(Equal("Bobby"))
		Expect(got.EmailValue()).To(Equal("Bobby@Mail.tld"))
		Expect(got.CreatedAt.Equal(saved.CreatedAt)).To(BeTrue())

		byEmail, err := repo.GetAuthByEmail(ctx, "bobby@mail.TLD")
		Expect(err).NotTo(HaveOccurred())
		Expect(byEmail.Key).To(Equal(identity.Key("bobby")))
	})

	It("rejects a second account with the same key", func() {
		newAccount("Bobby", "", "")
		dup, err := auth.NewAccount("BOBBY", "x", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.SaveAuth(ctx, dup)).To(MatchError(auth.ErrDuplicate))
	})

	It("counts by email and registration ip", func() {
		newAccount("Bobby", "bobby@mail.tld", "10.0.0.2")
		newAccount("Alice", "", "10.0.0.2")

		n, err := repo.CountAuthsByEmail(ctx, "BOBBY@mail.tld")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		n, err = repo.CountAuthsByIP(ctx, "10.0.0.2")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("leaves the stored email untouched when the new one is taken", func() {
		newAccount("Alice", "alice@mail.tld", "")
		bobby := newAccount("Bobby", "bobby@mail.tld", "")

		bobby.SetEmail("ALICE@mail.tld")
		Expect(repo.UpdateEmail(ctx, bobby)).To(MatchError(auth.ErrDuplicate))

		got, err := repo.GetAuth(ctx, bobby.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.EmailValue()).To(Equal("bobby@mail.tld"))
	})

	It("persists password and session updates", func() {
		bobby := newAccount("Bobby", "", "")
		Expect(repo.UpdatePassword(ctx, bobby.Key, "newhash")).To(Succeed())

		at := time.Now().UTC().Truncate(time.Microsecond)
		bobby.RecordLogin("10.0.0.9", at)
		Expect(repo.UpdateSession(ctx, bobby)).To(Succeed())

		got, err := repo.GetAuth(ctx, bobby.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("newhash"))
		Expect(got.LastIP).To(Equal("10.0.0.9"))
		Expect(got.LastLogin).NotTo(BeNil())
		Expect(got.LastLogin.Equal(at)).To(BeTrue())
	})

	It("removes accounts", func() {
		bobby := newAccount("Bobby", "", "")
		Expect(repo.RemoveAuth(ctx, bobby.Key)).To(Succeed())

		ok, err := repo.IsAuthAvailable(ctx, bobby.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(repo.RemoveAuth(ctx, bobby.Key)).To(MatchError(auth.ErrNotFound))
	})
})
