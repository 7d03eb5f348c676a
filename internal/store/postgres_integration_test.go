// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/holoauth/internal/store"
)

var _ = Describe("PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("holoauth_test"),
			postgres.WithUsername("holoauth"),
			postgres.WithPassword("holoauth"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Migrator", func() {
		It("runs the full migration cycle", func() {
			m, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer m.Close()
			Expect(m.Dialect()).To(Equal(store.DialectPostgres))

			version, dirty, err := m.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
			Expect(dirty).To(BeFalse())

			Expect(m.Up()).To(Succeed())
			version, _, err = m.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint(2)))

			Expect(m.Steps(-1)).To(Succeed())
			pending, err := m.PendingMigrations()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(Equal([]uint{2}))

			Expect(m.Down()).To(Succeed())
			version, _, err = m.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())

			Expect(m.Up()).To(Succeed())
			Expect(m.Force(1)).To(Succeed())
			version, dirty, err = m.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(uint(1)))
			Expect(dirty).To(BeFalse())
		})
	})

	Describe("Connect", func() {
		It("returns a pool that answers queries", func() {
			pool, err := store.Connect(ctx, connStr, store.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			var one int
			Expect(pool.QueryRow(ctx, "SELECT 1").Scan(&one)).To(Succeed())
			Expect(one).To(Equal(1))
		})

		It("gives up after the configured attempts", func() {
			_, err := store.Connect(ctx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1",
				store.ConnectOptions{Attempts: 2, Backoff: 10 * time.Millisecond})
			Expect(err).To(HaveOccurred())
		})
	})
})
