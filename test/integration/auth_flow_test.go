// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/movex/movex/internal/auth"
	authpg "github.com/movex/movex/internal/auth/postgres"
	authredis "github.com/movex/movex/internal/auth/redis"
	"github.com/movex/movex/internal/client"
	"github.com/movex/movex/internal/httpapi"
	"github.com/movex/movex/internal/store"
)

const testSecret = "integration-secret-0123456789abcdef"

// testEnv holds the containers and the running API.
type testEnv struct {
	ctx    context.Context
	cancel context.CancelFunc
	pgC    testcontainers.Container
	redisC testcontainers.Container
	pool   *pgxpool.Pool
	redis  *goredis.Client
	server *httptest.Server
	api    *httpapi.Server
	tmpDir string
}

func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	env := &testEnv{ctx: ctx, cancel: cancel}

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("movex_test"),
		postgres.WithUsername("movex"),
		postgres.WithPassword("movex"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.pgC = pgC

	connStr, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Connect(ctx, connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	redisC, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.redisC = redisC
	redisURL, err := redisC.ConnectionString(ctx)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.redis, err = authredis.NewClient(ctx, redisURL)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	issuer, err := auth.NewJWTIssuer(testSecret)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	svc, err := auth.NewService(authpg.NewUserRepository(env.pool), authredis.NewRevocationStore(env.redis), hasher, issuer)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.api, err = httpapi.New(svc, httpapi.Options{})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.server = httptest.NewServer(env.api.Handler())

	env.tmpDir, err = os.MkdirTemp("", "movex-test-*")
	if err != nil {
		env.cleanup()
		return nil, err
	}
	return env, nil
}

func (e *testEnv) cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = e.api.Shutdown(shutdownCtx)
		cancel()
	}
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.redisC != nil {
		_ = e.redisC.Terminate(context.Background())
	}
	if e.pgC != nil {
		_ = e.pgC.Terminate(context.Background())
	}
	if e.tmpDir != "" {
		_ = os.RemoveAll(e.tmpDir)
	}
	e.cancel()
}

// newSession returns a client with its own session file.
func (e *testEnv) newSession(name string) (*client.Client, *client.FileTokenStore) {
	tokens := client.NewFileTokenStore(filepath.Join(e.tmpDir, name, "session.json"))
	c, err := client.New(e.server.URL, tokens)
	Expect(err).NotTo(HaveOccurred())
	return c, tokens
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

var _ = Describe("Sign-up to logout", func() {
	It("takes a rider from sign-up through the gate and back to the login route", func() {
		c, tokens := env.newSession("rider")
		gate := client.NewGate(c)

		By("rejecting the protected screen without a session")
		_, err := gate.Enter(env.ctx, auth.KindUser)
		Expect(err).To(MatchError(client.ErrLoginRequired))

		By("signing up")
		form := &client.SignUpForm{FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Example.com", Password: "secret123"}
		resp, err := c.Register(env.ctx, auth.KindUser, form)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.User.Email).To(Equal("ada@example.com"))
		Expect(resp.Token).NotTo(BeEmpty())
		Expect(*form).To(Equal(client.SignUpForm{}), "form is reset after submit")

		saved, err := tokens.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(Equal(resp.Token))

		By("entering the protected screen")
		user, err := gate.Enter(env.ctx, auth.KindUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.ID).To(Equal(resp.User.ID))
		Expect(user.FullName.FirstName).To(Equal("Ada"))

		By("logging out")
		Expect(c.Logout(env.ctx, auth.KindUser)).To(Succeed())
		saved, err = tokens.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(BeEmpty())

		By("refusing the revoked token even when replayed")
		Expect(tokens.Save(resp.Token)).To(Succeed())
		_, err = gate.Enter(env.ctx, auth.KindUser)
		var loginErr *client.LoginRequiredError
		Expect(err).To(BeAssignableToTypeOf(loginErr))
		Expect(err.(*client.LoginRequiredError).Route).To(Equal("/login"))
	})

	It("keeps rider and captain accounts apart", func() {
		rider, _ := env.newSession("rider-2")
		captain, _ := env.newSession("captain-2")

		_, err := rider.Register(env.ctx, auth.KindUser, &client.SignUpForm{
			FirstName: "Sam", Email: "sam@example.com", Password: "secret123",
		})
		Expect(err).NotTo(HaveOccurred())

		By("allowing the same email as a captain")
		_, err = captain.Register(env.ctx, auth.KindCaptain, &client.SignUpForm{
			FirstName: "Sam", Email: "sam@example.com", Password: "different1",
		})
		Expect(err).NotTo(HaveOccurred())

		By("rejecting a second rider with that email")
		other, _ := env.newSession("rider-3")
		_, err = other.Register(env.ctx, auth.KindUser, &client.SignUpForm{
			FirstName: "Sam", Email: "SAM@example.com", Password: "secret123",
		})
		var apiErr *client.APIError
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		Expect(err.(*client.APIError).Status).To(Equal(409))

		By("each password only opening its own kind")
		_, err = other.Login(env.ctx, auth.KindCaptain, &client.LoginForm{Email: "sam@example.com", Password: "secret123"})
		Expect(err).To(HaveOccurred())
		_, err = other.Login(env.ctx, auth.KindCaptain, &client.LoginForm{Email: "sam@example.com", Password: "different1"})
		Expect(err).NotTo(HaveOccurred())

		user, err := client.NewGate(other).Enter(env.ctx, auth.KindCaptain)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Kind).To(Equal("captain"))
	})
})
