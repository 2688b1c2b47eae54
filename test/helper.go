// Package test provides disposable Postgres and Redis instances for the
// integration tests (go test -tags integration ./...).
package test

import (
	"context"
	"testing"
	"time"

	"customer-auth/entity"
	"customer-auth/migrations"
	"customer-auth/pkg/hash"
	"customer-auth/pkg/logger"
	"customer-auth/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// TestDB wraps a migrated database running in a throwaway container
type TestDB struct {
	DB    *sqlx.DB
	Store *repository.Store
}

// SetupTestDB starts Postgres, runs the bundled migrations and registers cleanup on t
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("customer_auth_test"),
		postgres.WithUsername("customer_auth"),
		postgres.WithPassword("customer_auth"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "Failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunMigrations(ctx, db, migrations.Files(), logger.NewNop()), "Failed to run test migrations")

	return &TestDB{DB: db, Store: repository.NewStore(db)}
}

// SetupTestRedis starts Redis and returns a connected client
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "Failed to start redis container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	return client
}

// CleanTables removes all data from tables (for test isolation)
func (tdb *TestDB) CleanTables(t *testing.T) {
	_, err := tdb.DB.Exec("TRUNCATE TABLE sessions, otps, customers, phone_whitelist RESTART IDENTITY CASCADE")
	require.NoError(t, err, "Failed to clean test tables")
}

// WhitelistPhone allows phoneNumber to request codes
func (tdb *TestDB) WhitelistPhone(t *testing.T, phoneNumber string) {
	_, err := tdb.DB.Exec("INSERT INTO phone_whitelist (phone_number) VALUES ($1) ON CONFLICT DO NOTHING", phoneNumber)
	require.NoError(t, err, "Failed to whitelist phone")
}

// CreateTestOTP stores code for phoneNumber hashed with secret
func (tdb *TestDB) CreateTestOTP(t *testing.T, secret, phoneNumber, code string, expiresAt time.Time) *entity.OTP {
	otp := &entity.OTP{
		PhoneNumber: phoneNumber,
		CodeHash:    hash.NewHMACSHA256(secret).Hash(phoneNumber + ":" + code),
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, tdb.Store.OTP.Upsert(context.Background(), otp), "Failed to create test OTP")
	return otp
}

// AssertCustomerCount asserts the total number of customers in the database
func (tdb *TestDB) AssertCustomerCount(t *testing.T, expectedCount int) {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM customers")
	require.NoError(t, err, "Failed to count customers")
	require.Equal(t, expectedCount, count, "Customer count mismatch")
}

// AssertOTPUsed asserts that the OTP of phoneNumber is marked as used
func (tdb *TestDB) AssertOTPUsed(t *testing.T, phoneNumber string, expected bool) {
	var isUsed bool
	err := tdb.DB.Get(&isUsed, "SELECT is_used FROM otps WHERE phone_number = $1", phoneNumber)
	require.NoError(t, err, "Failed to get OTP status")
	require.Equal(t, expected, isUsed, "OTP used flag mismatch")
}

// SessionCount returns the number of sessions recorded for token hash
func (tdb *TestDB) SessionCount(t *testing.T, tokenHash string) int {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM sessions WHERE token_hash = $1", tokenHash)
	require.NoError(t, err, "Failed to count sessions")
	return count
}
