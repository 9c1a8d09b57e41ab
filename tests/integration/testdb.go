// Package integration runs the ledger against a real PostgreSQL started with
// testcontainers. Migrations run as the container superuser; the application
// connects as a separate role without BYPASSRLS, since superusers ignore
// row level security even when it is forced.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/migration"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testDBName   = "ledger_test"
	appRole      = "ledger_app"
	appPassword  = "ledger_app_pw"
	ownerRole    = "postgres"
	ownerPasswd  = "postgres_pw"
	startTimeout = 60 * time.Second
)

// TestDB is a migrated database with an owner handle for seeding and an
// application handle subject to row level security
type TestDB struct {
	// Owner bypasses row level security. Use it only to seed and inspect.
	Owner *gorm.DB
	// App connects as the application role through persistence.NewDatabase
	App *persistence.Database
}

// NewTestDB starts PostgreSQL, migrates it and creates the application role.
// maxOpenConns bounds the application pool.
func NewTestDB(t *testing.T, maxOpenConns int) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(ownerRole),
		tcpostgres.WithPassword(ownerPasswd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startTimeout)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	ownerDSN, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", ownerDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	migrator, err := migration.New(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	for _, stmt := range []string{
		fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD '%s' NOSUPERUSER NOBYPASSRLS", appRole, appPassword),
		fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %s", appRole),
	} {
		_, err := sqlDB.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	owner, err := gorm.Open(gormpostgres.Open(ownerDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	app, err := persistence.NewDatabase(&config.DatabaseConfig{
		Host:            host,
		Port:            portNum,
		User:            appRole,
		Password:        appPassword,
		DBName:          testDBName,
		SSLMode:         "disable",
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxOpenConns,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
		LogLevel:        "silent",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &TestDB{Owner: owner, App: app}
}

// SeedTenant creates an active tenant with one product and one location
func (db *TestDB) SeedTenant(t *testing.T, slug string, stock int64) (*identity.Tenant, *catalog.Product, *catalog.Location) {
	t.Helper()

	tenant, err := identity.NewTenant(slug, "Tenant "+slug)
	require.NoError(t, err)
	require.NoError(t, db.Owner.Create(tenant).Error)

	product, err := catalog.NewProduct(tenant.ID, "SKU-"+slug, "Widget "+slug)
	require.NoError(t, err)
	product.WithBarcode("BC-" + slug)
	product.Quantity = stock
	require.NoError(t, db.Owner.Create(product).Error)

	location, err := catalog.NewLocation(tenant.ID, "Main "+slug, catalog.LocationTypeWarehouse)
	require.NoError(t, err)
	require.NoError(t, db.Owner.Create(location).Error)

	return tenant, product, location
}
