package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockDatabase wraps a sqlmock connection the way Open wraps a real one
func mockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return &Database{DB: db, sql: sqlDB}, mock
}

func TestDialector(t *testing.T) {
	cases := map[string]string{
		config.DriverPostgres: "postgres",
		"":                    "postgres",
		config.DriverMySQL:    "mysql",
		config.DriverSQLite:   "sqlite",
	}
	for driver, dialect := range cases {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Path: ":memory:"})
		require.NoError(t, err, driver)
		assert.Equal(t, dialect, d.Name(), driver)
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.EqualError(t, err, `unsupported database driver "oracle"`)
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(context.Background(), &config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 25,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate())
	for _, m := range models.AllModels() {
		assert.True(t, db.DB.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, db.DB.Migrator().HasIndex(&models.PeriodModel{}, "idx_period_running_slot"))
	assert.True(t, db.DB.Migrator().HasIndex(&models.StockCardEntryModel{}, "idx_entry_reference"))

	assert.Equal(t, 1, db.Pool().MaxOpenConnections, "sqlite ignores the configured pool size")
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen_UnreachableSQLite(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: config.DriverSQLite, Path: "/nonexistent/dir/ledger.db"})
	assert.ErrorContains(t, err, "sqlite database")
}

func TestSizePool(t *testing.T) {
	db, _ := mockDatabase(t)

	sizePool(db.sql, &config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		MaxOpenConns:    12,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	assert.Equal(t, 12, db.Pool().MaxOpenConnections)
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := mockDatabase(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(assert.AnError)

	assert.NoError(t, db.Ping(context.Background()))
	assert.ErrorIs(t, db.Ping(context.Background()), assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_PingHonoursDeadline(t *testing.T) {
	db, mock := mockDatabase(t)
	mock.ExpectPing().WillDelayFor(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, db.Ping(ctx))
}

func TestDatabase_Close(t *testing.T) {
	db, mock := mockDatabase(t)
	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
