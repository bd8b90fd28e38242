// Package migration applies and authors the SQL schema migrations of the ledger database.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported reports whether versioned migrations exist for driver.
// Other drivers build their schema with GORM AutoMigrate.
func Supported(driver string) bool {
	return driver == config.DriverPostgres
}

// Migrator applies the versioned PostgreSQL schema
type Migrator struct {
	m      *migrate.Migrate
	source source.Driver
	logger *zap.Logger
}

// Status describes where the database stands relative to the migration source
type Status struct {
	Current uint // 0 when nothing was applied
	Latest  uint
	Pending int
	Dirty   bool
}

// Open builds a Migrator reading migrations from fsys, which is either the
// embedded migrations.FS or os.DirFS of a checkout.
func Open(db *sql.DB, fsys fs.FS, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLog{logger.Sugar()}

	return &Migrator{m: m, source: src, logger: logger}, nil
}

// migrateLog routes golang-migrate's progress lines to zap at debug
type migrateLog struct {
	log *zap.SugaredLogger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLog) Verbose() bool {
	return l.log.Desugar().Core().Enabled(zapcore.DebugLevel)
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	return m.apply(ctx, "up", m.m.Up)
}

// Down rolls every migration back
func (m *Migrator) Down(ctx context.Context) error {
	return m.apply(ctx, "down", m.m.Down)
}

// Steps applies n migrations forward, or -n backward when n is negative
func (m *Migrator) Steps(ctx context.Context, n int) error {
	return m.apply(ctx, fmt.Sprintf("step %d", n), func() error { return m.m.Steps(n) })
}

// To migrates up or down to version
func (m *Migrator) To(ctx context.Context, version uint) error {
	return m.apply(ctx, fmt.Sprintf("to %d", version), func() error { return m.m.Migrate(version) })
}

// apply runs fn, asking golang-migrate to stop after the current migration once
// ctx is cancelled. A database already at the target is not an error.
func (m *Migrator) apply(ctx context.Context, op string, fn func() error) error {
	stop := context.AfterFunc(ctx, func() {
		select {
		case m.m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	from, _, err := m.version()
	if err != nil {
		return err
	}

	err = fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("schema already current", zap.String("op", op), zap.Uint("version", from))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	to, dirty, err := m.version()
	if err != nil {
		return err
	}
	m.logger.Info("schema migrated",
		zap.String("op", op),
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Bool("dirty", dirty),
	)
	return ctx.Err()
}

func (m *Migrator) version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}

// Status reports the applied version against the newest available migration
func (m *Migrator) Status() (Status, error) {
	current, dirty, err := m.version()
	if err != nil {
		return Status{}, err
	}
	st := Status{Current: current, Dirty: dirty}

	v, err := m.source.First()
	for err == nil {
		st.Latest = v
		if v > current {
			st.Pending++
		}
		v, err = m.source.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Status{}, fmt.Errorf("read migration source: %w", err)
	}
	return st, nil
}

// Force records version as applied and clean without running anything. It is
// the way out of a dirty state after a migration failed halfway.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.logger.Warn("schema version forced", zap.Int("version", version))
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
