// Command migrate manages the PostgreSQL schema of the stock ledger.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one migrate subcommand. Commands with a nil schema func only touch files.
type command struct {
	args   string
	help   string
	files  func(env *env, args []string) error
	schema func(ctx context.Context, env *env, m *migration.Migrator, args []string) error
}

type env struct {
	log *zap.Logger
	dir string // empty means the embedded migrations
}

var commands = map[string]command{
	"up": {help: "Apply all pending migrations", schema: func(ctx context.Context, _ *env, m *migration.Migrator, _ []string) error {
		return m.Up(ctx)
	}},
	"down": {help: "Roll back every migration", schema: func(ctx context.Context, _ *env, m *migration.Migrator, _ []string) error {
		return m.Down(ctx)
	}},
	"step": {args: "<n>", help: "Apply n migrations, or roll back -n", schema: func(ctx context.Context, _ *env, m *migration.Migrator, args []string) error {
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(ctx, n)
	}},
	"goto": {args: "<version>", help: "Migrate up or down to a version", schema: func(ctx context.Context, _ *env, m *migration.Migrator, args []string) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		if v < 0 {
			return errors.New("version must not be negative")
		}
		return m.To(ctx, uint(v))
	}},
	"force": {args: "<version>", help: "Mark a version applied, clearing a dirty state", schema: func(_ context.Context, _ *env, m *migration.Migrator, args []string) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	}},
	"status": {help: "Show applied, latest and pending versions", schema: func(_ context.Context, e *env, m *migration.Migrator, _ []string) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		e.log.Info("schema status",
			zap.Uint("current", st.Current),
			zap.Uint("latest", st.Latest),
			zap.Int("pending", st.Pending),
			zap.Bool("dirty", st.Dirty),
		)
		return nil
	}},
	"create": {args: "<name> [description]", help: "Write the next numbered migration pair (needs -path)", files: func(e *env, args []string) error {
		if len(args) == 0 {
			return errors.New("migration name required")
		}
		if e.dir == "" {
			return errors.New("create needs -path pointing at the migrations directory")
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(e.dir, args[0], description)
		if err != nil {
			return err
		}
		e.log.Info("migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
		return nil
	}},
	"list": {help: "List the available migrations", files: func(e *env, _ []string) error {
		dir := e.dir
		if dir == "" {
			dir = "migrations"
		}
		names, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}},
}

var order = []string{"up", "down", "step", "goto", "force", "status", "create", "list"}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func main() {
	dir := flag.String("path", "", "migrations directory (default: migrations embedded in this binary)")
	level := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stderr", TimeFormat: "15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(&env{log: log, dir: *dir}, cmd, args[1:]); err != nil {
		log.Error("migrate "+args[0]+" failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(e *env, cmd command, args []string) error {
	if cmd.files != nil {
		return cmd.files(e, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if !migration.Supported(cfg.Database.Driver) {
		return fmt.Errorf("no versioned migrations for driver %q, it builds its schema with database.auto_migrate", cfg.Database.Driver)
	}

	// SIGINT lets the migration in progress finish before exiting
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("reach database %s: %w", cfg.Database.Host, err)
	}

	var fsys fs.FS = migrations.FS
	if e.dir != "" {
		fsys = os.DirFS(e.dir)
	}
	m, err := migration.Open(db, fsys, e.log)
	if err != nil {
		return err
	}
	defer m.Close()

	return cmd.schema(ctx, e, m, args)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(out, "\nCommands:")
	for _, name := range order {
		c := commands[name]
		fmt.Fprintf(out, "  %-28s %s\n", name+" "+c.args, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nThe database is read from LEDGER_DATABASE_* variables or config.yaml, as for the server.")
}
