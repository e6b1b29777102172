package cli

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/internal/config"
	"github.com/zabbix/zabbix-sub156/internal/server"
	"github.com/zabbix/zabbix-sub156/internal/store"
)

func newCmdServe(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Trigger expressions are stored in PostgreSQL when
db_dsn (or ZBXEXPR_DB_DSN) is set and in memory otherwise. Rule files under
rules_path are built and saved at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				root.cfg.Addr = addr
			}
			return runServe(cmd.Context(), root)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// openStore picks the expression store for cfg. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.DBDSN == "" {
		log.Warn("no db_dsn configured, trigger expressions are kept in memory")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := store.RunMigrations(ctx, db, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewSQLStore(db), func() { db.Close() }, nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, log := opts.cfg, opts.log

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	s := server.NewAppServer(st, server.WithLogger(log), server.WithLimits(cfg.Limits))

	rulesPath := cfg.RulesPath
	if rulesPath == "" {
		if fi, err := os.Stat("./rules"); err == nil && fi.IsDir() {
			rulesPath = "./rules"
		}
	}
	if rulesPath != "" {
		if _, _, err := s.LoadRulesFromDir(ctx, rulesPath); err != nil {
			log.Error("failed to load rules", slog.String("path", rulesPath), slog.Any("error", err))
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("zbxexpr server listening", slog.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
