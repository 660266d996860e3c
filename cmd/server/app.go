package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/zimbra-connector/addressbook"
	"github.com/jrsteele09/zimbra-connector/auth"
	"github.com/jrsteele09/zimbra-connector/cache"
	"github.com/jrsteele09/zimbra-connector/connector"
	"github.com/jrsteele09/zimbra-connector/dispatch"
	"github.com/jrsteele09/zimbra-connector/internal/config"
	"github.com/jrsteele09/zimbra-connector/internal/logging"
	"github.com/jrsteele09/zimbra-connector/search"
	"github.com/jrsteele09/zimbra-connector/secret"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/store/sqlitestore"
	"github.com/jrsteele09/zimbra-connector/transport"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const cacheCleanupInterval = time.Minute

// app holds the wired connector components.
type app struct {
	db          *sqlitestore.SQLiteStore
	redis       *redis.Client
	stop        context.CancelFunc
	sessions    *sessions.Store
	service     *connector.Service
	addressBook *addressbook.AddressBook
	search      *search.Provider
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	dbPath := c.GetDatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("[newApp] creating data dir: %w", err)
	}
	key, err := secret.LoadKey(c.GetSecretKey(), filepath.Dir(dbPath))
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}
	codec, err := secret.NewAEADCodec(key)
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}
	db, err := sqlitestore.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}

	a := &app{db: db}
	a.sessions = sessions.NewStore(db, codec, c.GetDefaultContactsCacheTTL())

	client := transport.NewHTTPClient(c.GetHTTPTimeout(), transport.WithUserAgent(c.GetUserAgent()+" "+c.GetUserAgentVersion()))
	caller := dispatch.NewCaller(client, zimbra.UserAgent{Name: c.GetUserAgent(), Version: c.GetUserAgentVersion()})
	engine, err := auth.NewEngine(caller, a.sessions,
		auth.WithSafetyMargin(c.GetTokenSafetyMargin()),
		auth.WithTwoFactorWindow(c.GetTwoFactorWindow()))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[newApp] %w", err)
	}
	a.service = connector.NewService(engine, dispatch.NewDispatcher(caller, a.sessions, engine), a.sessions,
		connector.WithEventWindow(c.GetEventWindow()))

	resultCache, err := a.resultCache(ctx, c.GetRedisAddr())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.addressBook = addressbook.New(a.service, a.sessions, resultCache)
	a.search = search.NewProvider(a.service, a.sessions, time.Local)
	return a, nil
}

// resultCache prefers Redis so replicas share memoized results.
func (a *app) resultCache(ctx context.Context, redisAddr string) (cache.ResultCache, error) {
	if redisAddr != "" {
		client, err := cache.Dial(ctx, redisAddr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		log.Info().Str("addr", redisAddr).Msg("using redis result cache")
		return cache.NewRedis(client), nil
	}

	memory := cache.NewInMemory()
	cleanupCtx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go func() {
		ticker := time.NewTicker(cacheCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				memory.Cleanup()
			}
		}
	}()
	return memory, nil
}

func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("closing config store")
	}
}

func adminConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-config",
		Short: "Manage installation settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Store installation values (admin_instance_url, client_id, client_secret, pre_auth_key, ...)",
		Long: `Store installation values in the config store.

client_secret and pre_auth_key are encrypted at rest. Unknown keys are ignored.

Examples:
  zimbra-connector admin-config set admin_instance_url=https://mail.example.com
  zimbra-connector admin-config set client_id=abc client_secret=xyz use_popup=1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}

			c, err := config.New()
			if err != nil {
				return err
			}
			logging.Setup(c.GetLogLevel(), c.GetEnv())
			a, err := newApp(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.SetAdminConfig(cmd.Context(), values); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d value(s)\n", len(values))
			return nil
		},
	})
	return cmd
}

func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", arg)
		}
		values[key] = value
	}
	return values, nil
}
