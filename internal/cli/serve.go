package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/armatrix/mcp-gateway"
	"github.com/armatrix/mcp-gateway/internal/httpapi"
	"github.com/armatrix/mcp-gateway/session"
)

func serveCmd() *cobra.Command {
	var (
		host         string
		port         int
		debug        bool
		sessionsKind string
		sessionsDir  string
		redisAddr    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := log.FormatJSON
			if log.IsTerminal() {
				format = log.FormatTerminal
			}
			ctx := log.Context(context.Background(), log.WithFormat(format))
			if debug {
				ctx = log.Context(ctx, log.WithDebug())
				log.Debugf(ctx, "debug logs enabled")
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			log.Printf(ctx, "configuration loaded: %d servers from %s", len(st.Servers()), st.Path())

			sessions, err := openSessions(ctx, sessionsKind, sessionsDir, redisAddr)
			if err != nil {
				return err
			}

			gw := gateway.New(st, gateway.WithSessionStore(sessions))
			defer gw.Close()

			if err := gw.Reconcile(ctx); err != nil {
				return err
			}

			addr := net.JoinHostPort(host, strconv.Itoa(port))
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.New(gw).Handler(ctx),
				ReadHeaderTimeout: 60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				log.Printf(ctx, "HTTP server listening on %q", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			log.Printf(ctx, "shutting down HTTP server at %q", addr)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Printf(ctx, "exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host")
	cmd.Flags().IntVar(&port, "port", 7777, "listen port")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logs")
	cmd.Flags().StringVar(&sessionsKind, "sessions", "memory", "session store backend: memory|file|redis")
	cmd.Flags().StringVar(&sessionsDir, "sessions-dir", "data/sessions", "directory for the file session backend")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for the redis session backend")
	return cmd
}

// openSessions builds the session store selected by --sessions.
func openSessions(ctx context.Context, kind, dir, redisAddr string) (session.Store, error) {
	switch kind {
	case "memory":
		return session.NewMemoryStore(), nil
	case "file":
		return session.NewFileStore(dir)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", redisAddr, err)
		}
		return session.NewRedisStore(client, 0), nil
	default:
		return nil, fmt.Errorf("unknown sessions backend %q (memory, file, redis)", kind)
	}
}
