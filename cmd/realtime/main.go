// Command realtime runs the SofolPay realtime relay: it verifies client
// and backend credentials against gateway-published trust material and
// fans broadcast events out to subscribed websocket sessions.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	relaygin "github.com/sofolpay/realtime/adapters/gin"
	"github.com/sofolpay/realtime/config"
	"github.com/sofolpay/realtime/hub"
	"github.com/sofolpay/realtime/origin"
	"github.com/sofolpay/realtime/ratelimit"
	memorylimiter "github.com/sofolpay/realtime/ratelimit/memory"
	redislimiter "github.com/sofolpay/realtime/ratelimit/redis"
	"github.com/sofolpay/realtime/trust"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	setupLogging(cfg.LogLevel)
	log := logrus.WithField("component", "main")

	store := trust.NewStore(cfg.GatewayURL)

	// First refresh is awaited so connections are not accepted against an
	// empty config; a failure is non-fatal and the timer retries.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	store.Refresh(ctx)
	store.StartRefreshing()
	defer store.Stop()

	guard := origin.NewGuard(cfg.OriginLock, store)
	h := hub.New()
	socket := hub.NewHandler(h, guard, store)
	limiter := buildLimiter(cfg, log)

	router := relaygin.New(relaygin.Deps{
		Trust:   store,
		Guard:   guard,
		Hub:     h,
		Socket:  socket,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("realtime server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown did not complete cleanly")
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown LOG_LEVEL; using info")
		return
	}
	logrus.SetLevel(parsed)
}

// buildLimiter picks the redis limiter when REDIS_URL is set and falls
// back to the in-memory one otherwise.
func buildLimiter(cfg config.Config, log *logrus.Entry) ratelimit.Limiter {
	if cfg.RedisURL == "" {
		return memorylimiter.New(ratelimit.DefaultLimits())
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("invalid REDIS_URL; using in-memory rate limiter")
		return memorylimiter.New(ratelimit.DefaultLimits())
	}
	return redislimiter.New(redis.NewClient(opts), ratelimit.DefaultLimits())
}

func init() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
