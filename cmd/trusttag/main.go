package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/adapters/events"
	"github.com/layer-3/trusttag/adapters/siwe"
	"github.com/layer-3/trusttag/adapters/store"
	"github.com/layer-3/trusttag/adapters/tokenizer"
	"github.com/layer-3/trusttag/adapters/worldid"
	"github.com/layer-3/trusttag/internal/config"
	"github.com/layer-3/trusttag/internal/logger"
	"github.com/layer-3/trusttag/ports"
	"github.com/layer-3/trusttag/service"
	transport "github.com/layer-3/trusttag/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(os.Getenv("TRUSTTAG_CONFIG"))
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	lg := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Nonce and token stores, plus the event publisher
	var (
		nonces    ports.NonceStore
		tokens    ports.Store
		publisher message.Publisher
	)
	wmLogger := logger.NewWatermillAdapter(lg)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			lg.Fatal("failed to parse redis url", "err", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			lg.Fatal("failed to connect to redis", "err", err)
		}

		redisStore := store.NewRedisStore(redisClient)
		nonces, tokens = redisStore, redisStore

		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			lg.Fatal("failed to create redis publisher", "err", err)
		}
		lg.Info("using redis", "addr", opts.Addr)
	} else {
		memStore := store.NewMemoryStore()
		nonces, tokens = memStore, memStore
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		lg.Warn("redis not configured, nonces are local to this instance")
	}
	defer publisher.Close()

	// SIWE verification
	verifierOpts := []siwe.Option{
		siwe.WithDomains(cfg.Siwe.Domains...),
		siwe.WithChainID(cfg.Siwe.ChainID),
	}
	if cfg.Siwe.RPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.Siwe.RPCURL)
		if err != nil {
			lg.Fatal("failed to dial rpc", "url", cfg.Siwe.RPCURL, "err", err)
		}
		defer client.Close()
		verifierOpts = append(verifierOpts, siwe.WithContractChecker(siwe.NewContractSignatureChecker(client)))
	}
	verifier := siwe.NewVerifier(verifierOpts...)

	signKey, err := tokenizer.LoadSigningKey(cfg.Auth.SigningKeyFile)
	if err != nil {
		lg.Fatal("failed to load signing key", "err", err)
	}
	if cfg.Auth.SigningKeyFile == "" {
		lg.Warn("no signing key configured, sessions will not survive a restart")
	}

	authService := service.NewAuthService(
		nonces,
		tokens,
		verifier,
		tokenizer.NewJWTTokenizer(signKey, cfg.Auth.Issuer),
		events.NewWatermillPublisher(publisher),
		lg,
		service.Config{NonceTTL: cfg.Auth.NonceTTL, SessionTTL: cfg.Auth.SessionTTL},
	)

	var worldID ports.WorldIDVerifier
	if cfg.WorldID.AppID != "" {
		client, err := worldid.NewClient(cfg.WorldID.AppID, worldid.WithBaseURL(cfg.WorldID.BaseURL))
		if err != nil {
			lg.Fatal("failed to create world id client", "err", err)
		}
		worldID = client
		lg.Info("world id verification enabled", "app_id", cfg.WorldID.AppID)
	}

	router := transport.SetupRouter(authService, transport.RouterConfig{
		Cookie: transport.CookieConfig{
			Name:           cfg.Auth.CookieName,
			Secure:         cfg.IsProduction(),
			ClearOnFailure: cfg.Auth.ClearNonceOnFailure,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WorldID:        worldID,
	}, lg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("server running", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("failed to start server", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", "err", err)
	}
}
