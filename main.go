package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookit/admin"
	"bookit/auth"
	"bookit/booking"
	"bookit/catalog"
	"bookit/config"
	"bookit/db"
	"bookit/logging"
	"bookit/media"
	"bookit/middleware"
	"bookit/mq"
	"bookit/profile"
	"bookit/ratelim"
	"bookit/rdx"
	"bookit/roles"
	"bookit/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := db.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		cancel()
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	if err := store.CreateIndexes(connectCtx); err != nil {
		logger.Warn("index creation failed", zap.Error(err))
	}

	resolver := roles.NewResolver(cfg.AdminBootstrapUIDs, store.Roles, logger)
	hub := booking.NewHub(resolver, cfg.CORSOrigins, logger)

	// redis is optional: without it listings are uncached and booking
	// events only reach sockets of this instance.
	var (
		cache    catalog.Cache
		notifier booking.Notifier = hub
	)
	conn, err := rdx.Connect(connectCtx, cfg.RedisAddr, cfg.RedisPassword)
	cancel()
	if err != nil {
		logger.Warn("redis unavailable; running without cache and event relay", zap.Error(err))
	} else {
		cache = rdx.NewCache(conn, cfg.CacheTTL)
		notifier = mq.NewEmitter(conn, logger)
		go mq.Run(ctx, conn, logger, hub.Deliver)
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	authenticator := auth.NewAuthenticator(verifier, store.Users, logger)

	bookingSvc := booking.NewService(store.Bookings, store.Services, resolver, notifier, logger)
	images := media.NewImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.PublicBaseURL, logger)

	rateLimiter := ratelim.NewRateLimiter(30, 10)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rateLimiter.Cleanup(3 * time.Minute)
			}
		}
	}()

	router := httprouter.New()
	routes.Register(router, routes.Deps{
		MW:          middleware.New(authenticator, resolver, logger),
		RateLimiter: rateLimiter,
		Auth:        auth.NewHandler(store.Users, issuer, logger),
		Catalog:     catalog.NewHandler(catalog.New(store.Services, store.Categories, cache, logger), logger),
		Bookings:    booking.NewHandler(bookingSvc, booking.NewReceipts(cfg.JWTSecret), logger),
		Hub:         hub,
		Profiles:    profile.NewHandler(store.Profiles, logger),
		Admin:       admin.NewHandler(store.Users, store.Profiles, store.Roles, resolver, logger),
		Images:      images,
		MediaURL:    cfg.MediaURL,
	})

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.Logging(logger)(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Port), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received; shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if conn != nil {
		conn.Close()
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}
