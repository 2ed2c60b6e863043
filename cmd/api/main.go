package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/email"
	"snaphomz.org/internal/httpapi"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/notification"
	"snaphomz.org/internal/obs"
	"snaphomz.org/internal/property"
	"snaphomz.org/internal/push"
	"snaphomz.org/internal/realtime"
	"snaphomz.org/internal/subscription"
	"snaphomz.org/internal/zipforms"
)

var version = "0.3.1"

func main() {
	obs.Init()
	logf := obs.Logger().Printf

	secret := os.Getenv("SNAPHOMZ_JWT_SECRET")
	if secret == "" {
		log.Fatal("SNAPHOMZ_JWT_SECRET is required")
	}

	dsn := os.Getenv("SNAPHOMZ_PG_DSN")
	if dsn == "" {
		log.Fatal("SNAPHOMZ_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	codec := auth.NewCodec(secret)

	userStore := identity.NewPGUserStore(db)
	agentStore := identity.NewPGAgentStore(db)
	resolver := auth.NewResolver(userStore, agentStore)

	// Push is optional: without credentials notifications stay in-app only.
	var pusher notification.Pusher
	if appID := os.Getenv("SNAPHOMZ_ONESIGNAL_APP_ID"); appID != "" {
		pusher = push.New(appID, os.Getenv("SNAPHOMZ_ONESIGNAL_API_KEY"))
	}

	gateway := realtime.NewGateway(
		auth.NewSocketAuthenticator(codec, resolver),
		realtime.WithAllowedOrigins(splitEnvList("SNAPHOMZ_ALLOWED_ORIGINS")),
		realtime.WithLogf(logf),
	)

	notifications := notification.NewService(
		notification.NewPGStore(db), userStore, agentStore, pusher, gateway, logf)

	var mailer identity.Mailer
	if host := os.Getenv("SNAPHOMZ_SMTP_HOST"); host != "" {
		sender, err := email.NewSender(email.Config{
			Host:     host,
			Port:     envInt("SNAPHOMZ_SMTP_PORT", 587),
			Username: os.Getenv("SNAPHOMZ_SMTP_USERNAME"),
			Password: os.Getenv("SNAPHOMZ_SMTP_PASSWORD"),
			From:     os.Getenv("SNAPHOMZ_SMTP_FROM"),
		})
		if err != nil {
			log.Fatalf("smtp sender: %v", err)
		}
		mailer = sender
	}

	identitySvc := identity.NewService(
		userStore, agentStore, codec, notifications, mailer, auth.HashPassword, logf)
	propertySvc := property.NewService(property.NewPGStore(db), notifications, logf)
	subscriptionSvc := subscription.NewService(subscription.NewPGStore(db), notifications, logf)

	var zip *zipforms.Client
	if base := os.Getenv("SNAPHOMZ_ZIPFORM_URL"); base != "" {
		zip = zipforms.New(base, os.Getenv("SNAPHOMZ_ZIPFORM_SHARED_KEY"))
	}

	api := httpapi.New(httpapi.Services{
		Codec:         codec,
		Resolver:      resolver,
		Identity:      identitySvc,
		Notifications: notifications,
		Properties:    propertySvc,
		Subscriptions: subscriptionSvc,
		Zip:           zip,
		Gateway:       gateway,
	}, httpapi.ReadyProbe{DB: db}, httpapi.Config{
		Version:        version,
		AllowedOrigins: splitEnvList("SNAPHOMZ_ALLOWED_ORIGINS"),
	})

	addr := os.Getenv("SNAPHOMZ_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting snaphomz-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

func splitEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
