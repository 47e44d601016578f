package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/httpapi"
	"jogger.org/internal/mail"
	"jogger.org/internal/obs"
	"jogger.org/internal/policy"
	"jogger.org/internal/scope"
	"jogger.org/internal/store/memory"
	"jogger.org/internal/store/pg"
	"jogger.org/internal/trip"
)

var version = "0.3.0"

// stores is the persistence surface the API wires against. Both backends
// provide it.
type stores interface {
	Scopes() scope.Store
	Accounts() account.Store
	Trips() trip.Store
	Delegations() delegation.Store
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("JOGGER_COMMIT"))

	var (
		st stores
		db *sql.DB
	)
	if dsn := os.Getenv("JOGGER_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pgStore.ProvisionScopes(ctx, scope.Catalog()); err != nil {
			cancel()
			log.Fatalf("provision scopes: %v", err)
		}
		cancel()
		st = pgStore
		db = pgStore.DB()
	} else {
		log.Print("JOGGER_PG_DSN not set, using in-memory store")
		st = memory.New()
	}

	notifier := mail.NewLogNotifier()

	accounts, err := account.NewService(st.Accounts(), notifier)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}
	trips, err := trip.NewService(st.Trips())
	if err != nil {
		log.Fatalf("trip service: %v", err)
	}
	delegations, err := delegation.NewService(st.Delegations(), st.Scopes(), st.Accounts(),
		delegation.WithNotifier(notifier))
	if err != nil {
		log.Fatalf("delegation service: %v", err)
	}
	pol, err := policy.New(delegations)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, accounts, trips, delegations, pol)

	addr := os.Getenv("JOGGER_ADDR")
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

	log.Printf("Starting jogger-api %s on %s", version, srv.Addr)

	// graceful shutdown
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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
