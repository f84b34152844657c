package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fxcopier-backend/internal/config"
	httpdelivery "fxcopier-backend/internal/delivery/http"
	"fxcopier-backend/internal/delivery/websocket"
	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/infrastructure/db"
	"fxcopier-backend/internal/infrastructure/fcm"
	"fxcopier-backend/internal/infrastructure/fxapi"
	"fxcopier-backend/internal/repository"
	"fxcopier-backend/internal/usecase"
)

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envSettings := domain.CopierSettings{
		NearMissPips:           cfg.NearMissPips,
		VIPTrailDistance:       cfg.VIPTrailDistance,
		TP1ThresholdPercent:    cfg.TP1ThresholdPercent,
		MaxConcurrentPerSymbol: cfg.MaxConcurrentPerSymbol,
		MinLot:                 cfg.MinLot,
		TightenOffset:          cfg.TightenOffset,
	}

	// 1. Persistence: Postgres when DATABASE_URL is set, JSON file otherwise.
	var persister repository.StatePersister
	var settingsRepo domain.SettingsRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfigFromEnv())
		if err != nil {
			log.Fatalf("database pool: %v", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		persister = repository.NewPostgresPersister(pool)
		settingsRepo = repository.NewPostgresSettingsRepository(pool)
		log.Println("State persistence: postgres")
	} else {
		persister = repository.NewFilePersister(cfg.StateFile)
		settingsRepo = repository.NewMemorySettingsRepository(envSettings)
		log.Println("State persistence: file", cfg.StateFile)
	}

	store := repository.NewTradeStateStore(persister)
	tradeLog := repository.NewCSVTradeLog(cfg.TradeLogCSV)
	tokenRepo := repository.NewTokenRepository()

	// 2. Broker client.
	broker := fxapi.NewClient(cfg.FXAPIBaseURL, cfg.FXAPIToken, cfg.MaxRetries, cfg.HTTPTimeout)

	// 3. Copier service. Stored settings win over env defaults.
	settings := envSettings
	if stored, err := settingsRepo.LoadSettings(); err != nil {
		log.Printf("Settings load failed, using env defaults: %v", err)
	} else {
		settings = *stored
	}
	copier := usecase.NewCopierService(broker, store, tradeLog, settings)

	// 4. Push notifications.
	pusher, err := fcm.NewClient()
	if err != nil {
		log.Printf("FCM init failed, push disabled: %v", err)
	} else if pusher.IsEnabled() {
		copier.SetNotifier(usecase.NewNotificationService(pusher, tokenRepo))
	}

	// 5. Watchdog loop.
	go copier.RunWatchdog(ctx, cfg.WatchdogInterval)

	// 6. Delivery.
	messageHandler := httpdelivery.NewMessageHandler(copier)
	tradeHandler := httpdelivery.NewTradeHandler(store)
	settingsHandler := httpdelivery.NewSettingsHandler(copier, settingsRepo)
	tokenHandler := httpdelivery.NewTokenHandler(tokenRepo)
	wsHandler := websocket.NewHandler(store, 2*time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", messageHandler.HandleMessage)
	mux.HandleFunc("/api/trades/active", tradeHandler.GetActive)
	mux.HandleFunc("/api/trades/history", tradeHandler.GetHistory)
	mux.HandleFunc("/api/trades/stats", tradeHandler.GetStats)
	mux.HandleFunc("/api/copier/settings", settingsHandler.HandleSettings)
	mux.HandleFunc("/api/tokens", tokenHandler.HandleTokens)
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Server executing on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received. Stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	// Final flush so a restart resumes from the latest state.
	if err := store.Flush(); err != nil {
		log.Printf("Final state save error: %v", err)
	}
	log.Println("Stopped.")
}
