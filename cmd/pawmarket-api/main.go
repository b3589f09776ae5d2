// Entry point: loads config, wires services, starts the HTTP server and the
// background sweeper and side-effect bus.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawmarket/internal/config"
	httptransport "pawmarket/internal/http"
	"pawmarket/internal/infra"
	"pawmarket/internal/logging"
	"pawmarket/internal/maps"
	"pawmarket/internal/modules/presence"
	"pawmarket/internal/modules/pricing"
	"pawmarket/internal/modules/track"
	"pawmarket/internal/modules/walk"
	"pawmarket/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PAW_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.NewFirebaseClients(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	profiles := notify.NewProfileClient(cfg.Notify.ProfileBaseURL)
	bus := notify.NewBus(logger,
		notify.NewPushNotifier(fb.Messaging, profiles),
		notify.NewEmailNotifier(cfg.Notify.EmailEndpoint, profiles),
		notify.NewSMSNotifier(cfg.Notify.SMSEndpoint, profiles),
		notify.NewAdminNotifier(cfg.Notify.AdminEndpoint),
	)

	pricingSvc := pricing.NewService(cfg.Pricing.RatePer30Min, cfg.Pricing.Currency)

	var geocoder walk.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		geocoder = g
	}

	walkStore := walk.NewStore(dbPool)
	walkSvc := walk.NewService(walkStore, pricingSvc, geocoder, bus)

	trackStore := track.NewStore(dbPool)
	trackSvc := track.NewService(trackStore)

	presenceStore := presence.NewStore(redisClient)
	presenceSvc := presence.NewService(presenceStore, cfg.Presence.OnlineTTL, cfg.Presence.SweepInterval, logger)

	router := httptransport.NewRouter(httptransport.ServerDeps{
		Walk:     walkSvc,
		Track:    trackSvc,
		Presence: presenceSvc,
		Verifier: fb.Verifier(),
		Logger:   logger,
	})

	go bus.Run(ctx)
	go presenceSvc.RunOfflineSweeper(ctx)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
