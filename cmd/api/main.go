package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"donation-server/internal/adapter/repo"
	"donation-server/internal/http/handlers"
	"donation-server/internal/http/httpapi"
	"donation-server/internal/infra"
	"donation-server/internal/infra/geoip"
	"donation-server/internal/notify"
	auditsvc "donation-server/internal/service/audit"
	"donation-server/internal/service/donation"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if err := infra.Migrate(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	users := repo.NewUserRepository(pool)
	categories := repo.NewCategoryRepository(pool)
	donations := repo.NewDonationRepository(pool)
	auditLog := repo.NewAuditRepository(pool)

	recorder := auditsvc.NewRecorder(auditLog, geoResolver, logger)

	whatsapp := notify.NewWhatsAppClient(notify.WhatsAppOptions{
		PhoneNumberID:    cfg.WhatsAppPhoneNumberID,
		AccessToken:      cfg.WhatsAppAccessToken,
		Template:         cfg.WhatsAppTemplate,
		FallbackTemplate: cfg.WhatsAppFallbackTemplate,
		Logger:           &logger,
	})
	if !whatsapp.HasCredentials() {
		logger.Warn().Msg("whatsapp credentials missing, confirmations will fail until configured")
	}
	mailer := notify.NewEmailSender(notify.EmailOptions{
		APIKey:    cfg.ResendAPIKey,
		From:      cfg.EmailFrom,
		OrgName:   cfg.OrgName,
		OrgEmail:  cfg.OrgEmail,
		OrgPhone:  cfg.OrgPhone,
		PortalURL: cfg.PaymentPortalURL,
		Logger:    &logger,
	})
	if !mailer.HasCredentials() {
		logger.Warn().Msg("resend api key missing, receipt emails will fail until configured")
	}

	intake := donation.NewService(donations, categories, whatsapp, mailer, recorder, logger, cfg.OrgName)

	app := &handlers.App{
		Users:      users,
		Categories: categories,
		Donations:  donations,
		AuditLog:   auditLog,
		Intake:     intake,
		Recorder:   recorder,
		Logger:     logger,
		JWTSecret:  cfg.JWTSecret,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins(),
		RateLimit:       cfg.RateLimitPerMin,
		RateLimitWindow: cfg.RateLimitWindow(),
		DefaultLocale:   "en",
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// Let in-flight receipt emails finish before the pool closes.
	intake.Wait()
	if closer, ok := geoResolver.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	logger.Info().Msg("server stopped")
}
