package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadline-platform/internal/config"
	"leadline-platform/internal/conversation"
	"leadline-platform/internal/leads"
	"leadline-platform/internal/metrics"
	"leadline-platform/internal/notify"
	"leadline-platform/pkg/logger"
	"leadline-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	archive := leads.NewPostgresRepo(db)
	availability := notify.NewRedisAvailabilityStore(rdb)
	recorder := metrics.NewRecorder()

	// Delivery channels: real providers when configured, log-only otherwise.
	// Validate() already rejects the log-only fallback in production.
	var sms notify.SMSChannel
	if cfg.Twilio.Configured() {
		sms = &notify.TwilioSMS{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.FromNumber,
		}
	} else {
		log.Warn("twilio not configured, sms goes to the log channel")
		sms = &notify.LogSMS{Log: log}
	}

	var email notify.EmailChannel
	if cfg.SMTP.Configured() {
		var auth smtp.Auth
		if cfg.SMTP.Username != "" {
			auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
		}
		email = &notify.SMTPEmail{Addr: cfg.SMTP.Addr(), From: cfg.SMTP.From, Auth: auth}
	} else {
		log.Warn("smtp not configured, email goes to the log channel")
		email = &notify.LogEmail{Log: log}
	}

	notifySvc := notify.NewService(sms, email, notify.Config{
		OperatorNumber: cfg.Business.OperatorNumber,
		OperatorEmail:  cfg.Business.OperatorEmail,
		MaxAttempts:    cfg.Notify.MaxAttempts,
		BackoffBase:    cfg.Notify.BackoffBase,
	})
	dispatcher := notify.NewDispatcher(notifySvc, log, 0)

	registry := conversation.NewRegistry(cfg.Session.IdleTimeout, cfg.Session.TerminalGrace)
	go registry.Run(logger.With(rootCtx, log), time.Minute)

	// Hourly health snapshots feed the /v1/analytics?type=system trend.
	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-t.C:
				recorder.RecordSystemSnapshot()
			}
		}
	}()

	convSvc := conversation.NewService(registry, dispatcher, recorder, archive, conversation.BusinessIdentity{
		Name:             cfg.Business.Name,
		AssistantName:    cfg.Business.AssistantName,
		OwnerName:        cfg.Business.OwnerName,
		RecordingBaseURL: cfg.Business.RecordingBaseURL,
	})

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:          cfg,
		db:           db,
		conversation: convSvc,
		registry:     registry,
		availability: availability,
		recorder:     recorder,
		archive:      archive,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Let in-flight lead notifications finish; losing one loses a customer.
	dispatcher.Wait()
}
