package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mc855/authenticator/internal/auth"
	"github.com/mc855/authenticator/internal/config"
	"github.com/mc855/authenticator/internal/httpapi"
	"github.com/mc855/authenticator/internal/mail"
	"github.com/mc855/authenticator/internal/notify"
	"github.com/mc855/authenticator/internal/obs"
	"github.com/mc855/authenticator/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	env, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load configuration")
	}

	store, err := pg.Open(env.DSN(), env.DBMaxOpen, env.DBMaxIdle, env.DBConnMaxLife)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer store.Close()

	opts := []auth.ServiceOption{
		auth.WithAccessTTL(env.AccessTokenTTL),
		auth.WithMailTTL(env.MailTokenTTL),
		auth.WithServerDNS(env.ServerDNS),
	}

	sender, err := mail.NewSender(mail.Config{
		Host:     env.MailServer,
		Port:     env.MailPort,
		Username: env.MailUsername,
		Password: env.MailPassword,
		From:     env.MailFrom,
	})
	if err != nil {
		logger.WithError(err).Fatal("build mail sender")
	}
	opts = append(opts, auth.WithMailer(sender))

	if env.SNSUserTopicARN != "" {
		publisher, err := notify.NewSNSPublisher(context.Background(), env.AWSRegion)
		if err != nil {
			logger.WithError(err).Fatal("build sns publisher")
		}
		opts = append(opts, auth.WithPublisher(publisher, env.SNSUserTopicARN))
	}

	svc, err := auth.NewService(store, env.AccessTokenSecret, env.MailTokenSecret, opts...)
	if err != nil {
		logger.WithError(err).Fatal("build auth service")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.EnsureBuiltins(startCtx); err != nil {
		logger.WithError(err).Warn("builtin role check failed")
	}
	cancelStart()

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              env.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.WithField("addr", srv.Addr).Infof("starting authenticator %s", version)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}
