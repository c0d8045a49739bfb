package main

import (
	"context"
	"easyforms/forms-api/app"
	"easyforms/forms-api/config"
	"easyforms/forms-api/internal/service"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	gin.SetMode(gin.ReleaseMode)
	pflag.Parse()

	if err := config.Setup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.MakeLogger(v.GetString("app.log_level")); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	d, closeDeps, err := app.NewDeps(ctx)
	if err != nil {
		return err
	}
	defer closeDeps()

	d.Dispatcher.StartWorkerPool()
	defer d.Dispatcher.Stop(shutdownTimeout)

	scheduler, err := service.NewScheduler(v.GetString("cleanup.schedule"), d.DB)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	router, stopRouter := app.NewRouter(d)
	defer stopRouter()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", v.GetInt("host.port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr), zap.Bool("tls", v.GetBool("host.ssl.enabled")))

		if v.GetBool("host.ssl.enabled") {
			errCh <- srv.ListenAndServeTLS(v.GetString("host.ssl.certificate_path"), v.GetString("host.ssl.certificate_key_path"))
			return
		}

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
