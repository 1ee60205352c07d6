package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/consumer"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/handler"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveConsumer bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the payment command consumer",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveConsumer, "consumer", true, "consume payment commands from RabbitMQ")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// RabbitMQ consumer: payment commands from the periodic driver
	var consumerDone <-chan struct{}
	var mqConsumer *rabbitmq.Consumer
	if serveConsumer {
		mqConsumer, err = rabbitmq.NewConsumer(a.cfg.RabbitURL, a.logger)
		if err != nil {
			return err
		}
		msgs, err := mqConsumer.Consume()
		if err != nil {
			mqConsumer.Close()
			return err
		}
		consumerDone = consumer.NewPaymentCommandConsumer(a.svc, a.logger).Start(ctx, msgs)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(middleware.ContextLogger(a.logger))
	e.Use(middleware.RequestLogger())
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": a.cfg.ServiceName})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	handler.NewPaymentHandler(a.svc).RegisterRoutes(e)

	go func() {
		a.logger.Info("http_server_starting", zap.String("port", a.cfg.ServerPort))
		if err := e.Start(":" + a.cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http_server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http_shutdown_failed", zap.Error(err))
	}

	if mqConsumer != nil {
		mqConsumer.Close()
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
		}
	}
	return nil
}
