package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"boxoffice/pkg"
	"boxoffice/service"
	"boxoffice/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider := tracing.ConfigureTraceProvider(os.Getenv("JAEGER_ENDPOINT"))
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown trace provider")
		}
	}()

	dbConn, err := sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	redisClient := pkg.NewRedisClient(os.Getenv("REDIS_ADDR"))
	defer redisClient.Close()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	svc := service.New(addr, dbConn, redisClient)
	if err := svc.Run(ctx); err != nil {
		panic(err)
	}
}
