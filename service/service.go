package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"boxoffice/booking"
	"boxoffice/cache"
	"boxoffice/db"
	"boxoffice/db/bookings"
	"boxoffice/db/events"
	"boxoffice/db/tickets"
	"boxoffice/http"
	"boxoffice/pubsub"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db         *sqlx.DB
	forwarder  *forwarder.Forwarder
	httpServer *http.Server
}

func New(
	addr string,
	dbConn *sqlx.DB,
	redisClient *redis.Client,
) Service {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)
	queuePublisher := pubsub.NewPublisher(redisPublisher)

	eventsRepo := events.NewPostgresRepository(dbConn)
	ticketsRepo := tickets.NewPostgresRepository(dbConn)
	bookingsRepo := bookings.NewPostgresRepository(dbConn, watermillLogger)

	redisCache := cache.NewCache(redisClient)
	locker := cache.NewLocker(redisClient)

	quota := booking.NewQuotaEnforcer(bookingsRepo, redisCache)
	reserver := booking.NewTicketReserver(ticketsRepo)
	lifecycle := booking.NewLifecycleManager(bookingsRepo, ticketsRepo, redisCache, queuePublisher)
	orchestrator := booking.NewOrchestrator(eventsRepo, quota, reserver, lifecycle, locker, redisCache)

	fwd, err := pubsub.NewForwarder(dbConn, redisPublisher, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(addr, orchestrator, lifecycle)

	return Service{
		db:         dbConn,
		forwarder:  fwd,
		httpServer: httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.forwarder.Run(ctx)
	})

	g.Go(func() error {
		// don't start HTTP before the forwarder (so the service won't be
		// healthy before outbox messages can leave the database)
		<-s.forwarder.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
