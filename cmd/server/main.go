package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/conference-timetable/internal/config"
	"github.com/iliyamo/conference-timetable/internal/database"
	"github.com/iliyamo/conference-timetable/internal/handler"
	"github.com/iliyamo/conference-timetable/internal/middleware"
	"github.com/iliyamo/conference-timetable/internal/queue"
	"github.com/iliyamo/conference-timetable/internal/repository"
	"github.com/iliyamo/conference-timetable/internal/router"
	"github.com/iliyamo/conference-timetable/internal/service"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	repo := repository.NewTimetableRepo(db)
	loc := cfg.Location()
	if cfg.SeedDemo {
		ev, err := repo.SeedDemo(ctx, time.Now().In(loc), loc)
		if err != nil {
			log.Fatalf("seed demo: %v", err)
		}
		log.Printf("seeded demo event id=%d", ev.ID)
	}

	// Redis backs the response cache and the rate limiter; both are
	// skipped when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	var pub handler.ChangePublisher
	var inval handler.CacheInvalidator
	if ci := middleware.NewCacheInvalidator(cacheCfg, rdb); ci != nil {
		inval = ci
	}

	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		pub = service.NewQueuePublisher(qcfg)
		go func() {
			if err := queue.StartTimetableConsumer(ctx, qcfg); err != nil {
				log.Printf("timetable consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	h := handler.NewTimetableHandler(repo, pub, inval, loc)
	router.RegisterRoutes(e, db)
	router.RegisterTimetable(e, h, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(cacheCfg, rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == config.DriverMySQL {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if err := database.ApplySchema(db, database.DriverMySQL); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
	return database.OpenSQLite(cfg.SQLitePath)
}
