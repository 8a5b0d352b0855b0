package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/httpapi"
	"github.com/DoyleJ11/slot-draft-backend/internal/session"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
	"github.com/DoyleJ11/slot-draft-backend/internal/ws"
)

const (
	releaseVersion = "0.1.0"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	log.SetFlags(0)

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// calendarConfig loads the calendar settings and lets --calendar-timeout
// bound the whole HTTP exchange as well as each insert.
func calendarConfig(cfg *Config) (calendar.Config, error) {
	calCfg, err := calendar.LoadConfig()
	if err != nil {
		return calendar.Config{}, err
	}
	calCfg.Timeout = cfg.calendarTimeout
	return calCfg, nil
}

func serve(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	calCfg, err := calendarConfig(cfg)
	if err != nil {
		return err
	}
	loc, err := calCfg.Location()
	if err != nil {
		return err
	}
	dir, err := directory.Load(cfg.names)
	if err != nil {
		return err
	}
	mode, err := slot.ParseWeekMode(cfg.weekMode)
	if err != nil {
		return err
	}
	if cfg.admin == "" {
		logger.Warn("no admin configured; admin actions are disabled")
	} else if !dir.Contains(cfg.admin) {
		logger.Warn("admin is not in the name directory and cannot connect", zap.String("admin", cfg.admin))
	}

	s := session.New(ctx, session.Config{
		Directory:         dir,
		Calendar:          calendar.NewGoogle(calCfg, logger.Named("calendar")),
		CalendarIDs:       calCfg.CalendarIDs,
		Admin:             cfg.admin,
		WeekMode:          mode,
		Location:          loc,
		CommitConcurrency: cfg.commitConcurrency,
		InsertTimeout:     cfg.calendarTimeout,
		Logger:            logger.Named("session"),
	})

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Session:   s,
			Directory: dir,
			Admin:     cfg.admin,
			PublicURL: cfg.publicURL,
			WS:        ws.Options{OriginPatterns: cfg.origins},
			Log:       logger.Named("http"),
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Stringer("week_mode", mode),
			zap.Int("names", len(dir.Names())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Closing the session closes every live connection.
		s.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
