package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/config"
	"github.com/Granzh/deadlines-telegram-bot/internal/scheduler"
	"github.com/Granzh/deadlines-telegram-bot/internal/service"
	"github.com/Granzh/deadlines-telegram-bot/internal/store"
	"github.com/Granzh/deadlines-telegram-bot/internal/telegram"
)

// App owns every long-lived component: the bot, the store, the scheduler
// and the health server. The scheduler handle is a plain field here, not a
// package global: whoever needs liveness asks the App.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
	started time.Time
}

// New validates external dependencies that can fail fast (the bot token).
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	// The client timeout bounds every API call, including scheduler
	// dispatches, so one unreachable recipient cannot stall a tick.
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: cfg.SendTimeout})
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot, started: time.Now().UTC()}, nil
}

// Run wires everything together and blocks until a shutdown signal.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting deadlines-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("tick", a.cfg.TickInterval),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	deadlines := service.NewDeadlineService(repo, a.log)
	notifs := service.NewNotificationService(repo, a.log, a.cfg.ReminderWindow)
	a.router = telegram.NewRouter(a.bot, a.log, deadlines, notifs,
		a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)

	a.sched = scheduler.New(repo, notifs, a.router, a.log, a.cfg.TickInterval)
	if err := a.sched.Start(ctx); err != nil {
		_ = repo.Close()
		return err
	}

	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      a.healthMux(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) shutdown() {
	a.bot.StopReceivingUpdates()

	// Give an in-flight tick a chance to finish before the store closes.
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a.sched.Stop(stopCtx)
	cancel()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	cancel()

	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// healthMux serves /healthz with scheduler liveness for monitoring and
// container health checks.
func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		type health struct {
			Status   string `json:"status"`
			Uptime   string `json:"uptime"`
			LastTick string `json:"last_tick,omitempty"`
		}
		h := health{Status: "ok", Uptime: time.Since(a.started).Round(time.Second).String()}

		if last, ok := a.sched.LastTick(); ok {
			h.LastTick = last.Format(time.RFC3339)
			// A tick this stale means the scheduler is wedged.
			if time.Since(last) > 3*a.cfg.TickInterval {
				h.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if h.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	})
	return mux
}
