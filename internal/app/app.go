package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/bootstrap"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/cmd"
	coreconfig "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/config"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	coretelegram "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram/router"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/bot"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/fetch"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/gradio"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/history"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/session"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/tryon"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/pkg/metrics"
)

// Carrier adapts the core configuration to the cmd runner contract.
type Carrier struct {
	Cfg *coreconfig.Config
}

// CoreConfig returns the embedded core configuration.
func (c *Carrier) CoreConfig() *coreconfig.Config { return c.Cfg }

// LoadConfig reads and normalizes the configuration file.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &Carrier{Cfg: cfg}, nil
}

// App owns the long-lived application state: configuration, the optional
// history database, and the metrics listener.
type App struct {
	cfg *coreconfig.Config
	db  *sqlx.DB

	metricsSrv *http.Server
}

// Bootstrap initializes logging, storage, and the optional database, and
// returns the application ready to produce Telegram run options.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()

	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	metrics.Init()

	return &App{cfg: cfg, db: res.DB}, nil
}

// TelegramRunOptions assembles the registry, routes, and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg

	store := session.NewMemoryStore()
	dl := fetch.New(time.Duration(cfg.TryOn.DownloadTimeoutSeconds) * time.Second)
	client := gradio.NewClient(cfg.TryOn.Endpoint, time.Duration(cfg.TryOn.CallTimeoutSeconds)*time.Second)
	invoker := tryon.New(client, dl)

	var recorder history.Recorder = history.NopRecorder{}
	if a.db != nil {
		recorder = history.NewRecorder(a.db)
	}

	flow := bot.NewFlow(store, dl, invoker, recorder, cfg.Storage.WorkDir)
	handlers := bot.NewHandlers(flow, nil)
	if a.db != nil {
		handlers.WithHistory(a.db)
	}

	reg := coretelegram.NewRegistry()
	handlers.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
	})
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Photo:              handlers.OnPhoto,
		UnknownText:        handlers.OnText,
		UnexpectedDocument: handlers.OnDocument,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,

		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			handlers.Bind(rt.Bot)
			a.startMetrics()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.stopMetrics(ctx)
			if a.db != nil {
				if err := a.db.Close(); err != nil {
					logger.DB.Warn("database close failed",
						slog.String("event", "close"),
						slog.String("err", err.Error()),
					)
				}
			}
			return nil
		},
	}, nil
}

func (a *App) startMetrics() {
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: listen, Handler: mux}

	go func() {
		logger.L.With("component", "metrics").Info("metrics listener started",
			slog.String("event", "listen"),
			slog.String("addr", listen),
		)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.With("component", "metrics").Error("metrics listener failed",
				slog.String("event", "listen"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

func (a *App) stopMetrics(ctx context.Context) {
	if a.metricsSrv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.L.With("component", "metrics").Warn("metrics shutdown failed",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
	}
}
