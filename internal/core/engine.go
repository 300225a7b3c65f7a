package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/keepmind9/slashkit/internal/bot"
	"github.com/keepmind9/slashkit/internal/interactivity"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/internal/metrics"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/keepmind9/slashkit/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Services is what command handlers receive through Context.Services
type Services struct {
	Config *Config
	Router *interactivity.Router
}

// ServicesFrom returns the Services of an invocation, or nil outside an Engine
func ServicesFrom(c *slash.Context) *Services {
	s, _ := c.Services.(*Services)
	return s
}

// Engine is the central orchestrator that connects the Discord transport with
// the command extension and the component session router
type Engine struct {
	config  *Config
	bot     *bot.DiscordBot
	ext     *slash.Extension
	router  *interactivity.Router
	metrics *metrics.Metrics

	unobserve func()

	mu          sync.Mutex
	adminServer *http.Server
	cancel      context.CancelFunc
	stopped     bool
}

// NewEngine builds an engine for config and registers modules into the
// configured scopes: every guild in discord.guild_ids, or the global scope
func NewEngine(config *Config, modules ...*slash.Module) (*Engine, error) {
	routerCfg, err := config.Interactivity.RouterConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid interactivity config: %w", err)
	}

	discordBot := bot.NewDiscordBot(config.Discord.Token, config.Discord.AppID)
	router := interactivity.NewRouter(discordBot, routerCfg)
	ext := slash.New(discordBot, slash.Config{
		Services:          &Services{Config: config, Router: router},
		RegistrationRate:  config.Commands.RegistrationRate,
		RegistrationBurst: config.Commands.RegistrationBurst,
		Concurrency:       config.Commands.Concurrency,
	})

	for _, m := range modules {
		ext.Register(m, config.Discord.GuildIDs...)
	}

	m := metrics.New()
	m.ObserveRouter(router)

	return &Engine{
		config:    config,
		bot:       discordBot,
		ext:       ext,
		router:    router,
		metrics:   m,
		unobserve: m.Observe(ext),
	}, nil
}

// Extension returns the command extension
func (e *Engine) Extension() *slash.Extension { return e.ext }

// Router returns the component session router
func (e *Engine) Router() *interactivity.Router { return e.router }

// Run connects to Discord and serves until ctx is cancelled or Stop is called.
// Commands are registered on every Ready event. Call Stop afterwards to release
// the connection and the admin server.
func (e *Engine) Run(ctx context.Context) error {
	logger.WithFields(logrus.Fields{
		"scopes": len(e.ext.Scopes()),
		"admin":  e.config.AdminEnabled(),
	}).Info("starting-slashkit-engine")

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		cancel()
		return errors.New("engine already stopped")
	}
	e.cancel = cancel
	adminErr := make(chan error, 1)
	if e.config.AdminEnabled() {
		e.adminServer = &http.Server{
			Addr:              e.config.Admin.Listen,
			Handler:           e.AdminHandler(),
			ReadHeaderTimeout: constants.AdminReadHeaderTimeout,
		}
		go func(s *http.Server) { adminErr <- serveAdmin(s) }(e.adminServer)
	}
	e.mu.Unlock()

	err := e.bot.Start(ctx, bot.Handlers{
		OnReady:     e.onReady,
		OnCommand:   e.ext.HandleInteraction,
		OnComponent: e.router.HandleComponent,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start discord bot: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-adminErr:
		if err != nil {
			return fmt.Errorf("admin server failed: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

func (e *Engine) onReady(ctx context.Context) {
	if err := e.ext.Sync(ctx); err != nil {
		logger.WithError(err).Error("slash-command-sync-failed")
		return
	}
	logger.WithField("scopes", len(e.ext.Scopes())).Info("slash-command-sync-completed")
}

// Stop shuts the engine down: running sessions are cancelled and cleaned up,
// in-flight dispatches are awaited, then the connection and the admin server close
func (e *Engine) Stop() error {
	logger.Info("stopping-slashkit-engine")

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	cancel := e.cancel
	server := e.adminServer
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Session cleanup still needs the connection
	e.ext.Wait()

	var errs []error
	if err := e.bot.Stop(); err != nil {
		errs = append(errs, err)
	}

	if server != nil {
		logger.Info("stopping-admin-server")
		ctx, cancel := context.WithTimeout(context.Background(), constants.AdminShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("failed-to-gracefully-stop-admin-server: %v", err)
			server.Close()
		} else {
			logger.Info("admin-server-stopped-gracefully")
		}
	}

	if e.unobserve != nil {
		e.unobserve()
	}

	logger.Info("slashkit-engine-stopped")
	return errors.Join(errs...)
}
