package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// Factory builds a fully wired Bot for one run. The app layer supplies it so
// the manager stays free of platform and cache wiring.
type Factory func(params domain.RunParams, creds domain.Credentials) (*Bot, error)

// Manager holds at most one bot at a time and serializes start/stop requests
// from the control plane. Starting while a bot is running stops the old one
// first, so operators can re-submit parameters without an explicit stop.
type Manager struct {
	factory Factory
	logger  *slog.Logger

	mu  sync.Mutex
	bot *Bot
}

// NewManager creates a Manager that builds bots through factory.
func NewManager(factory Factory, logger *slog.Logger) *Manager {
	return &Manager{
		factory: factory,
		logger:  logger.With(slog.String("component", "manager")),
	}
}

// Start validates params, tears down any running bot, and starts a new one.
func (m *Manager) Start(ctx context.Context, params domain.RunParams, creds domain.Credentials) error {
	if err := params.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bot != nil && m.bot.State() == StateRunning {
		m.logger.Info("restarting with new parameters", slog.String("symbol", params.Symbol))
		if err := m.bot.Stop(ctx); err != nil {
			return err
		}
	}

	b, err := m.factory(params, creds)
	if err != nil {
		return err
	}
	if err := b.Start(ctx); err != nil {
		return err
	}
	m.bot = b
	return nil
}

// Stop stops the running bot. Stopping when nothing runs returns
// domain.ErrBotNotRunning so the control plane can report it.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bot == nil || m.bot.State() != StateRunning {
		return domain.ErrBotNotRunning
	}
	return m.bot.Stop(ctx)
}

// Status reports the current bot's status; ok is false when no bot has been
// started yet.
func (m *Manager) Status() (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bot == nil {
		return Status{}, false
	}
	return m.bot.Status(), true
}

// Close stops any running bot. Used on application shutdown.
func (m *Manager) Close(ctx context.Context) {
	if err := m.Stop(ctx); err != nil && err != domain.ErrBotNotRunning {
		m.logger.Warn("stop on shutdown failed", slog.String("error", err.Error()))
	}
}
