// ABOUTME: Composition root wiring storage, credentials, health monitors, transport and session
// ABOUTME: Runs the observer loops that propagate credential and health changes

package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/2389/kitchat/internal/config"
	"github.com/2389/kitchat/internal/conversation"
	"github.com/2389/kitchat/internal/credentials"
	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/health"
	"github.com/2389/kitchat/internal/store"
	"github.com/2389/kitchat/internal/transport"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	records        store.RecordStore
	transportOpts  []transport.Option
	disableWatcher bool
}

// WithRecordStore uses the given store instead of opening the SQLite file
// named in the config. The file watcher is disabled.
func WithRecordStore(rs store.RecordStore) Option {
	return func(o *options) {
		o.records = rs
		o.disableWatcher = true
	}
}

// WithTransportOptions passes options through to the transport.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, opts...)
	}
}

// Client owns every kitchat component for one process.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger

	bus       *events.Broadcaster
	records   store.RecordStore
	ownsStore bool
	watch     bool

	creds     *credentials.Store
	kit       *health.Monitor
	claude    *health.Monitor
	transport *transport.Transport
	session   *conversation.Session

	applyMu   sync.Mutex
	observeMu sync.Mutex
}

// New builds a Client and loads the stored credentials. Nothing touches the
// network until Run, CheckHealth or Send is called.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "client"),
		bus:    events.NewBroadcaster(logger),
	}

	if o.records != nil {
		c.records = o.records
	} else {
		s, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening settings store: %w", err)
		}
		c.records = s
		c.ownsStore = true
		c.watch = cfg.Storage.Watch && !o.disableWatcher
	}

	c.creds = credentials.NewStore(c.records, c.bus, logger)
	if _, err := c.creds.Load(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	c.kit = health.NewMonitor(health.Kit, cfg.API.BaseURL, cfg.Health.ProbeTimeout, c.bus, logger)
	c.claude = health.NewMonitor(health.Claude, cfg.API.BaseURL, cfg.Health.ProbeTimeout, c.bus, logger)

	tr, err := transport.New(transport.Config{
		BaseURL:           cfg.API.BaseURL,
		ReconnectDelay:    cfg.Transport.ReconnectDelay,
		MaxReconnectDelay: cfg.Transport.MaxReconnectDelay,
		SendTimeout:       cfg.Transport.SendTimeout,
		RequestTimeout:    cfg.Transport.RequestTimeout,
	}, c.bus, logger, o.transportOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating transport: %w", err)
	}
	c.transport = tr
	tr.Update(c.creds.Snapshot())

	c.session = conversation.NewSession(tr, c.creds, c.bus, logger)
	return c, nil
}

// Run starts the transport supervisor and the observer loops and blocks
// until ctx is cancelled or one of them fails.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	credCh, _ := c.bus.Subscribe(ctx, events.TopicCredentials)
	healthCh, _ := c.bus.Subscribe(ctx, events.TopicHealth)

	c.applyCredentials(ctx)

	g.Go(func() error {
		return c.transport.Run(ctx)
	})

	g.Go(func() error {
		for range credCh {
			c.applyCredentials(ctx)
		}
		return nil
	})

	g.Go(func() error {
		for range healthCh {
			c.observeHealth()
		}
		return nil
	})

	if c.watch {
		g.Go(func() error {
			return credentials.Watch(ctx, c.cfg.Storage.Path, c.creds, c.logger)
		})
	}

	c.logger.Info("client started", "api_url", c.cfg.API.BaseURL)
	err := g.Wait()
	c.logger.Info("client stopped")
	return err
}

// applyCredentials pushes the latest stored pair to every consumer. Events
// only signal a change; the pair is always re-read from the store.
func (c *Client) applyCredentials(ctx context.Context) {
	pair := c.syncTransport()
	c.kit.Update(ctx, pair.Kit, pair.Kit != "")
	c.claude.Update(ctx, pair.Claude, pair.Claude != "")
	c.observeHealth()
}

// syncTransport hands the latest stored pair to the transport. Snapshot and
// Update happen under applyMu so an older pair never replaces a newer one.
func (c *Client) syncTransport() credentials.Pair {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	pair := c.creds.Snapshot()
	c.transport.Update(pair)
	return pair
}

// observeHealth feeds the latest snapshots to the session. Both followers
// call it, so reads and the update happen under one lock.
func (c *Client) observeHealth() {
	c.observeMu.Lock()
	defer c.observeMu.Unlock()
	c.session.ObserveHealth(c.kit.Snapshot(), c.claude.Snapshot())
}

// SettingsRequired reports whether either credential is missing, in which
// case the settings dialog should be shown.
func (c *Client) SettingsRequired() bool {
	return !c.creds.Snapshot().Complete()
}

// Credentials returns the current credential pair.
func (c *Client) Credentials() credentials.Pair {
	return c.creds.Snapshot()
}

// SaveSettings persists a new credential pair. The transport uses it as soon
// as SaveSettings returns; monitors pick it up through the credentials topic.
func (c *Client) SaveSettings(ctx context.Context, pair credentials.Pair) error {
	if err := c.creds.Save(ctx, pair); err != nil {
		return err
	}
	c.syncTransport()
	return nil
}

// ClearSettings removes the stored credentials.
func (c *Client) ClearSettings(ctx context.Context) error {
	if err := c.creds.Clear(ctx); err != nil {
		return err
	}
	c.syncTransport()
	return nil
}

// RetryHealth re-probes every dependency whose last check failed.
func (c *Client) RetryHealth(ctx context.Context) {
	for _, m := range []*health.Monitor{c.kit, c.claude} {
		if m.Snapshot().State == health.StateError {
			m.Retry(ctx)
		}
	}
}

// CheckHealth probes both dependencies with the current credentials and
// waits for the results. It does not require Run.
func (c *Client) CheckHealth(ctx context.Context) (kit, claude health.Snapshot) {
	pair := c.creds.Snapshot()
	kitCh := c.kit.Update(ctx, pair.Kit, pair.Kit != "")
	claudeCh := c.claude.Update(ctx, pair.Claude, pair.Claude != "")
	return settle(ctx, c.kit, kitCh), settle(ctx, c.claude, claudeCh)
}

func settle(ctx context.Context, m *health.Monitor, ch <-chan health.Snapshot) health.Snapshot {
	if ch == nil {
		return m.Snapshot()
	}
	select {
	case snap, ok := <-ch:
		if ok {
			return snap
		}
	case <-ctx.Done():
	}
	return m.Snapshot()
}

// Health returns the latest snapshots without probing.
func (c *Client) Health() (kit, claude health.Snapshot) {
	return c.kit.Snapshot(), c.claude.Snapshot()
}

// Send submits a message to the conversation.
func (c *Client) Send(ctx context.Context, text string) (<-chan conversation.Result, error) {
	return c.session.Submit(ctx, text)
}

// NewConversation forgets the current conversation and starts an empty one.
func (c *Client) NewConversation() error {
	if err := c.session.Reset(); err != nil {
		return err
	}
	c.observeHealth()
	return nil
}

// Entries returns a copy of the conversation timeline.
func (c *Client) Entries() []conversation.Entry {
	return c.session.Timeline().Entries()
}

// Presence returns the notice for the current dependency health.
func (c *Client) Presence() conversation.Presence {
	return c.session.Presence()
}

// Pending reports whether a send is awaiting its reply.
func (c *Client) Pending() bool {
	return c.session.Pending()
}

// Session returns the conversation session.
func (c *Client) Session() *conversation.Session {
	return c.session
}

// Transport returns the message transport.
func (c *Client) Transport() *transport.Transport {
	return c.transport
}

// Events returns the change-notification bus.
func (c *Client) Events() *events.Broadcaster {
	return c.bus
}

// Close releases the store (when the client opened it) and the event bus.
func (c *Client) Close() error {
	c.bus.Close()
	if c.ownsStore && c.records != nil {
		return c.records.Close()
	}
	return nil
}
