// ABOUTME: Transport delivering chat messages over a websocket with an HTTP fallback
// ABOUTME: Owns the socket lifecycle state, credentials snapshot and single-flight send slot

package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/2389/kitchat/internal/credentials"
	"github.com/2389/kitchat/internal/events"
)

// Default timings.
const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultSendTimeout    = 60 * time.Second
	DefaultRequestTimeout = 60 * time.Second

	dialTimeout = 10 * time.Second

	// maxFrameSize bounds inbound websocket frames and fallback bodies.
	maxFrameSize = 1 << 20
)

// EventStateChanged is published on events.TopicTransport with a State payload.
const EventStateChanged = "transport.state_changed"

// State is the socket lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
)

// Path names the delivery path that produced a reply.
type Path string

const (
	PathSocket   Path = "socket"
	PathFallback Path = "fallback"
)

// Config holds transport settings.
type Config struct {
	// BaseURL is the backend's HTTP base, e.g. http://localhost:8000.
	BaseURL string
	// ReconnectDelay is the wait after the socket closes before redialing.
	ReconnectDelay time.Duration
	// MaxReconnectDelay, when larger than ReconnectDelay, turns the fixed
	// delay into a doubling backoff capped at this value.
	MaxReconnectDelay time.Duration
	// SendTimeout bounds the wait for a reply on the socket path.
	SendTimeout time.Duration
	// RequestTimeout bounds a fallback HTTP request.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Request is one outbound user message.
type Request struct {
	Message string
	// ConversationID is the current correlator; empty means none yet.
	ConversationID string
	// Credentials are attached to this message. A zero pair means the
	// transport's current pair.
	Credentials credentials.Pair
}

// Reply is the assistant's answer to a Request.
type Reply struct {
	Text string
	// ConversationID is the correlator supplied by the server, if any.
	ConversationID string
	Timestamp      time.Time
	Path           Path
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the client used for the fallback path.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = c
	}
}

// WithDialOptions sets the websocket dial options.
func WithDialOptions(opts *websocket.DialOptions) Option {
	return func(t *Transport) {
		t.dialOpts = opts
	}
}

// Transport delivers messages and receives replies. It keeps at most one
// websocket open and allows at most one send in flight.
type Transport struct {
	cfg        Config
	wsURL      string
	httpClient *http.Client
	dialOpts   *websocket.DialOptions
	publisher  events.Publisher
	logger     *slog.Logger

	mu    sync.Mutex
	pair  credentials.Pair
	state State
	conn  *websocket.Conn

	// sending is true while a Send is outstanding; pending receives the
	// reply frame when that send went over the socket.
	sending bool
	pending chan inboundFrame

	// wake nudges the supervisor out of an idle wait or reconnect delay.
	wake chan struct{}
}

// New creates a Transport. Call Run to start the connection supervisor.
func New(cfg Config, publisher events.Publisher, logger *slog.Logger, opts ...Option) (*Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	wsURL, err := WebSocketURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		cfg:       cfg,
		wsURL:     wsURL,
		publisher: publisher,
		logger:    logger.With("component", "transport"),
		state:     StateDisconnected,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return t, nil
}

// State returns the current socket state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Busy reports whether a send is awaiting its reply.
func (t *Transport) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending
}

// Update installs a new credential pair. If the pair changed, any open
// socket is dropped and the supervisor reconnects immediately when the new
// pair is complete, or stays disconnected when it is not.
func (t *Transport) Update(pair credentials.Pair) {
	t.mu.Lock()
	if pair == t.pair {
		t.mu.Unlock()
		return
	}
	t.pair = pair
	// Detach the live socket so sends from here on use the fallback path
	// until the supervisor has redialed with the new pair.
	conn := t.conn
	t.conn = nil
	detached := conn != nil && t.state != StateDisconnected
	if detached {
		t.state = StateDisconnected
	}
	t.mu.Unlock()

	t.logger.Debug("credentials updated", "credentials", pair)
	if detached {
		t.publishState(StateDisconnected)
	}
	if conn != nil {
		go conn.Close(websocket.StatusNormalClosure, "credentials changed")
	}
	t.nudge()
}

// Connect asks the supervisor to dial now. It is a no-op while a socket is
// open or a dial is in progress.
func (t *Transport) Connect() {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()

	if state != StateDisconnected {
		return
	}
	t.nudge()
}

func (t *Transport) nudge() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// setState records a transition and publishes it. Caller must not hold mu.
func (t *Transport) setState(state State, conn *websocket.Conn) {
	t.mu.Lock()
	changed := t.state != state
	t.state = state
	t.conn = conn
	t.mu.Unlock()

	if changed {
		t.publishState(state)
	}
}

func (t *Transport) publishState(state State) {
	t.logger.Debug("state changed", "state", state)
	if t.publisher != nil {
		t.publisher.Publish(events.TopicTransport, events.NewEvent(events.TopicTransport, EventStateChanged, state), "")
	}
}
