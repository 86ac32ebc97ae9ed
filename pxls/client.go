package pxls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

type ClientSettings struct {
	// required. http or https; anything else is a permanent connect error.
	SiteBase *url.URL
	// required
	EventHandler EventHandler
	// fixed delay between the end of one connection and the next attempt.
	// retry is unconditional and unbounded.
	ReconnectTimeout   time.Duration
	WsHandshakeTimeout time.Duration
	// overrides the tuned default client when set
	HttpClient *http.Client
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		ReconnectTimeout:   60 * time.Second,
		WsHandshakeTimeout: 5 * time.Second,
	}
}

// Client is one session against a canvas site: bulk state over http,
// incremental updates over the ws stream, and the derived buffer cache
// in between. Construct with NewClient, drive with Run.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId ulid.ULID
	log        LogFunction

	siteBase     *url.URL
	eventHandler EventHandler
	httpClient   *http.Client

	settings *ClientSettings

	cache clientCache

	stateMutex sync.Mutex
	connected  bool
}

func NewClientWithDefaults(
	ctx context.Context,
	siteBase *url.URL,
	eventHandler EventHandler,
) (*Client, error) {
	settings := DefaultClientSettings()
	settings.SiteBase = siteBase
	settings.EventHandler = eventHandler
	return NewClient(ctx, settings)
}

// NewClient validates the settings and creates a session.
// Missing required fields fail here, not at first use.
func NewClient(ctx context.Context, settings *ClientSettings) (*Client, error) {
	if settings.SiteBase == nil {
		return nil, ErrMissingSite
	}
	if settings.EventHandler == nil {
		return nil, ErrMissingEventHandler
	}
	httpClient := settings.HttpClient
	if httpClient == nil {
		httpClient = defaultClient()
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	instanceId := ulid.Make()
	return &Client{
		ctx:          cancelCtx,
		cancel:       cancel,
		instanceId:   instanceId,
		log:          LogFn(LogLevelDebug, fmt.Sprintf("pxls[%s]", instanceId)),
		siteBase:     settings.SiteBase,
		eventHandler: settings.EventHandler,
		httpClient:   httpClient,
		settings:     settings,
	}, nil
}

func (self *Client) InstanceId() ulid.ULID {
	return self.instanceId
}

func (self *Client) SiteBase() *url.URL {
	return self.siteBase
}

// Connected is whether the stream is currently up. Cached buffers remain
// readable either way.
func (self *Client) Connected() bool {
	self.stateMutex.Lock()
	defer self.stateMutex.Unlock()
	return self.connected
}

func (self *Client) setConnected(connected bool) {
	self.stateMutex.Lock()
	defer self.stateMutex.Unlock()
	self.connected = connected
}

// Cancel ends the session. Run returns after the current connection drops.
func (self *Client) Cancel() {
	self.cancel()
}

// Run drives the connect/stream/retry loop until the context ends or a
// permanent configuration error is found. Transport failures are never
// fatal; after each stream end the loop sleeps the reconnect timeout and
// connects again.
func (self *Client) Run(ctx context.Context) error {
	for {
		err := self.connect(ctx)
		if err != nil {
			var connectErr *ConnectError
			if errors.As(err, &connectErr) && connectErr.Permanent() {
				return err
			}
			glog.Infof("[pxls][%s]connection ended: %s\n", self.instanceId, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-self.ctx.Done():
			return self.ctx.Err()
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

// streamUrl maps the site base to the streaming endpoint:
// http becomes ws, https becomes wss.
func (self *Client) streamUrl() (*url.URL, error) {
	wsUrl := self.siteBase.JoinPath("ws")
	switch wsUrl.Scheme {
	case "http":
		wsUrl.Scheme = "ws"
	case "https":
		wsUrl.Scheme = "wss"
	default:
		return nil, &ConnectError{
			Kind:   ConnectErrorInvalidSiteScheme,
			Scheme: wsUrl.Scheme,
		}
	}
	return wsUrl, nil
}

// connect runs one connection: handshake, cache invalidation, board info
// pre-fetch, ready notification, then the stream until it ends.
func (self *Client) connect(ctx context.Context) error {
	wsUrl, err := self.streamUrl()
	if err != nil {
		return err
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: self.settings.WsHandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, wsUrl.String(), nil)
	if err != nil {
		return &ConnectError{Kind: ConnectErrorWebsocketConnectFailed, Err: err}
	}
	defer ws.Close()

	// the cache clears on reconnect rather than on disconnect so that
	// data collected before a drop stays usable while offline
	self.cache.invalidateAll()
	self.setConnected(true)
	ready := false
	defer func() {
		self.setConnected(false)
		if ready {
			self.eventHandler.HandleDisconnect(self)
		}
	}()

	glog.V(1).Infof("[pxls][%s]connected to %s\n", self.instanceId, wsUrl)

	// board info is the index space for every other buffer.
	// without it this connection is useless; abort to the retry delay.
	if _, err := self.Info(ctx); err != nil {
		return &ConnectError{Kind: ConnectErrorInfoFailed, Err: err}
	}
	self.eventHandler.HandleReady(self)
	ready = true

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			glog.V(1).Infof("[pxls][%s]stream ended: %s\n", self.instanceId, err)
			return nil
		}
		if messageType != websocket.TextMessage {
			continue
		}
		self.dispatchMessage(ctx, data)
	}
}
