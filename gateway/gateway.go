// File: gateway/gateway.go
// Package gateway bridges browsers to the chat server. Each WebSocket
// connection gets its own chat client; the browser speaks JSON envelopes and
// the gateway speaks the binary wire protocol on its behalf.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-chat/api"
	"github.com/momentics/hioload-chat/client"
	"github.com/momentics/hioload-chat/control"
)

// Metric keys maintained by the gateway.
const (
	MetricBridges     = "gateway.bridges"
	MetricOpened      = "gateway.opened"
	MetricDialFailed  = "gateway.dial_failed"
	MetricEnvelopesIn = "gateway.envelopes_in"
)

// Config holds gateway parameters.
type Config struct {
	ChatAddr        string        // chat server host:port
	Client          client.Config // per-bridge chat client settings
	WriteWait       time.Duration // bound on one WebSocket write
	PongWait        time.Duration // idle bound between browser pongs
	MaxEnvelopeSize int64         // largest accepted browser frame
	SendQueue       int           // envelopes buffered per browser
}

// DefaultConfig returns defaults for a gateway in front of chatAddr.
func DefaultConfig(chatAddr string) Config {
	return Config{
		ChatAddr:        chatAddr,
		Client:          client.DefaultConfig(),
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		MaxEnvelopeSize: 4096,
		SendQueue:       64,
	}
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetrics shares a metrics registry with the caller.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(g *Gateway) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithServiceInfo sets what /info reports.
func WithServiceInfo(info api.ServiceInfo) Option {
	return func(g *Gateway) {
		g.info = info
	}
}

// Gateway serves /ws and /info.
type Gateway struct {
	cfg      Config
	log      *log.Logger
	metrics  *control.MetricsRegistry
	info     api.ServiceInfo
	upgrader websocket.Upgrader

	mu      sync.Mutex
	bridges map[string]*bridge
}

// New builds a gateway.
func New(cfg Config, opts ...Option) *Gateway {
	def := DefaultConfig(cfg.ChatAddr)
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.MaxEnvelopeSize <= 0 {
		cfg.MaxEnvelopeSize = def.MaxEnvelopeSize
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = def.SendQueue
	}
	g := &Gateway{
		cfg:     cfg,
		log:     log.New(os.Stderr, "", log.LstdFlags),
		metrics: control.NewMetricsRegistry(),
		info:    api.ServiceInfo{Name: "chatgateway", StartedAt: time.Now()},
		bridges: make(map[string]*bridge),
	}
	for _, o := range opts {
		o(g)
	}
	// Browsers are served from arbitrary origins; the chat server itself
	// does no authentication either.
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return g
}

// Handler returns the HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.serveWS)
	mux.HandleFunc("/info", g.serveInfo)
	return mux
}

// Metrics exposes the gateway counters.
func (g *Gateway) Metrics() *control.MetricsRegistry {
	return g.metrics
}

// Bridges returns the number of live browser connections.
func (g *Gateway) Bridges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bridges)
}

// CloseAll tears down every live bridge.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	live := make([]*bridge, 0, len(g.bridges))
	for _, b := range g.bridges {
		live = append(live, b)
	}
	g.mu.Unlock()
	for _, b := range live {
		b.stop()
	}
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		g.log.Printf("[gateway] upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	g.metrics.Inc(MetricOpened)

	chat, err := client.Dial(r.Context(), g.cfg.ChatAddr, g.cfg.Client)
	if err != nil {
		g.metrics.Inc(MetricDialFailed)
		g.log.Printf("[gateway] dial %s for %s: %v", g.cfg.ChatAddr, r.RemoteAddr, err)
		_ = ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
		_ = ws.WriteJSON(errorEnvelope(err))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "chat server unavailable"))
		ws.Close()
		return
	}

	b := newBridge(g, ws, chat)
	g.track(b, true)
	defer g.track(b, false)
	g.log.Printf("[gateway] bridge %s opened for %s", b.id, r.RemoteAddr)
	b.run()
	g.log.Printf("[gateway] bridge %s closed", b.id)
}

func (g *Gateway) track(b *bridge, live bool) {
	g.mu.Lock()
	if live {
		g.bridges[b.id] = b
	} else {
		delete(g.bridges, b.id)
	}
	n := len(g.bridges)
	g.mu.Unlock()
	g.metrics.Set(MetricBridges, n)
}

type infoResponse struct {
	api.ServiceInfo
	ChatAddr string         `json:"chat_addr"`
	Bridges  int            `json:"bridges"`
	Metrics  map[string]any `json:"metrics"`
}

func (g *Gateway) serveInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(infoResponse{
		ServiceInfo: g.info,
		ChatAddr:    g.cfg.ChatAddr,
		Bridges:     g.Bridges(),
		Metrics:     g.metrics.GetSnapshot(),
	})
}
