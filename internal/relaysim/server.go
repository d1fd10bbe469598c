// Package relaysim is an in-memory relay: a websocket endpoint speaking the
// pub/sub protocol with stored-event replay, fan-out to subscribers, and
// optional token auth. It exists for development and integration testing of
// the pool; it is not a production relay.
package relaysim

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relaymesh/relaypool-go/internal/relayauth"
	"github.com/relaymesh/relaypool-go/pkg/protocol"
)

// Config holds configuration for the relay simulator
type Config struct {
	// TokenAuth, when set, makes the relay demand a valid token before
	// accepting subscribes or publishes
	TokenAuth *relayauth.TokenAuth

	// ReplayLimit caps how many stored events are replayed per subscribe
	ReplayLimit int

	// Logger receives relay diagnostics. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = 100
	}
}

// Server is the relay. It implements http.Handler; mount it wherever the
// websocket endpoint should live.
type Server struct {
	config   *Config
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	stored  []*protocol.Event
	clients map[*client]struct{}
}

// client is one connected subscriber/publisher.
type client struct {
	ws *websocket.Conn

	// writeMu serializes frame writes; reads happen on a single goroutine.
	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[string][]protocol.Filter
	authed bool
}

// NewServer creates a relay simulator. A nil config gets defaults.
func NewServer(config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	configCopy := *config
	configCopy.SetDefaults()

	return &Server{
		config:  &configCopy,
		log:     configCopy.Logger,
		clients: make(map[*client]struct{}),
	}
}

// StoredCount returns how many events the relay holds.
func (s *Server) StoredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

// ClientCount returns how many clients are connected.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	cl := &client{ws: ws, subs: make(map[string][]protocol.Filter)}

	// A valid bearer token on the dial authenticates up front.
	if s.config.TokenAuth != nil {
		if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
			if _, err := s.config.TokenAuth.ValidateToken(token, ""); err == nil {
				cl.setAuthed()
			}
		}
	}

	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, cl)
		s.mu.Unlock()
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			s.send(cl, &protocol.RelayMessage{Type: protocol.MessageNotice, Notice: "unreadable message: " + err.Error()})
			continue
		}
		s.handle(cl, msg)
	}
}

func (s *Server) handle(cl *client, msg *protocol.ClientMessage) {
	switch msg.Type {
	case protocol.MessageSubscribe:
		if !s.authorized(cl) {
			s.challenge(cl)
			return
		}
		cl.mu.Lock()
		cl.subs[msg.SubscriptionID] = msg.Filters
		cl.mu.Unlock()
		s.replay(cl, msg.SubscriptionID, msg.Filters)

	case protocol.MessageUnsubscribe:
		cl.mu.Lock()
		delete(cl.subs, msg.SubscriptionID)
		cl.mu.Unlock()

	case protocol.MessagePublish:
		if !s.authorized(cl) {
			s.send(cl, &protocol.RelayMessage{
				Type:    protocol.MessageOK,
				EventID: msg.Event.ID,
				Reason:  "auth required",
			})
			s.challenge(cl)
			return
		}
		s.mu.Lock()
		s.stored = append(s.stored, msg.Event)
		s.mu.Unlock()
		s.send(cl, &protocol.RelayMessage{
			Type:     protocol.MessageOK,
			EventID:  msg.Event.ID,
			Accepted: true,
		})
		s.broadcast(msg.Event)

	case protocol.MessageAuth:
		if s.config.TokenAuth == nil {
			return
		}
		if _, err := s.config.TokenAuth.ValidateToken(msg.Token, ""); err != nil {
			s.send(cl, &protocol.RelayMessage{Type: protocol.MessageNotice, Notice: "auth rejected"})
			return
		}
		cl.setAuthed()
		s.send(cl, &protocol.RelayMessage{Type: protocol.MessageNotice, Notice: "auth accepted"})
	}
}

// replay sends stored events matching the filters, then the end-of-stored
// marker.
func (s *Server) replay(cl *client, subscriptionID string, filters []protocol.Filter) {
	s.mu.Lock()
	matched := make([]*protocol.Event, 0)
	for _, ev := range s.stored {
		if protocol.MatchesAny(filters, ev) {
			matched = append(matched, ev)
			if len(matched) >= s.config.ReplayLimit {
				break
			}
		}
	}
	s.mu.Unlock()

	for _, ev := range matched {
		s.send(cl, &protocol.RelayMessage{
			Type:           protocol.MessageEvent,
			SubscriptionID: subscriptionID,
			Event:          ev,
		})
	}
	s.send(cl, &protocol.RelayMessage{Type: protocol.MessageEndOfStored, SubscriptionID: subscriptionID})
}

// broadcast delivers the event to every subscription it matches, across all
// connected clients.
func (s *Server) broadcast(ev *protocol.Event) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for cl := range s.clients {
		clients = append(clients, cl)
	}
	s.mu.Unlock()

	for _, cl := range clients {
		cl.mu.Lock()
		targets := make([]string, 0, len(cl.subs))
		for id, filters := range cl.subs {
			if protocol.MatchesAny(filters, ev) {
				targets = append(targets, id)
			}
		}
		cl.mu.Unlock()

		for _, id := range targets {
			s.send(cl, &protocol.RelayMessage{
				Type:           protocol.MessageEvent,
				SubscriptionID: id,
				Event:          ev,
			})
		}
	}
}

func (s *Server) authorized(cl *client) bool {
	return s.config.TokenAuth == nil || cl.isAuthed()
}

func (s *Server) challenge(cl *client) {
	s.send(cl, &protocol.RelayMessage{
		Type:      protocol.MessageAuthChallenge,
		Challenge: "auth-required",
	})
}

func (s *Server) send(cl *client, msg *protocol.RelayMessage) {
	data, err := msg.Encode()
	if err != nil {
		s.log.Warn().Err(err).Msg("encode relay message")
		return
	}
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	if err := cl.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug().Err(err).Msg("write to client failed")
	}
}

func (cl *client) setAuthed() {
	cl.mu.Lock()
	cl.authed = true
	cl.mu.Unlock()
}

func (cl *client) isAuthed() bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.authed
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return "", false
}
