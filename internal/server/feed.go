package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/abhisek/docquiz/internal/session"
)

const (
	feedWriteWait = 10 * time.Second
	feedReadWait  = 5 * time.Minute
	feedBuffer    = 16
)

// Feed actions (client to server).
const (
	actionAnswer   = "answer"
	actionNext     = "next"
	actionPrevious = "previous"
	actionSubmit   = "submit"
	actionPing     = "ping"
)

// Feed events (server to client).
const (
	eventState = "state"
	eventError = "error"
	eventPong  = "pong"
)

type feedRequest struct {
	Action string `json:"action"`
	Option *int   `json:"option,omitempty"`
}

type feedMessage struct {
	Event string       `json:"event"`
	State *sessionView `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}

func stateMessage(st session.State) feedMessage {
	v := viewOf(st)
	return feedMessage{Event: eventState, State: &v}
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// hub fans session snapshots out to feed subscribers. A slow subscriber
// loses its oldest pending snapshot, never blocks the session.
type hub struct {
	mu     sync.Mutex
	subs   map[chan session.State]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan session.State]struct{})}
}

func (h *hub) subscribe() chan session.State {
	ch := make(chan session.State, feedBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(ch chan session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) publish(st session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// sessionFeed handles GET /api/session/ws. It streams a snapshot on every
// session change and accepts navigation actions.
func (s *Server) sessionFeed(upgrader websocket.Upgrader) gin.HandlerFunc {
	log := s.log.With().Str("component", "ws_handler").Logger()

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		sub := s.hub.subscribe()
		defer s.hub.unsubscribe(sub)

		out := make(chan feedMessage, feedBuffer)
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			writeFeed(conn, sub, out)
		}()

		send := func(m feedMessage) bool {
			select {
			case out <- m:
				return true
			case <-stopped:
				return false
			}
		}

		if ctrl := s.current(); ctrl != nil {
			send(stateMessage(ctrl.State()))
		} else {
			send(feedMessage{Event: eventError, Error: errNoSession.Error()})
		}

		log.Debug().Msg("feed client connected")
		for {
			var req feedRequest
			conn.SetReadDeadline(time.Now().Add(feedReadWait))
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("Unexpected close")
				} else {
					log.Debug().Msg("Connection closed")
				}
				break
			}
			if reply, ok := s.handleFeedAction(c, req); ok {
				if !send(reply) {
					break
				}
			}
		}
		close(out)
		<-stopped
	}
}

// handleFeedAction applies req to the live session. Successful changes
// reach the client through the hub; only errors and pongs are replied.
func (s *Server) handleFeedAction(c *gin.Context, req feedRequest) (feedMessage, bool) {
	if req.Action == actionPing {
		return feedMessage{Event: eventPong}, true
	}
	ctrl := s.current()
	if ctrl == nil {
		return feedMessage{Event: eventError, Error: errNoSession.Error()}, true
	}

	var err error
	switch req.Action {
	case actionAnswer:
		if req.Option == nil {
			return feedMessage{Event: eventError, Error: "option is required"}, true
		}
		_, err = ctrl.SelectAnswer(c.Request.Context(), *req.Option)
	case actionNext:
		_, err = ctrl.GoNext()
	case actionPrevious:
		_, err = ctrl.GoPrevious()
	case actionSubmit:
		_, err = ctrl.Submit(c.Request.Context())
	default:
		return feedMessage{Event: eventError, Error: "unknown action: " + req.Action}, true
	}
	if err != nil && rejected(err) {
		return feedMessage{Event: eventError, Error: err.Error()}, true
	}
	return feedMessage{}, false
}

// writeFeed is the connection's only writer. It returns when out is
// closed, the hub drops the subscription or a write fails.
func writeFeed(conn *websocket.Conn, sub <-chan session.State, out <-chan feedMessage) {
	write := func(m feedMessage) error {
		conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		return conn.WriteJSON(m)
	}
	for {
		select {
		case st, ok := <-sub:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(feedWriteWait))
				return
			}
			if err := write(stateMessage(st)); err != nil {
				return
			}
		case m, ok := <-out:
			if !ok {
				return
			}
			if err := write(m); err != nil {
				return
			}
		}
	}
}
