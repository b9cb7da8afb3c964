package ws

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/metrics"
)

// maxFrameSize bounds a single inbound frame.
const maxFrameSize = 64 * 1024

// Server upgrades HTTP requests to websocket connections and runs one
// read loop per connection. Events within a connection are processed in
// arrival order; handler I/O only ever stalls that one connection.
type Server struct {
	router   *Router
	tokens   *auth.Tokens
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the websocket server.
func NewServer(router *Router, tokens *auth.Tokens, logger zerolog.Logger) *Server {
	return &Server{
		router: router,
		tokens: tokens,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native apps connecting from anywhere
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS is the websocket endpoint. Verification is attempted once at
// connect time and is non-fatal: an unverified connection is accepted
// so the register/login handshake can happen over it.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity := s.identityFromRequest(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	client := NewClient(conn, r.RemoteAddr, identity)

	metrics.ConnectionsTotal.WithLabelValues(strconv.FormatBool(client.Verified())).Inc()
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	if client.Verified() {
		s.router.Registry().Bind(identity.ID, client)
	}

	log := s.logger.With().
		Str("conn_id", client.ConnID).
		Str("remote_addr", client.Remote).
		Logger()
	if client.Verified() {
		log = log.With().Int64("user_id", identity.ID).Logger()
	}
	log.Info().Bool("verified", client.Verified()).Msg("client connected")

	defer func() {
		// Unbind before close so fan-out stops targeting this
		// connection; guarded against evicting a newer session.
		if client.Verified() {
			s.router.Registry().Unbind(identity.ID, client)
		}
		client.Close()
		log.Info().Msg("client disconnected")
	}()

	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		s.router.Dispatch(ctx, client, raw)
	}
}

// identityFromRequest extracts and verifies the bearer credential from
// the token query parameter or the Authorization header. Any failure
// yields an unverified connection; no distinction is surfaced.
func (s *Server) identityFromRequest(r *http.Request) *auth.Identity {
	token := r.URL.Query().Get("token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		return nil
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}
	return &identity
}
