package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/civicdesk/grievance/internal/auth"
)

// Close reasons sent when the handshake credential is rejected.
const (
	ReasonMissingCredential = "missing credential"
	ReasonInvalidCredential = "invalid credential"
	ReasonWrongRole         = "wrong role"
	ReasonExpired           = "credential expired"
)

const defaultWriteTimeout = 5 * time.Second

// Endpoint upgrades citizen connections and registers them with the hub.
type Endpoint struct {
	hub          *Hub
	verifier     auth.Verifier
	origins      []string
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewEndpoint builds the websocket endpoint. origins feeds the Origin check; empty means same host only.
func NewEndpoint(hub *Hub, verifier auth.Verifier, origins []string, logger zerolog.Logger) *Endpoint {
	return &Endpoint{
		hub:          hub,
		verifier:     verifier,
		origins:      origins,
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
}

// ServeHTTP accepts the connection, verifies ?token= and holds the channel until either side closes.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(e.origins) > 0 {
		opts.OriginPatterns = e.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		e.logger.Debug().Err(err).Msg("notify: accept failed")
		return
	}

	identity, reason := e.authenticate(r.URL.Query().Get("token"))
	if reason != "" {
		_ = conn.Close(websocket.StatusPolicyViolation, reason)
		return
	}

	ch := &wsChannel{conn: conn, writeTimeout: e.writeTimeout}
	e.hub.Register(identity.Subject, ch)
	defer e.hub.Release(identity.Subject, ch)

	// no client messages are part of the protocol; CloseRead drains control frames
	ctx := conn.CloseRead(r.Context())

	var expiry <-chan time.Time
	if !identity.ExpiresAt.IsZero() {
		timer := time.NewTimer(time.Until(identity.ExpiresAt))
		defer timer.Stop()
		expiry = timer.C
	}

	select {
	case <-ctx.Done():
	case <-expiry:
		_ = ch.Close(ReasonExpired)
	}
}

func (e *Endpoint) authenticate(token string) (auth.Identity, string) {
	identity, err := e.verifier.Verify(token)
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return auth.Identity{}, ReasonMissingCredential
	case err != nil:
		return auth.Identity{}, ReasonInvalidCredential
	case !identity.HasRole(auth.RoleCitizen):
		return auth.Identity{}, ReasonWrongRole
	}
	return identity, ""
}

type wsChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsChannel) Send(ctx context.Context, event Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, event)
}

func (c *wsChannel) Close(reason string) error {
	return c.conn.Close(websocket.StatusGoingAway, reason)
}
