package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/config"
	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/proto"
	"github.com/taskwire/taskwire-server/internal/utils"
)

// WSHandler authenticates and upgrades websocket connections, then bridges
// them to a core.Session: inbound frames go through the event router, the
// session outbox drains to the wire.
type WSHandler struct {
	svcs   Services
	rt     Realtime
	cfg    *config.Config
	router *eventRouter
	log    *zerolog.Logger
}

// NewWSHandler builds the websocket endpoint handler.
func NewWSHandler(svcs Services, rt Realtime, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		svcs:   svcs,
		rt:     rt,
		cfg:    cfg,
		router: newEventRouter(svcs, rt, logger),
		log:    logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// Authentication happens before the upgrade so rejected clients get a
	// plain 401 instead of a websocket close frame.
	principal, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws handshake rejected")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.WS.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.WS.MaxMessageBytes)
	}

	sess := core.NewSession(utils.NewID(), principal, h.cfg.WS.OutboxSize)
	h.rt.Registry.Register(sess)
	h.rt.Presence.Set(sess.ID, principal)
	defer func() {
		h.rt.Registry.Unregister(sess.ID)
		h.rt.Presence.Drop(sess.ID)
	}()

	h.log.Info().
		Str("session_id", sess.ID).
		Str("actor", sess.ActorName()).
		Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.cfg.WS.MessagesPerMinute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s > 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Info().Str("session_id", sess.ID).Msg("ws disconnected")
	conn.Close(status, reason)
}

// authenticate resolves the connecting principal from the token carried in
// the ?token= query parameter or the Authorization header. Any presented
// token must be valid; a missing token is accepted only when anonymous
// handshakes are enabled.
func (h *WSHandler) authenticate(r *stdhttp.Request) (*core.Principal, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		if h.cfg.WS.AllowAnonymous {
			return nil, nil
		}
		return nil, errors.New("missing token")
	}
	return h.svcs.Auth.VerifyToken(token)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}
		if !limiter.allow() {
			h.rt.Broadcast.EmitTo(sess, proto.EventErrorMessage, proto.ErrorMessage{Message: "rate limit exceeded"})
			continue
		}
		h.router.dispatch(ctx, sess, inbound)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	ping := time.NewTicker(h.cfg.WS.PingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-sess.Events:
			if !ok {
				return nil
			}
			out := proto.Outbound{Event: event.Name, Data: event.Payload}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("session_id", sess.ID).Msg("write ws event")
				return err
			}
		case <-ping.C:
			if err := h.ping(ctx, conn); err != nil {
				h.log.Debug().Err(err).Str("session_id", sess.ID).Msg("ws ping failed")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) ping(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, cancel := context.WithTimeout(ctx, h.cfg.WS.PongTimeout)
	defer cancel()
	return conn.Ping(pingCtx)
}
