package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyhall/roomchat/internal/config"
	"github.com/studyhall/roomchat/internal/core"
	"github.com/studyhall/roomchat/internal/identity"
	"github.com/studyhall/roomchat/internal/proto"
	"github.com/studyhall/roomchat/internal/store"
)

// WSHandler upgrades HTTP connections and runs one session per connection.
type WSHandler struct {
	registry *core.Registry
	messages store.MessageStore
	ids      identity.Provider
	cfg      config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, messages store.MessageStore, ids identity.Provider, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		messages: messages,
		ids:      ids,
		cfg:      cfg,
		log:      logger,
	}
}

// Serve handles GET /ws/:room. The room name is taken verbatim from the
// path segment as the broadcast-group key.
func (h *WSHandler) Serve(c *gin.Context) {
	roomName := c.Param("room")
	who := h.ids.Resolve(c.Request)

	// Accept must hijack the raw connection; gin's wrapped writer marks the
	// response as written on WriteHeader and then refuses the hijack, so the
	// upgrade has to go through the underlying http.ResponseWriter.
	w := stdhttp.ResponseWriter(c.Writer)
	if u, ok := w.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		w = u.Unwrap()
	}

	conn, err := websocket.Accept(w, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("room", roomName).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	handle := core.NewHandle(uuid.NewString(), roomName, who.Name, who.Authenticated, h.cfg.SendBuffer)
	sess := core.NewSession(h.registry, h.messages, handle, h.cfg.HistoryLimit, h.log)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess.Join()
	defer sess.Leave()

	h.log.Info().Str("room", roomName).Str("conn_id", handle.ID).Str("user", handle.Name).Bool("authenticated", handle.Authenticated).Msg("connection joined")

	// History goes straight to the wire before the write loop starts
	// draining; anything broadcast since Join is queued on the handle and
	// arrives after the replayed window.
	if err := h.replay(ctx, conn, sess); err != nil {
		h.log.Warn().Err(err).Str("conn_id", handle.ID).Msg("history replay aborted")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, handle)
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
		if s := websocket.CloseStatus(err); s != 0 {
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
			h.log.Warn().Err(err).Str("conn_id", handle.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) replay(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	events, err := sess.History(ctx)
	if err != nil {
		// Losing history must not cost the client its connection.
		h.log.Warn().Err(err).Str("conn_id", sess.Handle().ID).Msg("history unavailable, joining without replay")
		return nil
	}

	for _, ev := range events {
		if err := wsjson.Write(ctx, conn, outboundFromEvent(ev)); err != nil {
			return err
		}
	}
	return nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", sess.Handle().ID).Msg("dropping malformed payload")
			continue
		}
		if inbound.Message == nil {
			h.log.Debug().Str("conn_id", sess.Handle().ID).Msg("dropping payload without message key")
			continue
		}

		sess.Send(ctx, *inbound.Message)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, handle *core.Handle) error {
	for {
		select {
		case event := <-handle.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", handle.ID).Msg("write ws event")
				return err
			}
		case <-handle.Done():
			// The registry dropped us as unresponsive, or the session closed.
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
