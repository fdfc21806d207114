package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/r6voip-server/internal/core"
	"github.com/vovakirdan/r6voip-server/internal/proto"
	"github.com/vovakirdan/r6voip-server/internal/utils"
)

const (
	wsReadLimit       = 8 << 10
	wsFramesPerMinute = 1200
)

// errHubClosed ends the write loop when the hub shuts down.
var errHubClosed = errors.New("hub closed")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub             Gateway
	log             *zerolog.Logger
	accept          websocket.AcceptOptions
	addrs           *addrResolver
	framesPerMinute int
}

// NewWSHandler builds a new WebSocket handler. Origins are full URLs such as
// http://localhost:5173; "*" disables the origin check. Proxies are IPs or
// CIDRs whose X-Forwarded-For header is trusted.
func NewWSHandler(hub Gateway, origins, proxies []string, logger *zerolog.Logger) (*WSHandler, error) {
	accept, err := acceptOptions(origins)
	if err != nil {
		return nil, err
	}
	addrs, err := newAddrResolver(proxies)
	if err != nil {
		return nil, err
	}
	return &WSHandler{
		hub:             hub,
		log:             logger,
		accept:          accept,
		addrs:           addrs,
		framesPerMinute: wsFramesPerMinute,
	}, nil
}

func acceptOptions(origins []string) (websocket.AcceptOptions, error) {
	var opts websocket.AcceptOptions
	for _, o := range origins {
		if o == "*" {
			return websocket.AcceptOptions{InsecureSkipVerify: true}, nil
		}
		host := o
		if strings.Contains(o, "://") {
			u, err := url.Parse(o)
			if err != nil {
				return opts, fmt.Errorf("parse allowed origin %q: %w", o, err)
			}
			host = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, host)
	}
	return opts, nil
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	addr := h.addrs.clientAddr(r)
	ctx := r.Context()

	accept := h.accept
	conn, err := websocket.Accept(w, r, &accept)
	if err != nil {
		h.log.Warn().Err(err).Str("addr", addr).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(wsReadLimit)

	client := core.NewClient(utils.NewID(), addr)
	if err := h.hub.RegisterClient(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newFrameLimiter(h.framesPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	if errors.Is(err, errHubClosed) {
		// The close frame must go out before cancel tears down the pending read.
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		cancel()
		<-errCh
		h.log.Debug().Str("client_id", client.ID).Msg("ws closed on hub shutdown")
		return
	}
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *frameLimiter) error {
	for {
		typ, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !limiter.allow() {
			if err := h.writeError(ctx, conn, proto.ErrCodeTooMany, "too many messages"); err != nil {
				return err
			}
			continue
		}
		if typ != websocket.MessageText {
			if err := h.writeError(ctx, conn, proto.ErrCodeInvalidFrame, "text frames only"); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(raw, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("malformed inbound frame")
			if err := h.writeError(ctx, conn, proto.ErrCodeInvalidFrame, "malformed JSON"); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.log.Debug().Str("client_id", client.ID).Str("type", inbound.Type).Str("code", protoErr.Code).Msg("rejected inbound")
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, ID: inbound.ID, Error: protoErr}); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return errHubClosed
			}
			out, send := outboundFromEvent(event)
			if !send {
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
