package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
)

var rateLimitedFrame = mustEncode(room.GameErrorEvent{
	Error: room.ErrRateLimited.Error(),
	Code:  room.CodeRateLimited,
})

func mustEncode(evt room.Event) []byte {
	frame, err := room.EncodeFrame(evt)
	if err != nil {
		panic(err)
	}
	return frame
}

// conn is one websocket client.
type conn struct {
	srv      *Server
	ws       *websocket.Conn
	handle   *room.ChannelSession
	identity room.Identity
	limiter  *rate.Limiter
	log      *log.Logger
}

// readPump decodes inbound frames into room commands until the connection
// fails, then tells the room the session is gone.
func (c *conn) readPump() {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.srv.room.Submit(ctx, room.Disconnect{Session: c.handle.ID()}); err != nil {
			c.log.Debug("could not report disconnect", "error", err)
		}
		c.handle.Close()
		c.ws.Close()
		c.log.Debug("websocket closed")
	}()

	cfg := c.srv.cfg
	if cfg.ReadLimit > 0 {
		c.ws.SetReadLimit(cfg.ReadLimit)
	}
	if err := c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait)); err != nil {
		c.log.Error("cannot set read deadline", "error", err)
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	sid := c.handle.ID()
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debug("ignoring non-text frame", "kind", messageType)
			continue
		}
		if !c.limiter.Allow() {
			c.handle.Send(rateLimitedFrame)
			continue
		}

		cmd, err := room.DecodeCommand(sid, data)
		if err != nil {
			cmd = room.Malformed{Session: sid, Err: err}
		}
		if err := c.srv.room.Submit(c.srv.ctx, cmd); err != nil {
			c.log.Debug("room stopped accepting commands", "error", err)
			return
		}
	}
}

// writePump drains the session's outbound buffer and keeps the connection
// alive with pings.
func (c *conn) writePump() {
	cfg := c.srv.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.handle.Frames():
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.handle.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *conn) write(kind int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, data)
}
