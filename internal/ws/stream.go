package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"
)

var ErrClientClosed = errors.New("websocket closed by client")

// Stream sends JSON messages over a WebSocket.
type Stream struct {
	conn *websocket.Conn
}

func (s *Stream) Send(kind string, data any) error {
	if err := WriteData(s.conn, kind, data); err != nil {
		// Use a specific error to signal that the client has disconnected.
		return ErrClientClosed
	}
	return nil
}

func (s *Stream) WriteStatus(level, message string) {
	_ = WriteStatus(s.conn, level, message)
}

// StreamWebSocket upgrades to WebSocket and streams using the provided streamer function.
func StreamWebSocket(c fiber.Ctx, streamer func(ctx context.Context, stream *Stream) error) error {
	type requestCtxProvider interface {
		RequestCtx() *fasthttp.RequestCtx
	}

	provider, ok := any(c).(requestCtxProvider)
	if !ok {
		return fiber.ErrInternalServerError
	}

	return Upgrader.Upgrade(provider.RequestCtx(), func(conn *websocket.Conn) {
		defer conn.Close()

		ctx := context.Background()

		closed := make(chan struct{})
		var once sync.Once
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					once.Do(func() { close(closed) })
					return
				}
			}
		}()

		stream := &Stream{conn: conn}

		// Use a cancellable context tied to the client connection.
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			<-closed
			cancel()
		}()

		err := streamer(streamCtx, stream)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClientClosed) {
			_ = WriteStatus(conn, "error", "stream failed")
		}

		_ = WriteStatus(conn, "info", "stream ended")
	})
}
