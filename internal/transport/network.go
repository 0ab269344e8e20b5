package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"periph.io/x/conn/v3"
)

// NetworkPath is the websocket endpoint a networked board listens on.
const NetworkPath = "/zedmd"

// WriteTimeout bounds a single packet write on the network link.
var WriteTimeout = 2 * time.Second

// DialNetwork connects to a board at host:port. Each wire packet travels as
// one binary websocket message.
func DialNetwork(ctx context.Context, host string, port int) (*Link, error) {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: NetworkPath}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", u.String(), err)
	}
	return NewLink(&wsConn{name: u.Host, ws: ws}, ws), nil
}

type wsConn struct {
	name string
	ws   *websocket.Conn
}

func (c *wsConn) String() string { return "ws://" + c.name }

func (c *wsConn) Duplex() conn.Duplex { return conn.Half }

func (c *wsConn) Tx(w, r []byte) error {
	if len(w) > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if len(msg) < len(r) {
			return fmt.Errorf("%w: read %d of %d bytes", ErrBadPayload, len(msg), len(r))
		}
		copy(r, msg)
	}
	return nil
}
