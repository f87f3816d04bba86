package base

import (
	"errors"
	"net"
	"time"
)

// idleTimeoutConn refreshes the read deadline before every read, so a read only
// times out if the peer stayed silent for the whole timeout
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

// newIdleTimeoutConn wraps conn, a timeout <= 0 disables the idle timeout
func newIdleTimeoutConn(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &idleTimeoutConn{Conn: conn, timeout: timeout}
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

// IsTimeout reports whether err is a network timeout
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
