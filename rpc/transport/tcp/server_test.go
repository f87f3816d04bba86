package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/transport"
	"github.com/ValentinKolb/dRec/rpc/transport/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() common.ServerConfig {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Workers = 2
	config.Backlog = 4
	config.ShutdownTimeout = time.Second
	return config
}

// startServer starts the transport with the handler and returns the address and
// a function that stops the server and returns the Listen error
func startServer(t *testing.T, config common.ServerConfig, handler transport.ConnHandleFunc) (transport.IRPCServerTransport, func() error) {
	t.Helper()

	tr := NewTCPServerTransport()
	tr.RegisterHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- tr.Listen(ctx, config) }()

	select {
	case <-tr.Ready():
	case err := <-result:
		cancel()
		t.Fatalf("listen failed: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}

	var stopped bool
	var stopErr error
	stop := func() error {
		if !stopped {
			stopped = true
			cancel()
			select {
			case stopErr = <-result:
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		}
		return stopErr
	}
	t.Cleanup(func() { _ = stop() })
	return tr, stop
}

func dial(t *testing.T, tr transport.IRPCServerTransport) net.Conn {
	t.Helper()
	conn, err := NewTCPClientTransport().Connect(context.Background(), common.ClientConfig{
		Endpoint: tr.Addr().String(),
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServerTransport(t *testing.T) {
	t.Run("ServesConnections", func(t *testing.T) {
		tr, stop := startServer(t, testConfig(), func(conn net.Conn) {
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				_, _ = conn.Write(append(scanner.Bytes(), '\n'))
			}
		})

		conn := dial(t, tr)
		_, err := conn.Write([]byte("hello\n"))
		require.NoError(t, err)

		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "hello\n", line)
		assert.Equal(t, uint64(1), tr.Stats().Accepted)

		require.NoError(t, conn.Close())
		require.NoError(t, stop())
	})

	t.Run("IdleTimeout", func(t *testing.T) {
		config := testConfig()
		config.IdleTimeout = 50 * time.Millisecond

		readErr := make(chan error, 1)
		tr, _ := startServer(t, config, func(conn net.Conn) {
			_, err := bufio.NewReader(conn).ReadString('\n')
			readErr <- err
		})
		dial(t, tr)

		select {
		case err := <-readErr:
			assert.True(t, base.IsTimeout(err), "expected timeout, got %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("idle timeout did not fire")
		}
	})

	t.Run("IdleTimeoutRefreshedByTraffic", func(t *testing.T) {
		config := testConfig()
		config.IdleTimeout = 150 * time.Millisecond

		lines := make(chan string, 10)
		tr, _ := startServer(t, config, func(conn net.Conn) {
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		})
		conn := dial(t, tr)

		// total time exceeds the timeout, the gaps do not
		for i := 0; i < 4; i++ {
			_, err := conn.Write([]byte("ping\n"))
			require.NoError(t, err)
			time.Sleep(60 * time.Millisecond)
		}
		assert.Len(t, lines, 4)
	})

	t.Run("ForceClosesStragglersOnShutdown", func(t *testing.T) {
		config := testConfig()
		config.IdleTimeout = 0
		config.ShutdownTimeout = 50 * time.Millisecond

		tr, stop := startServer(t, config, func(conn net.Conn) {
			_, _ = io.Copy(io.Discard, conn)
		})
		conn := dial(t, tr)

		require.Eventually(t, func() bool { return tr.Stats().Busy == 1 }, 2*time.Second, 5*time.Millisecond)

		err := stop()
		require.Error(t, err)

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, err = conn.Read(make([]byte, 1))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("CallerRunsUnderSaturation", func(t *testing.T) {
		config := testConfig()
		config.Workers = 1
		config.Backlog = 1
		config.SaturationPolicy = common.SaturationCallerRuns

		release := make(chan struct{})
		tr, stop := startServer(t, config, func(conn net.Conn) {
			<-release
		})

		// one running, one queued, the third runs on the accept loop
		dial(t, tr)
		require.Eventually(t, func() bool { return tr.Stats().Busy == 1 }, 2*time.Second, 5*time.Millisecond)
		dial(t, tr)
		require.Eventually(t, func() bool { return tr.Stats().Queued == 1 }, 2*time.Second, 5*time.Millisecond)
		dial(t, tr)
		require.Eventually(t, func() bool { return tr.Stats().CallerRuns == 1 }, 2*time.Second, 5*time.Millisecond)

		// a fourth connection is not accepted while the accept loop serves the third
		dial(t, tr)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, uint64(3), tr.Stats().Accepted)

		close(release)
		require.Eventually(t, func() bool { return tr.Stats().Accepted == 4 }, 2*time.Second, 5*time.Millisecond)
		require.NoError(t, stop())
	})

	t.Run("BindFailure", func(t *testing.T) {
		occupied, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer occupied.Close()

		config := testConfig()
		config.Endpoint = occupied.Addr().String()

		tr := NewTCPServerTransport()
		tr.RegisterHandler(func(conn net.Conn) {})
		err = tr.Listen(context.Background(), config)
		require.Error(t, err)
	})
}
