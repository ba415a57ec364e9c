package pipeline

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// tunnelDialTimeout bounds how long OpenTunnel waits for the forwarded port
// to start accepting connections.
const tunnelDialTimeout = 15 * time.Second

// TunnelSpec describes a kubectl port-forward to a service.
type TunnelSpec struct {
	Context    string
	Namespace  string
	Service    string
	LocalPort  int
	RemotePort int
}

// Tunnel is a live port-forward. Close is idempotent and safe to call from
// a signal handler and a defer concurrently.
type Tunnel struct {
	spec    TunnelSpec
	process Process

	mu     sync.Mutex
	closed bool
}

// LocalAddr is the address the tunnel listens on.
func (t *Tunnel) LocalAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", t.spec.LocalPort)
}

// Close tears down the port-forward process. Safe to call more than once.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.process.Kill()
}

// OpenTunnel starts a kubectl port-forward and waits until the local port
// accepts TCP connections. The returned tunnel must be closed by the caller;
// registering it with a tunnelGuard covers the signal paths.
func OpenTunnel(run Runner, spec TunnelSpec) (*Tunnel, error) {
	process, err := run.Start("kubectl", "port-forward",
		"-n", spec.Namespace,
		fmt.Sprintf("svc/%s", spec.Service),
		fmt.Sprintf("%d:%d", spec.LocalPort, spec.RemotePort),
		"--context", spec.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to start port-forward to %s: %w", spec.Service, err)
	}

	tunnel := &Tunnel{spec: spec, process: process}

	if err := waitForListen(tunnel.LocalAddr(), tunnelDialTimeout); err != nil {
		tunnel.Close()
		return nil, fmt.Errorf("port-forward to %s never became reachable: %w", spec.Service, err)
	}
	return tunnel, nil
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out dialing %s", addr)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// tunnelGuard guarantees the active tunnel dies on every exit path,
// including SIGINT and SIGTERM. When the verifier swaps the primary tunnel
// for the fallback, Set re-points the guard so at most one tunnel is ever
// live.
type tunnelGuard struct {
	mu     sync.Mutex
	active *Tunnel
	stop   chan os.Signal
	once   sync.Once
}

func newTunnelGuard() *tunnelGuard {
	return &tunnelGuard{}
}

// Set makes t the guarded tunnel, closing any previously guarded one. The
// signal handler is installed on first use.
func (g *tunnelGuard) Set(t *Tunnel) {
	g.mu.Lock()
	previous := g.active
	g.active = t
	g.mu.Unlock()

	if previous != nil && previous != t {
		previous.Close()
	}

	g.once.Do(func() {
		g.stop = make(chan os.Signal, 1)
		signal.Notify(g.stop, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig, ok := <-g.stop
			if !ok {
				return
			}
			g.Close()
			signal.Stop(g.stop)
			// Re-raise so the process exits with the conventional status.
			p, err := os.FindProcess(os.Getpid())
			if err == nil {
				p.Signal(sig)
			}
		}()
	})
}

// Close tears down the guarded tunnel, if any.
func (g *tunnelGuard) Close() {
	g.mu.Lock()
	active := g.active
	g.active = nil
	g.mu.Unlock()

	if active != nil {
		active.Close()
	}
}
