package proxy

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"sync"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// proxyConn wraps net.Conn so the Semaphore token is released exactly when
// the prober closes the connection.
type proxyConn struct {
	net.Conn
	releaseOnce sync.Once // Ensures we never accidentally release a token twice
}

func (pc *proxyConn) Close() error {
	pc.releaseOnce.Do(func() {
		<-Semaphore // Give the slot back to the global pool
	})
	return pc.Conn.Close()
}

// Dialer returns a dial function for the SMTP prober. Each probe connection
// goes out through the next proxy in rotation.
func Dialer(timeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return DialContext(ctx, network, addr, timeout, Global.Next())
	}
}

// DialContext opens a connection through pURL, falling back to a direct
// dial when no proxy pool is configured.
func DialContext(ctx context.Context, network, addr string, timeout time.Duration, pURL *url.URL) (net.Conn, error) {
	directDialer := &net.Dialer{Timeout: timeout}

	if !Enabled() || pURL == nil {
		return directDialer.DialContext(ctx, network, addr)
	}

	select {
	case Semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for proxy slot: %w", ctx.Err())
	}

	// Many SOCKS endpoints refuse to resolve hostnames themselves, so
	// resolve the MX host locally and hand the proxy a bare IP.
	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if net.ParseIP(host) == nil {
			ips, lookupErr := net.LookupIP(host)
			if lookupErr == nil && len(ips) > 0 {
				resolvedIP := ips[0].String()
				for _, ip := range ips {
					if ip.To4() != nil {
						resolvedIP = ip.String()
						break
					}
				}
				addr = net.JoinHostPort(resolvedIP, port)
				log.Printf("[DEBUG-PROXY] Resolved target locally to IP: %s", addr)
			}
		}
	}

	log.Printf("[DEBUG-PROXY] Dialing %s via proxy %s", addr, pURL.Host)
	start := time.Now()

	pdialer, err := netproxy.FromURL(pURL, directDialer)
	if err != nil {
		<-Semaphore
		log.Printf("[DEBUG-PROXY] Failed to parse proxy URL: %v", err)
		return nil, err
	}

	var conn net.Conn
	if cdialer, ok := pdialer.(netproxy.ContextDialer); ok {
		conn, err = cdialer.DialContext(ctx, network, addr)
	} else {
		conn, err = pdialer.Dial(network, addr)
	}

	if err != nil {
		<-Semaphore
		log.Printf("[DEBUG-PROXY] FAILED to dial %s. Took %v. Err: %v", addr, time.Since(start), err)
		return nil, err
	}

	log.Printf("[DEBUG-PROXY] SUCCESS connected to %s. Took %v", addr, time.Since(start))

	return &proxyConn{Conn: conn}, nil
}
