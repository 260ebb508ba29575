package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/protocol"
	"github.com/patrickmn/go-cache"
)

// Set of timeouts applied to peer connections.
const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// Listen binds the node's host address and starts accepting peer
// connections. It returns once the listener is bound. Without an advertised
// host the bound address becomes the host peers are told about.
func (s *State[P]) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listenHost)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.listenHost, err)
	}

	if !s.advertised {
		s.mu.Lock()
		s.host = ln.Addr().String()
		s.mu.Unlock()
	}

	s.netMu.Lock()
	s.listener = ln
	s.netMu.Unlock()

	s.evHandler("state: Listen: listening: host[%s]", ln.Addr())

	s.netWG.Add(1)
	go func() {
		defer s.netWG.Done()

		for {
			nc, err := ln.Accept()
			if err != nil {
				if s.isShutdown() || errors.Is(err, net.ErrClosed) {
					s.evHandler("state: Listen: accept loop stopped")
					return
				}
				s.evHandler("state: Listen: accept: WARNING: %s", err)
				continue
			}

			s.evHandler("state: Listen: accepted: remote[%s]", nc.RemoteAddr())
			s.serveConn(ctx, nc)
		}
	}()

	return nil
}

// Dial connects to the peer at the specified address and sends a ping to
// start the handshake.
func (s *State[P]) Dial(ctx context.Context, addr string) error {
	s.evHandler("state: Dial: started: addr[%s]", addr)

	d := net.Dialer{Timeout: dialTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	s.mu.RLock()
	host := s.host
	s.mu.RUnlock()

	msg, err := protocol.NewPing(s.id, host)
	if err != nil {
		nc.Close()
		return err
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		nc.Close()
		return err
	}

	outbox := s.serveConn(ctx, nc)
	if outbox == nil {
		return errors.New("node is shutting down")
	}

	if err := outbox.Send(frame); err != nil {
		return fmt.Errorf("ping %s: %w", addr, err)
	}

	s.evHandler("state: Dial: ping sent: addr[%s]", addr)

	return nil
}

// DialKnownPeers dials the configured peers and the peers remembered in the
// peer book. Failures are logged. A remembered peer that can't be reached is
// dropped from the book; configured peers are always kept.
func (s *State[P]) DialKnownPeers(ctx context.Context) {
	seen := make(map[string]bool)

	for _, addr := range s.knownPeers {
		if seen[addr] {
			continue
		}
		seen[addr] = true

		if err := s.Dial(ctx, addr); err != nil {
			s.evHandler("state: DialKnownPeers: WARNING: %s", err)
		}
	}

	if s.peerBook == nil {
		return
	}

	peers, err := s.peerBook.Load()
	if err != nil {
		s.evHandler("state: DialKnownPeers: peer book: WARNING: %s", err)
	}

	for _, p := range peers {
		if seen[p.Addr] {
			continue
		}
		seen[p.Addr] = true

		if err := s.Dial(ctx, p.Addr); err != nil {
			s.evHandler("state: DialKnownPeers: WARNING: %s: removing peer[%s]", err, p.ID)
			if err := s.peerBook.Remove(p.ID); err != nil {
				s.evHandler("state: DialKnownPeers: peer book: WARNING: %s", err)
			}
		}
	}
}

// dialAsync dials the address in the background. The same address is only
// dialed once within the backoff window and dials are rate limited.
func (s *State[P]) dialAsync(ctx context.Context, addr string) {
	s.mu.RLock()
	self := s.host
	s.mu.RUnlock()

	if addr == "" || addr == self {
		return
	}

	if err := s.dials.Add(addr, struct{}{}, cache.DefaultExpiration); err != nil {
		return
	}

	if !s.limiter.Allow() {
		s.dials.Delete(addr)
		s.evHandler("state: dialAsync: addr[%s]: rate limited", addr)
		return
	}

	s.netMu.Lock()
	if s.isShutdown() {
		s.netMu.Unlock()
		return
	}
	s.netWG.Add(1)
	s.netMu.Unlock()

	go func() {
		defer s.netWG.Done()

		if err := s.Dial(ctx, addr); err != nil {
			s.evHandler("state: dialAsync: WARNING: %s", err)
		}
	}()
}

// =============================================================================

// serveConn starts the reader and writer goroutines for the connection and
// returns its outbox. Nil is returned if the node is shutting down.
func (s *State[P]) serveConn(ctx context.Context, nc net.Conn) *peer.Outbox {
	s.netMu.Lock()
	if s.isShutdown() {
		s.netMu.Unlock()
		nc.Close()
		return nil
	}
	s.conns[nc] = struct{}{}
	s.netWG.Add(2)
	s.netMu.Unlock()

	outbox := peer.NewOutbox(s.outboxSize)

	// Writer: drains the outbox in order until it is closed.
	go func() {
		defer s.netWG.Done()
		defer nc.Close()

		for {
			select {
			case frame := <-outbox.Frames():
				nc.SetWriteDeadline(time.Now().Add(writeTimeout))
				if _, err := nc.Write(frame); err != nil {
					s.evHandler("state: serveConn: remote[%s]: write: WARNING: %s", nc.RemoteAddr(), err)
					outbox.Close()
					return
				}

			case <-outbox.Done():
				return
			}
		}
	}()

	// Reader: decodes messages and processes them one at a time.
	go func() {
		defer s.netWG.Done()
		defer func() {
			outbox.Close()
			nc.Close()

			for _, id := range s.peers.Release(outbox) {
				s.evHandler("state: serveConn: peer[%s]: removed", id)
			}

			s.netMu.Lock()
			delete(s.conns, nc)
			s.netMu.Unlock()
		}()

		dec := protocol.NewDecoder(nc, s.maxFrameSize)
		for {
			msg, err := dec.Decode()
			if err != nil {
				switch {
				case errors.Is(err, io.EOF), s.isShutdown():
					s.evHandler("state: serveConn: remote[%s]: closed", nc.RemoteAddr())
				default:
					s.evHandler("state: serveConn: remote[%s]: read: ERROR: %s", nc.RemoteAddr(), err)
				}
				return
			}

			if err := s.Process(ctx, msg, outbox); err != nil {
				s.evHandler("state: serveConn: remote[%s]: process %s: WARNING: %s", nc.RemoteAddr(), msg.Type, err)
			}
		}
	}()

	return outbox
}

// closeNetwork stops the listener, closes every connection and waits for
// their goroutines.
func (s *State[P]) closeNetwork() {
	s.netMu.Lock()
	select {
	case <-s.shut:
	default:
		close(s.shut)
	}

	if s.listener != nil {
		s.listener.Close()
	}

	for nc := range s.conns {
		nc.Close()
	}
	s.netMu.Unlock()

	s.netWG.Wait()
}

// isShutdown is used to test if a shutdown has been signaled.
func (s *State[P]) isShutdown() bool {
	select {
	case <-s.shut:
		return true
	default:
		return false
	}
}
