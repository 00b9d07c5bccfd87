//go:build linux

package probe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/malbeclabs/pingmon/internal/icmp"
)

const (
	rawTTL      = 64
	recvBufSize = 4096
)

// rawProber owns the raw ICMP socket for the process lifetime. A mutex
// serializes Probe and Close to the single conn; the scheduler issues one
// probe at a time.
type rawProber struct {
	log  *slog.Logger
	cfg  RawConfig
	ipc  *net.IPConn
	ip4c *ipv4.PacketConn
	id   uint16 // echo identifier (pid & 0xffff)
	buf  []byte
	mu   sync.Mutex
}

// NewRaw opens a raw ip4:icmp socket once at construction. Insufficient
// privilege surfaces as ErrPermissionDenied, the selector's fallback
// trigger; it is a setup-time condition, never a per-probe one.
func NewRaw(cfg RawConfig) (Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ipc, err := net.ListenIP("ip4:icmp", nil)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("open raw socket: %w", ErrPermissionDenied)
		}
		return nil, fmt.Errorf("failed to open raw socket: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = ipc.Close()
		}
	}()

	// Wrap in ipv4.PacketConn for socket options on the raw conn.
	ip4c := ipv4.NewPacketConn(ipc)
	if err := ip4c.SetTTL(rawTTL); err != nil {
		return nil, fmt.Errorf("failed to set ttl: %w", err)
	}

	ok = true
	return &rawProber{
		log:  cfg.Logger,
		cfg:  cfg,
		ipc:  ipc,
		ip4c: ip4c,
		id:   uint16(os.Getpid() & 0xffff),
		buf:  make([]byte, recvBufSize),
	}, nil
}

func (p *rawProber) Name() string { return "raw" }

// Close releases the raw socket. Safe to call with a Probe in flight once
// its ctx is canceled.
func (p *rawProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ipc.Close()
}

// Probe sends one echo request and waits for the matching reply. The
// payload carries the send timestamp as a per-probe nonce, so a reply must
// match id, seq, and payload to count; anything else (late replies for
// older sequences, stray ICMP, malformed frames) is discarded and the wait
// continues until the deadline.
func (p *rawProber) Probe(ctx context.Context, seq uint16) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(time.Now().UnixNano()))
	req := icmp.BuildEchoRequest(p.id, seq, payload)

	sent := time.Now()
	deadline := sent.Add(p.cfg.Timeout)

	// Interrupt a blocking read promptly when ctx is canceled mid-wait.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = p.ipc.SetReadDeadline(time.Now().Add(-time.Hour))
		case <-watchDone:
		}
	}()

	if _, err := p.ip4c.WriteTo(req, nil, p.cfg.Target); err != nil {
		if errors.Is(err, unix.ENETUNREACH) || errors.Is(err, unix.EHOSTUNREACH) {
			return 0, fmt.Errorf("send seq=%d: %w", seq, ErrUnreachable)
		}
		return 0, fmt.Errorf("failed to send echo request: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !deadline.After(time.Now()) {
			return 0, fmt.Errorf("seq=%d: %w", seq, ErrTimeout)
		}
		_ = p.ipc.SetReadDeadline(deadline)

		n, _, _, err := p.ip4c.ReadFrom(p.buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				return 0, fmt.Errorf("seq=%d: %w", seq, ErrTimeout)
			}
			return 0, fmt.Errorf("failed to read reply: %w", err)
		}

		rtt := time.Since(sent)
		echo, perr := icmp.ParseEchoReply(p.buf[:n])
		if perr != nil {
			// An unreachable for our in-flight request is a definitive failure.
			if errors.Is(perr, icmp.ErrUnreachable) && echo.ID == p.id && echo.Seq == seq {
				return 0, fmt.Errorf("seq=%d: %w", seq, ErrUnreachable)
			}
			p.log.Debug("probe/raw: discarded frame", "seq", seq, "err", perr)
			continue
		}
		if echo.ID != p.id || echo.Seq != seq || !bytes.Equal(echo.Payload, payload) {
			p.log.Debug("probe/raw: ignored reply", "want_seq", seq, "got_id", echo.ID, "got_seq", echo.Seq)
			continue
		}
		return rtt, nil
	}
}
