// Package icmp builds and parses IPv4 ICMP Echo frames. It is a pure codec:
// no sockets, no clocks, no logging. The probing layer decides what goes in
// the payload and what to do with decode failures.
package icmp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLen is the fixed ICMP header size (type, code, checksum, id, seq).
	HeaderLen = 8

	typeEchoReply   = 0
	typeUnreachable = 3
	typeEchoRequest = 8

	ipv4MinHeaderLen = 20
	protoICMP        = 1
)

// ErrUnreachable marks a Destination Unreachable message received in place
// of an Echo Reply. ParseEchoReply wraps it in a *DecodeError and still
// reports the id/seq of the embedded original request when extractable, so
// callers can tell whether the rejection was for their probe.
var ErrUnreachable = errors.New("destination unreachable")

// Echo holds the identifying fields recovered from a reply frame.
type Echo struct {
	ID      uint16
	Seq     uint16
	Payload []byte
}

// DecodeError reports why a received frame could not be accepted as an
// Echo Reply. Err carries an optional sentinel (ErrUnreachable) reachable
// via errors.Is.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode icmp reply: %s: %v", e.Reason, e.Err)
	}
	return "decode icmp reply: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErrf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// BuildEchoRequest produces an ICMP Echo Request frame (type 8, code 0)
// with the given identifier, sequence, and payload, and a correct RFC 1071
// checksum over header+payload.
func BuildEchoRequest(id, seq uint16, payload []byte) []byte {
	pkt := make([]byte, HeaderLen+len(payload))
	pkt[0] = typeEchoRequest
	pkt[1] = 0
	binary.BigEndian.PutUint16(pkt[4:], id)
	binary.BigEndian.PutUint16(pkt[6:], seq)
	copy(pkt[HeaderLen:], payload)
	binary.BigEndian.PutUint16(pkt[2:], Checksum(pkt))
	return pkt
}

// ParseEchoReply validates a received frame and returns its identifying
// fields. It tolerates a leading IPv4 header (raw sockets may or may not
// strip it) and rejects anything that is not a well-formed Echo Reply:
// truncated frames, checksum mismatches, and unexpected ICMP types all
// yield a *DecodeError. A Destination Unreachable yields a *DecodeError
// wrapping ErrUnreachable, with the embedded request's id/seq filled in
// when the frame carries enough of the original datagram.
func ParseEchoReply(pkt []byte) (Echo, error) {
	msg, err := stripIPv4Header(pkt)
	if err != nil {
		return Echo{}, err
	}
	if len(msg) < HeaderLen {
		return Echo{}, decodeErrf("truncated frame (%d bytes)", len(msg))
	}
	if Checksum(msg) != 0 {
		return Echo{}, decodeErrf("checksum mismatch")
	}

	typ, code := msg[0], msg[1]
	switch {
	case typ == typeEchoReply && code == 0:
		return Echo{
			ID:      binary.BigEndian.Uint16(msg[4:6]),
			Seq:     binary.BigEndian.Uint16(msg[6:8]),
			Payload: msg[HeaderLen:],
		}, nil
	case typ == typeUnreachable:
		echo, _ := embeddedEcho(msg[HeaderLen:])
		return echo, &DecodeError{
			Reason: fmt.Sprintf("code %d", code),
			Err:    ErrUnreachable,
		}
	default:
		return Echo{}, decodeErrf("unexpected type %d code %d", typ, code)
	}
}

// stripIPv4Header removes a leading IPv4 header when the buffer carries one.
// Bare ICMP is passed through untouched: no ICMP type of interest shares the
// 0x4 version nibble.
func stripIPv4Header(pkt []byte) ([]byte, error) {
	if len(pkt) == 0 {
		return nil, decodeErrf("empty frame")
	}
	if pkt[0]>>4 != 4 {
		return pkt, nil
	}
	ihl := int(pkt[0]&0x0f) * 4
	if ihl < ipv4MinHeaderLen || len(pkt) < ihl {
		return nil, decodeErrf("truncated ipv4 header")
	}
	if pkt[9] != protoICMP {
		return nil, decodeErrf("not icmp (protocol %d)", pkt[9])
	}
	return pkt[ihl:], nil
}

// embeddedEcho recovers the id/seq of the original Echo Request carried in
// the body of an ICMP error message (IPv4 header + first 8 bytes of the
// offending datagram, per RFC 792). The embedded checksum covers bytes the
// error message does not carry, so it is not verified.
func embeddedEcho(body []byte) (Echo, bool) {
	orig, err := stripIPv4Header(body)
	if err != nil || len(orig) < HeaderLen || orig[0] != typeEchoRequest {
		return Echo{}, false
	}
	return Echo{
		ID:  binary.BigEndian.Uint16(orig[4:6]),
		Seq: binary.BigEndian.Uint16(orig[6:8]),
	}, true
}

// Checksum computes the standard Internet checksum (RFC 1071) over an ICMP
// message. Building: call with the checksum field zeroed. Verifying: a
// message with a valid embedded checksum sums to 0.
func Checksum(b []byte) uint16 {
	var s uint32
	for i := 0; i+1 < len(b); i += 2 {
		s += uint32(binary.BigEndian.Uint16(b[i:]))
	}
	if len(b)%2 == 1 {
		s += uint32(b[len(b)-1]) << 8
	}
	for s>>16 != 0 {
		s = (s & 0xffff) + (s >> 16)
	}
	return ^uint16(s)
}
