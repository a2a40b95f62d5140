// Package backend sends serialized SNMP datagrams to backend agents and
// waits for their replies.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout is returned by Query when every attempt expired without a
// reply.
var ErrTimeout = errors.New("backend timed out")

const maxDatagramSize = 65536

// Client forwards datagrams over UDP with a per-attempt receive deadline
// and a bounded number of retries.
type Client struct {
	Timeout time.Duration // per-attempt receive deadline
	Retries int           // additional attempts after the first
}

// Query sends datagram to endpoint and returns the first datagram received
// within an attempt's deadline, verbatim. Total attempts are Retries+1;
// after that many consecutive deadline expiries it returns ErrTimeout.
//
// All attempts share one connected socket, so a late reply to an earlier
// attempt may be accepted as the current attempt's reply. That reply still
// answers the same request, so callers treat it as authoritative.
func (c *Client) Query(ctx context.Context, endpoint *net.UDPAddr, datagram []byte) ([]byte, error) {
	conn, err := net.DialUDP("udp", nil, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", endpoint, err)
	}
	defer conn.Close()

	buffer := make([]byte, maxDatagramSize)
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := conn.Write(datagram); err != nil {
			return nil, fmt.Errorf("send to backend %s: %w", endpoint, err)
		}

		conn.SetReadDeadline(time.Now().Add(c.Timeout))
		n, err := conn.Read(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return nil, fmt.Errorf("receive from backend %s: %w", endpoint, err)
		}
		if n == 0 {
			continue
		}
		reply := make([]byte, n)
		copy(reply, buffer[:n])
		return reply, nil
	}
	return nil, ErrTimeout
}
