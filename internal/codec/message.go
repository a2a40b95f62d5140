// Package codec parses and serializes SNMPv2c message envelopes. Only the
// outer framing is interpreted: version, community string, PDU type, and
// request ID. Everything after the request ID (error fields and the varbind
// list) is carried as opaque bytes so a message can be re-serialized
// byte-exactly.
package codec

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	sequenceType = 0x30
	integerType  = 0x02
	stringType   = 0x04
)

// SNMPv2c PDU types.
const (
	GetRequest     = 0xa0
	GetNextRequest = 0xa1
	GetResponse    = 0xa2
	GetBulkRequest = 0xa5
)

// ErrStatusResourceUnavailable is the SNMP error-status code the proxy
// reports when a backend never answers.
const ErrStatusResourceUnavailable = 0x0d

// Version marker for SNMPv2c: integer 1.
var snmpV2cVersion = []byte{0x02, 0x01, 0x01}

// Message is a decoded SNMPv2c message. The community string is split at the
// first '@' into the community proper and a contextual index suffix; the
// suffix is not written back by Serialize, callers re-attach it through
// SetCommunity when needed.
type Message struct {
	length         uint64
	community      string
	communityIndex string
	pduType        byte
	pduLength      uint64
	requestID      [4]byte

	// Everything after the request ID, through end of datagram. The third
	// byte is the error-status octet.
	data []byte
}

// Parse decodes b into a Message. The varbind tail is copied, so b may be
// reused after Parse returns.
func Parse(b []byte) (*Message, error) {
	if len(b) < 7 {
		return nil, fmt.Errorf("datagram too short (%d bytes)", len(b))
	}
	if b[0] != sequenceType {
		return nil, fmt.Errorf("unexpected outer type 0x%02x", b[0])
	}

	m := &Message{}
	p := 1

	var n int
	m.length, n = decodeLength(b[p:])
	if n == 0 || m.length == 0 {
		return nil, fmt.Errorf("bad envelope length")
	}
	p += n
	if m.length > uint64(len(b)-p) {
		return nil, fmt.Errorf("envelope length %d exceeds datagram", m.length)
	}

	if p+len(snmpV2cVersion) > len(b) || !bytes.Equal(b[p:p+len(snmpV2cVersion)], snmpV2cVersion) {
		return nil, fmt.Errorf("not an SNMPv2c message")
	}
	p += len(snmpV2cVersion)

	if p >= len(b) || b[p] != stringType {
		return nil, fmt.Errorf("missing community string")
	}
	p++
	communityLength, n := decodeLength(b[p:])
	if n == 0 || communityLength == 0 {
		return nil, fmt.Errorf("bad community string length")
	}
	p += n
	if uint64(p)+communityLength > uint64(len(b)) {
		return nil, fmt.Errorf("truncated community string")
	}
	community := string(b[p : p+int(communityLength)])
	p += int(communityLength)

	// A "community@index" string routes to community with an SNMPv2c
	// context suffix. The suffix is held separately and its bytes no longer
	// count toward the serialized envelope.
	if i := strings.IndexByte(community, '@'); i >= 0 {
		if uint64(len(community)-i) >= m.length {
			return nil, fmt.Errorf("community suffix exceeds envelope length")
		}
		m.community = community[:i]
		m.communityIndex = community[i:]
		m.length -= uint64(len(m.communityIndex))
	} else {
		m.community = community
	}

	if p+5 > len(b) {
		return nil, fmt.Errorf("truncated PDU")
	}
	m.pduType = b[p]
	switch m.pduType {
	case GetRequest, GetNextRequest, GetResponse, GetBulkRequest:
	default:
		return nil, fmt.Errorf("unsupported PDU type 0x%02x", m.pduType)
	}
	p++

	m.pduLength, n = decodeLength(b[p:])
	if n == 0 {
		return nil, fmt.Errorf("bad PDU length")
	}
	p += n

	if p >= len(b) || b[p] != integerType {
		return nil, fmt.Errorf("missing request ID")
	}
	p++
	if p >= len(b) || b[p] != 0x04 {
		return nil, fmt.Errorf("unexpected request ID length")
	}
	p++
	if p+4 > len(b) {
		return nil, fmt.Errorf("truncated request ID")
	}
	// The request ID is carried as raw bytes and echoed back verbatim; it is
	// never interpreted as an integer.
	copy(m.requestID[:], b[p:p+4])
	p += 4

	m.data = append([]byte(nil), b[p:]...)
	return m, nil
}

func (m *Message) Community() string      { return m.community }
func (m *Message) CommunityIndex() string { return m.communityIndex }
func (m *Message) PDUType() byte          { return m.pduType }
func (m *Message) RequestID() [4]byte     { return m.requestID }
func (m *Message) Length() uint64         { return m.length }

// Data returns the opaque tail after the request ID. Callers must not
// modify the returned slice.
func (m *Message) Data() []byte { return m.data }

// IsRequest reports whether the message carries one of the request PDU
// types the proxy forwards.
func (m *Message) IsRequest() bool {
	switch m.pduType {
	case GetRequest, GetNextRequest, GetBulkRequest:
		return true
	}
	return false
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c := *m
	c.data = append([]byte(nil), m.data...)
	return &c
}

// SetCommunity replaces the community string, adjusting the envelope length
// for both the string bytes and any change in its length encoding.
func (m *Message) SetCommunity(community string) {
	m.length -= uint64(len(m.community)) + encodedLengthSize(uint64(len(m.community)))
	m.length += uint64(len(community)) + encodedLengthSize(uint64(len(community)))
	m.community = community
}

// SetPDUType replaces the PDU type. The tag is a single byte either way, so
// no lengths change.
func (m *Message) SetPDUType(pduType byte) {
	m.pduType = pduType
}

// SetError writes the error-status octet inside the PDU. No-op if the tail
// is too short to carry one.
func (m *Message) SetError(status byte) {
	if len(m.data) > 2 {
		m.data[2] = status
	}
}

// SetData replaces the opaque tail, recomputing the PDU length and
// propagating the change (including any change in the PDU length encoding)
// into the envelope length.
func (m *Message) SetData(data []byte) {
	m.length -= uint64(len(m.data)) + encodedLengthSize(m.pduLength)
	m.pduLength = m.pduLength - uint64(len(m.data)) + uint64(len(data))
	m.length += uint64(len(data)) + encodedLengthSize(m.pduLength)
	m.data = append([]byte(nil), data...)
}

// Serialize re-encodes the message as a wire datagram. The contextual index
// suffix, if any was parsed, is not written; the caller re-attaches it via
// SetCommunity when forwarding.
func (m *Message) Serialize() []byte {
	out := make([]byte, 0, int(m.length)+8)
	out = append(out, sequenceType)
	out = append(out, encodeLength(m.length)...)
	out = append(out, snmpV2cVersion...)
	out = append(out, stringType)
	out = append(out, encodeLength(uint64(len(m.community)))...)
	out = append(out, m.community...)
	out = append(out, m.pduType)
	out = append(out, encodeLength(m.pduLength)...)
	out = append(out, integerType, 0x04)
	out = append(out, m.requestID[:]...)
	out = append(out, m.data...)
	return out
}
