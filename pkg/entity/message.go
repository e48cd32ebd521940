package entity

import (
	"bufio"
	"fmt"
	"io"
	"net/http"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
	"github.com/sirosfoundation/go-as2/pkg/mime"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
)

// MaxMessageSize bounds the body read from an HTTP request
const MaxMessageSize int64 = 512 << 20

// Message is a received AS2 message: its header block and the single
// top-level entity parsed from its body.
type Message struct {
	header message.Header
	entity Entity
}

// NewMessage parses body according to header into a Message. A message
// without a Content-Type header carries no entity.
func NewMessage(header message.Header, body []byte) (*Message, error) {
	m := &Message{header: header}
	if header.Get(mime.HeaderContentType) == "" {
		return m, nil
	}

	ent, err := build(message.Header{Header: header.Header.Copy()}, body, 0)
	if err != nil {
		return nil, err
	}
	m.entity = ent
	return m, nil
}

// ReadMessage reads a header block followed by a body from r.
func ReadMessage(r io.Reader) (*Message, error) {
	br := bufio.NewReader(r)

	h, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrProtocolFormat, err, "failed to read message header")
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	return NewMessage(message.Header{Header: h}, body)
}

// FromHTTPRequest builds a Message from an inbound AS2 HTTP request.
// Repeated header fields keep their request order.
func FromHTTPRequest(r *http.Request) (*Message, error) {
	var h message.Header
	for name, values := range r.Header {
		// Add prepends to existing fields of the same name.
		for i := len(values) - 1; i >= 0; i-- {
			h.Add(name, values[i])
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxMessageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > MaxMessageSize {
		return nil, fmt.Errorf("request body exceeds %d bytes", MaxMessageSize)
	}

	return NewMessage(h, body)
}

// Header returns the message header block. Unlike entity headers it is
// mutable, see mime.SetHeader.
func (m *Message) Header() *message.Header {
	return &m.header
}

// Entity returns the top-level entity, or nil if none is attached.
func (m *Message) Entity() Entity {
	return m.entity
}

// Retrieval is the outcome of looking up an entity of a given variant
type Retrieval int

const (
	// Absent means no entity is attached
	Absent Retrieval = iota
	// WrongVariant means an entity of another variant is attached
	WrongVariant
	// Found means the entity has the requested variant
	Found
)

func (r Retrieval) String() string {
	switch r {
	case Found:
		return "found"
	case WrongVariant:
		return "wrong variant"
	default:
		return "absent"
	}
}

// GetEntity returns the message's top-level entity if it is a T.
func GetEntity[T Entity](m *Message) (T, Retrieval) {
	if m == nil {
		var zero T
		return zero, Absent
	}
	return As[T](m.entity)
}

// As returns e as a T, reporting whether e was absent or of another
// variant.
func As[T Entity](e Entity) (T, Retrieval) {
	var zero T
	if e == nil {
		return zero, Absent
	}
	t, ok := e.(T)
	if !ok {
		return zero, WrongVariant
	}
	return t, Found
}
