package message

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sync"
)

// Kind identifies the payload representation a Message was constructed with.
type Kind int

const (
	// Binary messages carry raw bytes.
	Binary Kind = iota

	// Text messages carry a UTF-8 string.
	Text
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is an immutable payload envelope. Exactly one representation is
// stored at construction; the other is computed on first access and cached.
//
// A Message is owned by whichever queue currently holds it. Callers must not
// mutate the slice returned by Bytes.
type Message struct {
	kind Kind

	once sync.Once
	data []byte
	text string
}

// NewText creates a text message.
func NewText(s string) *Message {
	return &Message{kind: Text, text: s}
}

// NewBinary creates a binary message. The payload is copied so later
// mutation of b cannot affect the message.
func NewBinary(b []byte) *Message {
	data := make([]byte, len(b))
	copy(data, b)
	return &Message{kind: Binary, data: data}
}

// Kind returns the representation the message was constructed with.
func (m *Message) Kind() Kind {
	return m.kind
}

// Bytes returns the binary representation, encoding the text form on first
// access for text messages.
func (m *Message) Bytes() []byte {
	if m.kind == Text {
		m.once.Do(func() {
			m.data = []byte(m.text)
		})
	}
	return m.data
}

// Text returns the text representation, decoding the binary form as UTF-8 on
// first access for binary messages.
func (m *Message) Text() string {
	if m.kind == Binary {
		m.once.Do(func() {
			m.text = string(m.data)
		})
	}
	return m.text
}

// Len returns the payload length in bytes.
func (m *Message) Len() int {
	return len(m.Bytes())
}

// Equal reports value equality over (kind, payload).
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.kind != other.kind {
		return false
	}
	return bytes.Equal(m.Bytes(), other.Bytes())
}

// Hash returns an FNV-1a hash over (kind, payload), consistent with Equal.
func (m *Message) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte{byte(m.kind)})
	h.Write(m.Bytes())
	return h.Sum32()
}

// Clone returns an independent copy. The clone compares Equal to the
// original but has its own identity, which matters for ping send-matching
// across connections.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	if m.kind == Text {
		return NewText(m.Text())
	}
	return NewBinary(m.Bytes())
}

// String returns a short description for logging.
func (m *Message) String() string {
	if m == nil {
		return "message(nil)"
	}
	return fmt.Sprintf("message(%s, %d bytes)", m.kind, m.Len())
}
