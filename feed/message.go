package feed

import "time"

// Message is one wire record: a single-byte type tag, the timestamp
// assigned by the outer transport, and the fixed-field payload.
type Message struct {
	Type      byte
	Timestamp time.Time
	Data      []byte
}
