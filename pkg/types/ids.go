package types

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu       sync.Mutex
	idEntropy  = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexicographically sortable unique id prefixed with kind
// (e.g. "ses", "brn", "msg", "prt"). Kind prefixes make ids self-describing
// in logs and storage keys without a lookup.
func NewID(kind string) string {
	idMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy)
	idMu.Unlock()
	return kind + "_" + id.String()
}

func NewSessionID() string { return NewID("ses") }
func NewBranchID() string  { return NewID("brn") }
func NewMessageID() string { return NewID("msg") }
func NewPartID() string    { return NewID("prt") }
func NewTodoID() string    { return NewID("tod") }
func NewRequestID() string { return NewID("req") }
