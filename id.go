package abook

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid"
)

// GenID returns a lexically sortable id for one milter connection.
func GenID() ulid.ULID {
	now := time.Now()
	entropy := rand.New(rand.NewSource(now.UnixNano()))
	return ulid.MustNew(ulid.Timestamp(now), entropy)
}
