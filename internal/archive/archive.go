// Package archive stores raw fetched payloads so failed parses can be
// replayed. Objects are keyed by page id and content hash.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Store writes raw payloads and returns the object's URI.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Key builds the archive object key for a page's payload.
func Key(pageID string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s/%s.raw", pageID, hex.EncodeToString(sum[:]))
}

// NoOp discards payloads. Used when archiving is disabled.
type NoOp struct{}

// Put drops the payload and returns an empty URI.
func (NoOp) Put(context.Context, string, []byte) (string, error) {
	return "", nil
}
