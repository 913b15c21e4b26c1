// Package idgen derives issue identifiers. Ids are 8 lowercase hex
// characters so they can prefix an issue's filename.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Length of every generated id.
const Length = 8

func shortHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:Length]
}

// NewIssueID creates an id for a locally created issue. Bump nonce when the
// result collides with an existing id.
func NewIssueID(title string, created time.Time, nonce int) string {
	return shortHash(fmt.Sprintf("%s|%d|%d", title, created.UnixNano(), nonce))
}

// RemoteIssueID derives a stable id from a remote reference such as
// "github:owner/repo#42". The same remote issue always maps to the same id,
// so repeated pulls do not create duplicates.
func RemoteIssueID(ref string) string {
	return shortHash("remote|" + ref)
}
