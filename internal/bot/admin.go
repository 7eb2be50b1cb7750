package bot

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// AllowList authorizes privileged actions. It stores salted SHA-256 hashes of
// the admin chat IDs, never the raw IDs.
type AllowList struct {
	salt   string
	hashes map[string]struct{}
}

// NewAllowList precomputes the hash set from the configured admin IDs.
func NewAllowList(salt string, adminIDs []string) *AllowList {
	hashes := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		hashes[hashID(salt, id)] = struct{}{}
	}
	return &AllowList{salt: salt, hashes: hashes}
}

// Allowed reports whether the chat user may run privileged actions.
func (a *AllowList) Allowed(userID int64) bool {
	_, ok := a.hashes[hashID(a.salt, strconv.FormatInt(userID, 10))]
	return ok
}

func hashID(salt, id string) string {
	sum := sha256.Sum256([]byte(salt + id))
	return hex.EncodeToString(sum[:])
}
