// Package cache keeps verification outcomes in process memory so repeated
// claims are not re-verified within the TTL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/faultline/internal/model"
)

// Store holds verification outcomes by key
type Store interface {
	Get(key string) (model.VerificationOutcome, bool)
	Set(key string, outcome model.VerificationOutcome, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// Key fingerprints a claim for one provider and model. Claim text is
// compared case-insensitively with whitespace collapsed.
func Key(provider, modelName, claimText string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(claimText)), " ")
	hash := sha256.Sum256([]byte(provider + "\x00" + modelName + "\x00" + normalized))
	return "faultline:v1:" + hex.EncodeToString(hash[:])
}
