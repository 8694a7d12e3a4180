package engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// Seeds is the pair of seeds a round stream is derived from.
type Seeds struct {
	Server string `json:"server"` // ASCII; do NOT hex-decode
	Client string `json:"client"`
}

// HashServerSeed returns the hex SHA-256 of the server seed. Stored and
// logged in place of the raw seed.
func HashServerSeed(serverSeed string) string {
	if serverSeed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
