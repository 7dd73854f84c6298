package utils

import "github.com/google/uuid"

// GenerateID generates a unique ID for requests and batches
func GenerateID() string {
	return uuid.New().String()
}

// ContentKey derives a stable cache key from decode input. The row policy is
// part of the key because it changes what the same bytes decode to.
func ContentKey(policy string, content []byte) string {
	return "s2p:" + policy + ":" + uuid.NewSHA1(uuid.NameSpaceOID, content).String()
}
