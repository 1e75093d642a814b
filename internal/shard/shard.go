// Package shard provides hash-distributed partition keys for claim records.
package shard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UniqueConstraintPK computes a hash-distributed partition key for a unique constraint.
// Each constraint lands on its own partition, so hot emails do not share one.
func UniqueConstraintPK(entityType, field, value string) string {
	data := fmt.Sprintf("%s#%s#%s", entityType, field, value)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}
