package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// Invoice returns a time-seeded invoice number. Collisions are possible
// under concurrent commits; callers retry with Retry on a duplicate.
func Invoice() string {
	return fmt.Sprintf("INV-%d", time.Now().UnixMilli())
}

// Retry returns a fresh invoice number with a random suffix, used after a
// duplicate-invoice failure.
func Retry() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("INV-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
