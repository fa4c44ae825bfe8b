package rediskey

import "fmt"

// Key prefixes shared by every process that talks to the same redis.
const (
	ReadingPrefix       = "reading"
	ReadingCancelPrefix = "reading:cancel"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildReadingCancelKey returns "reading:cancel:{sessionID}"
func BuildReadingCancelKey(sessionID string) string {
	return NamespaceKey(ReadingCancelPrefix, sessionID)
}
