package redis

import (
	"fmt"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Key prefix for all chess data
const keyPrefix = "chessgame"

// sessionKey returns the Redis key for a Session
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// sessionsByCreatedKey returns the key of the ZSET ordering sessions by creation time
func sessionsByCreatedKey() string {
	return fmt.Sprintf("%s:idx:sessions_by_created", keyPrefix)
}
