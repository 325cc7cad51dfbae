package redis

import (
	"fmt"

	"github.com/mcoot/werewolf/internal/model"
)

// Key prefix for all werewolf data
const keyPrefix = "werewolf"

// gameSummaryKey returns the Redis key for a finished game's summary
func gameSummaryKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamesByCompletionKey returns the Redis key for the ZSET of game IDs scored by completion time
func gamesByCompletionKey() string {
	return fmt.Sprintf("%s:idx:games_by_completion", keyPrefix)
}
