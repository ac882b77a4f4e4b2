package rediskey

import (
	"fmt"
	"strings"
)

const (
	LeaderboardPrefix = "leaderboard"
)

func NamespaceKey(namespace string, parts ...string) string {
	return fmt.Sprintf("%s:%s", namespace, strings.Join(parts, ":"))
}

// BuildLeaderboardPageKey returns "leaderboard:{window}:{page}:{pageSize}"
func BuildLeaderboardPageKey(window string, page, pageSize int) string {
	return NamespaceKey(LeaderboardPrefix, window, fmt.Sprint(page), fmt.Sprint(pageSize))
}
