package cache

import "fmt"

// Key layout: analysis state and its processing lock live in disjoint key
// spaces derived from the same request ID, each with an independent TTL.

func AnalysisStateKey(requestID string) string {
	return fmt.Sprintf("analysis:%s", requestID)
}

func AnalysisLockKey(requestID string) string {
	return fmt.Sprintf("analysis:lock:%s", requestID)
}

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}
