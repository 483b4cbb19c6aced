package redis

import "fmt"

const ns = "showtix:v1"

func KeyShowSummary(showID int64) string {
	return fmt.Sprintf("%s:show:%d:summary", ns, showID)
}

func KeyShowAvailability(showID int64) string {
	return fmt.Sprintf("%s:show:%d:availability", ns, showID)
}

func KeyShowSeatMap(showID int64) string {
	return fmt.Sprintf("%s:show:%d:seatmap", ns, showID)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

// KeyIdemReserve scopes an Idempotency-Key to the client that sent it, so
// two clients picking the same key never share a stored result.
func KeyIdemReserve(showID int64, client, idemKey string) string {
	return fmt.Sprintf("%s:idem:reserve:%d:%s:%s", ns, showID, client, idemKey)
}

func KeyWebhookEvent(eventID string) string {
	return fmt.Sprintf("%s:webhook:%s", ns, eventID)
}

func ChannelShowsChanged() string {
	return ns + ":shows:changed"
}
