package cache

import (
	"time"

	"ashare_store/internal/domain"
)

// refreshHour is the local hour by which the previous session's data has been loaded.
const refreshHour = 9

// TimeUntilNextRefresh returns the duration from now until the next 09:00 Beijing time.
// Cached daily ranges live until then.
func TimeUntilNextRefresh(now time.Time) time.Duration {
	local := now.In(domain.MarketLocation)

	next := time.Date(local.Year(), local.Month(), local.Day(), refreshHour, 0, 0, 0, domain.MarketLocation)
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}
