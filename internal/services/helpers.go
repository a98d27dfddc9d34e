package services

import (
	"proacademics-service/internal/models"
	"time"
)

// Clock lets tests pin "now".
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

const statsWindowDays = 30

// dailyCounts buckets times into the last `days` UTC days ending today, oldest first.
// Times outside the window are ignored.
func dailyCounts(times []time.Time, now time.Time, days int) []models.DailyCount {
	first := startOfDay(now).AddDate(0, 0, -(days - 1))
	buckets := make([]models.DailyCount, days)
	index := make(map[string]int, days)
	for i := range buckets {
		day := first.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = models.DailyCount{Date: day}
		index[day] = i
	}
	for _, t := range times {
		if i, ok := index[t.UTC().Format("2006-01-02")]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
