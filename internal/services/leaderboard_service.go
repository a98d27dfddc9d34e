package services

import (
	"context"
	"log"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"time"
)

type LeaderboardPeriod string

const (
	LeaderboardAllTime LeaderboardPeriod = "all"
	LeaderboardWeekly  LeaderboardPeriod = "weekly"

	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

func ParseLeaderboardPeriod(raw string) LeaderboardPeriod {
	if raw == string(LeaderboardWeekly) || raw == "weeklyXp" {
		return LeaderboardWeekly
	}
	return LeaderboardAllTime
}

// LeaderboardService ranks active students by XP. Each board is cached whole (up to
// MaxLeaderboardSize entries) and trimmed per request.
type LeaderboardService struct {
	users repository.Store[models.User]
	cache repository.Cache
	ttl   time.Duration
}

func NewLeaderboardService(users repository.Store[models.User], cache repository.Cache, ttl time.Duration) *LeaderboardService {
	if cache == nil {
		cache = repository.NoopCache{}
	}
	return &LeaderboardService{
		users: users,
		cache: cache,
		ttl:   ttl,
	}
}

func leaderboardKey(period LeaderboardPeriod) string {
	return "leaderboard:" + string(period)
}

func (s *LeaderboardService) Top(ctx context.Context, period LeaderboardPeriod, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	var board []models.LeaderboardEntry
	hit, err := s.cache.Get(ctx, leaderboardKey(period), &board)
	if err != nil {
		log.Printf("Failed to read cached leaderboard: %v", err)
	}
	if !hit {
		board, err = s.build(ctx, period)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, leaderboardKey(period), board, s.ttl); err != nil {
			log.Printf("Failed to cache leaderboard: %v", err)
		}
	}

	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

func (s *LeaderboardService) build(ctx context.Context, period LeaderboardPeriod) ([]models.LeaderboardEntry, error) {
	sort := "-xp,name"
	if period == LeaderboardWeekly {
		sort = "-weeklyXp,-xp,name"
	}

	q := repository.NewQuery().
		Where("role", models.RoleStudent).
		Where("isActive", true).
		SortBy(sort)
	q.Limit = MaxLeaderboardSize

	students, err := s.users.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	board := make([]models.LeaderboardEntry, 0, len(students))
	for i, u := range students {
		board = append(board, models.LeaderboardEntry{
			Rank:      i + 1,
			StudentID: u.ID,
			Name:      u.Name,
			Grade:     u.Grade,
			XP:        u.XP,
			WeeklyXP:  u.WeeklyXP,
			Level:     u.Level(),
		})
	}
	return board, nil
}

// Invalidate drops every cached board.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	err := s.cache.Delete(ctx, leaderboardKey(LeaderboardAllTime), leaderboardKey(LeaderboardWeekly))
	if err != nil {
		log.Printf("Failed to invalidate leaderboard cache: %v", err)
	}
}
