package services

import (
	"context"
	"log"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"time"
)

const (
	adminStatsKey    = "stats:admin"
	recentItemsCount = 5
	dashboardItems   = 5
)

// StatsService assembles the admin overview and the student dashboard from the
// per-resource services.
type StatsService struct {
	users      *UserService
	lessons    *LessonService
	homework   *HomeworkService
	subjects   *SubjectService
	topicVault *TopicVaultService
	pastPapers *PastPaperService
	cache      repository.Cache
	ttl        time.Duration
	now        Clock
}

type StatsSources struct {
	Users      *UserService
	Lessons    *LessonService
	Homework   *HomeworkService
	Subjects   *SubjectService
	TopicVault *TopicVaultService
	PastPapers *PastPaperService
}

func NewStatsService(src StatsSources, cache repository.Cache, ttl time.Duration) *StatsService {
	if cache == nil {
		cache = repository.NoopCache{}
	}
	return &StatsService{
		users:      src.Users,
		lessons:    src.Lessons,
		homework:   src.Homework,
		subjects:   src.Subjects,
		topicVault: src.TopicVault,
		pastPapers: src.PastPapers,
		cache:      cache,
		ttl:        ttl,
		now:        utcNow,
	}
}

func (s *StatsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	var cached models.AdminStats
	hit, err := s.cache.Get(ctx, adminStatsKey, &cached)
	if err != nil {
		log.Printf("Failed to read cached admin stats: %v", err)
	}
	if hit {
		return &cached, nil
	}

	stats := &models.AdminStats{GeneratedAt: s.now()}
	if stats.Students, err = s.users.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.Lessons, err = s.lessons.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.Homework, err = s.homework.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.Subjects, err = s.subjects.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.TopicVault, err = s.topicVault.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.PastPapers, err = s.pastPapers.GetStats(ctx); err != nil {
		return nil, err
	}
	if stats.RecentStudents, err = s.users.Recent(ctx, recentItemsCount); err != nil {
		return nil, err
	}
	if stats.RecentHomework, err = s.homework.Recent(ctx, recentItemsCount); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, adminStatsKey, stats, s.ttl); err != nil {
		log.Printf("Failed to cache admin stats: %v", err)
	}
	return stats, nil
}

// InvalidateAdminStats drops the cached overview, used after bulk writes.
func (s *StatsService) InvalidateAdminStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, adminStatsKey); err != nil {
		log.Printf("Failed to invalidate admin stats: %v", err)
	}
}

func (s *StatsService) StudentDashboard(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	student, err := s.users.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	cwa, err := s.homework.CWA(ctx, studentID)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.lessons.Upcoming(ctx, studentID, dashboardItems)
	if err != nil {
		return nil, err
	}
	pending, err := s.homework.Pending(ctx, studentID, dashboardItems)
	if err != nil {
		return nil, err
	}

	return &models.StudentDashboard{
		Student:            student,
		Level:              student.Level(),
		CWA:                cwa,
		XP:                 student.XP,
		WeeklyXP:           student.WeeklyXP,
		CompletedQuestions: student.CompletedQuestions,
		Streak:             student.Streak,
		UpcomingLessons:    upcoming,
		PendingHomework:    pending,
	}, nil
}
