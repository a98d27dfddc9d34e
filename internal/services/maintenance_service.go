package services

import (
	"context"
	"fmt"
	"log"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	TaskOverdueHomework = "overdue-homework"
	TaskCompleteLessons = "complete-lessons"
	TaskResetWeeklyXP   = "reset-weekly-xp"

	weeklyResetSchedule = "0 0 * * 1"
	maintenanceTimeout  = 4 * time.Minute
)

// MaintenanceService runs the periodic housekeeping tasks, either on demand from the
// cron endpoints or on an in-process schedule. A task that changes anything drops the
// cached admin stats, however it was triggered.
type MaintenanceService struct {
	homework  *HomeworkService
	lessons   *LessonService
	users     *UserService
	stats     *StatsService
	publisher event.Publisher
	now       Clock
}

func NewMaintenanceService(homework *HomeworkService, lessons *LessonService, users *UserService, stats *StatsService, publisher event.Publisher) *MaintenanceService {
	return &MaintenanceService{
		homework:  homework,
		lessons:   lessons,
		users:     users,
		stats:     stats,
		publisher: publisher,
		now:       utcNow,
	}
}

func (s *MaintenanceService) MarkOverdueHomework(ctx context.Context) (int64, error) {
	n, err := s.homework.MarkOverdue(ctx)
	if err != nil {
		return 0, err
	}
	s.finish(ctx, TaskOverdueHomework, n)
	return n, nil
}

func (s *MaintenanceService) CompleteFinishedLessons(ctx context.Context) (int64, error) {
	n, err := s.lessons.CompleteFinished(ctx)
	if err != nil {
		return 0, err
	}
	s.finish(ctx, TaskCompleteLessons, n)
	return n, nil
}

func (s *MaintenanceService) ResetWeeklyXP(ctx context.Context) (int64, error) {
	n, err := s.users.ResetWeeklyXP(ctx)
	if err != nil {
		return 0, err
	}
	s.finish(ctx, TaskResetWeeklyXP, n)
	return n, nil
}

// RunAll marks overdue homework and completes finished lessons. The weekly XP reset only
// runs when includeWeekly is set, since it is destructive outside its weekly slot.
func (s *MaintenanceService) RunAll(ctx context.Context, includeWeekly bool) (*models.MaintenanceResult, error) {
	result := &models.MaintenanceResult{RanAt: s.now()}

	var err error
	if result.OverdueHomework, err = s.MarkOverdueHomework(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", TaskOverdueHomework, err)
	}
	if result.CompletedLessons, err = s.CompleteFinishedLessons(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", TaskCompleteLessons, err)
	}
	if includeWeekly {
		if result.WeeklyXPReset, err = s.ResetWeeklyXP(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", TaskResetWeeklyXP, err)
		}
	}
	return result, nil
}

// StartSchedule registers RunAll on schedule and the weekly XP reset every Monday at
// midnight UTC. It returns nil when schedule is empty. Callers stop the returned cron.
func (s *MaintenanceService) StartSchedule(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
		defer cancel()
		result, err := s.RunAll(ctx, false)
		if err != nil {
			log.Printf("Scheduled maintenance failed: %v", err)
			return
		}
		log.Printf("Scheduled maintenance: %d homework overdue, %d lessons completed", result.OverdueHomework, result.CompletedLessons)
	}); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	if _, err := c.AddFunc(weeklyResetSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
		defer cancel()
		n, err := s.ResetWeeklyXP(ctx)
		if err != nil {
			log.Printf("Scheduled weekly xp reset failed: %v", err)
			return
		}
		log.Printf("Scheduled weekly xp reset: %d students", n)
	}); err != nil {
		return nil, fmt.Errorf("invalid weekly reset schedule: %w", err)
	}

	c.Start()
	log.Printf("Maintenance schedule started: %q, weekly reset %q", schedule, weeklyResetSchedule)
	return c, nil
}

func (s *MaintenanceService) finish(ctx context.Context, task string, affected int64) {
	if affected > 0 && s.stats != nil {
		s.stats.InvalidateAdminStats(ctx)
	}
	s.publish(ctx, task, affected)
}

func (s *MaintenanceService) publish(ctx context.Context, task string, affected int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMaintenanceEvent(ctx, event.NewMaintenanceEvent(task, affected)); err != nil {
		log.Printf("Failed to publish maintenance event for %s: %v", task, err)
	}
}
