package services

import (
	"context"
	"fmt"
	"log"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LessonService struct {
	lessons   repository.Store[models.Lesson]
	meetings  MeetingCreator
	publisher event.Publisher
	now       Clock
}

// NewLessonService accepts a nil MeetingCreator when video meetings are not configured.
func NewLessonService(lessons repository.Store[models.Lesson], meetings MeetingCreator, publisher event.Publisher) *LessonService {
	return &LessonService{
		lessons:   lessons,
		meetings:  meetings,
		publisher: publisher,
		now:       utcNow,
	}
}

func newLesson(req *models.CreateLessonRequest, now time.Time) *models.Lesson {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = models.DefaultLessonDuration
	}
	studentIDs := req.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}

	return &models.Lesson{
		ID:              newID(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Subject:         strings.TrimSpace(req.Subject),
		ProgramID:       req.ProgramID,
		Teacher:         req.Teacher,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: duration,
		Status:          models.LessonScheduled,
		MeetingURL:      req.MeetingURL,
		StudentIDs:      studentIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func lessonQuery(filter models.LessonFilter) repository.Query {
	q := repository.NewQuery().
		WhereNotEmpty("subject", filter.Subject).
		WhereNotEmpty("programId", filter.ProgramID).
		WhereNotEmpty("status", filter.Status).
		WhereNotEmpty("teacher", filter.Teacher).
		WhereNotEmpty("studentIds", filter.StudentID).
		Matching(filter.Search, "title", "description")
	return q.Between("scheduledAt", filter.From, filter.To)
}

func (s *LessonService) GetAll(ctx context.Context, filter models.LessonFilter, page, limit int) (*models.Page[models.Lesson], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := lessonQuery(filter)

	total, err := s.lessons.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.Find(ctx, q.SortBy("-scheduledAt").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(lessons, total, page, limit), nil
}

func (s *LessonService) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.lessons.FindByID(ctx, id)
}

func (s *LessonService) Create(ctx context.Context, req *models.CreateLessonRequest) (*models.Lesson, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	lesson := newLesson(req, s.now())

	if req.CreateMeeting {
		if s.meetings == nil {
			return nil, fmt.Errorf("video meetings: %w", ErrNotConfigured)
		}
		meeting, err := s.meetings.CreateMeeting(ctx, MeetingRequest{
			Topic:     lesson.Title,
			Agenda:    lesson.Description,
			StartTime: lesson.ScheduledAt,
			Duration:  lesson.DurationMinutes,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create meeting: %w", err)
		}
		lesson.MeetingURL = meeting.JoinURL
		lesson.ZoomMeetingID = meeting.ID
	}

	if err := s.lessons.Insert(ctx, lesson); err != nil {
		return nil, err
	}

	s.publish(ctx, event.LessonCreated, lesson)
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, id string, req *models.UpdateLessonRequest) (*models.Lesson, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, ErrNoChanges
	}

	lesson, err := s.lessons.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.LessonUpdated, lesson)
	return lesson, nil
}

func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, event.LessonDeleted, lesson)
	return nil
}

// Upcoming lists scheduled or live lessons a student is enrolled in that have not ended yet.
func (s *LessonService) Upcoming(ctx context.Context, studentID string, limit int) ([]models.Lesson, error) {
	now := s.now()
	from := now.Add(-12 * time.Hour)
	q := repository.NewQuery().
		WhereNotEmpty("studentIds", studentID).
		WhereIn("status", models.LessonScheduled, models.LessonLive).
		Between("scheduledAt", &from, nil).
		SortBy("scheduledAt")

	candidates, err := s.lessons.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	upcoming := make([]models.Lesson, 0, limit)
	for _, l := range candidates {
		if !l.EndsAt().After(now) {
			continue
		}
		upcoming = append(upcoming, l)
		if limit > 0 && len(upcoming) == limit {
			break
		}
	}
	return upcoming, nil
}

// CompleteFinished marks scheduled or live lessons whose end time has passed as completed.
func (s *LessonService) CompleteFinished(ctx context.Context) (int64, error) {
	now := s.now()
	q := repository.NewQuery().
		WhereIn("status", models.LessonScheduled, models.LessonLive).
		Between("scheduledAt", nil, &now)

	candidates, err := s.lessons.Find(ctx, q)
	if err != nil {
		return 0, err
	}

	var finished []any
	for _, l := range candidates {
		if !l.EndsAt().After(now) {
			finished = append(finished, l.ID)
		}
	}
	if len(finished) == 0 {
		return 0, nil
	}

	updated, err := s.lessons.UpdateMany(ctx, repository.NewQuery().WhereIn("_id", finished...), bson.M{
		"status": models.LessonCompleted,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to complete lessons: %w", err)
	}
	return updated, nil
}

func (s *LessonService) GetStats(ctx context.Context) (*models.LessonStats, error) {
	lessons, err := s.lessons.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekAhead := now.AddDate(0, 0, 7)
	monthStart := startOfMonth(now)

	stats := &models.LessonStats{
		Total:     len(lessons),
		ByStatus:  map[string]int{},
		BySubject: map[string]int{},
	}
	scheduled := make([]time.Time, 0, len(lessons))
	for _, l := range lessons {
		stats.ByStatus[string(l.Status)]++
		stats.BySubject[labelOr(l.Subject, "Unassigned")]++
		scheduled = append(scheduled, l.ScheduledAt)

		if l.Status == models.LessonScheduled && !l.ScheduledAt.Before(now) && l.ScheduledAt.Before(weekAhead) {
			stats.Upcoming++
		}
		if l.Status == models.LessonCompleted && !l.ScheduledAt.Before(monthStart) && !l.ScheduledAt.After(now) {
			stats.CompletedThisMonth++
		}
	}
	stats.LessonsPerDay = dailyCounts(scheduled, now, statsWindowDays)
	return stats, nil
}

func (s *LessonService) publish(ctx context.Context, eventType event.EventType, l *models.Lesson) {
	if s.publisher == nil {
		return
	}
	evt := event.NewLessonEvent(eventType, l.ID, l.Title, l.Subject, l.ScheduledAt, l.StudentIDs)
	if err := s.publisher.PublishLessonEvent(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event for lesson %s: %v", eventType, l.ID, err)
	}
}
