package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	openHomeworkStatuses        = []any{models.HomeworkAssigned, models.HomeworkInProgress}
	completableHomeworkStatuses = []any{models.HomeworkAssigned, models.HomeworkInProgress, models.HomeworkOverdue}
)

type HomeworkService struct {
	homework  repository.Store[models.Homework]
	users     *UserService
	publisher event.Publisher
	now       Clock
}

func NewHomeworkService(homework repository.Store[models.Homework], users *UserService, publisher event.Publisher) *HomeworkService {
	return &HomeworkService{
		homework:  homework,
		users:     users,
		publisher: publisher,
		now:       utcNow,
	}
}

// newHomework assigns question ids and derives maxScore from the question points.
func newHomework(req *models.CreateHomeworkRequest, now time.Time) *models.Homework {
	questions := make([]models.Question, 0, len(req.Questions))
	maxScore := 0
	for _, in := range req.Questions {
		points := models.DefaultQuestionPoints
		if in.Points != nil {
			points = *in.Points
		}
		questions = append(questions, models.Question{
			ID:     uuid.NewString(),
			Prompt: strings.TrimSpace(in.Prompt),
			Points: points,
		})
		maxScore += points
	}

	return &models.Homework{
		ID:          newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Subject:     strings.TrimSpace(req.Subject),
		StudentID:   req.StudentID,
		LessonID:    req.LessonID,
		DueDate:     req.DueDate.UTC(),
		Status:      models.HomeworkAssigned,
		Questions:   questions,
		MaxScore:    maxScore,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func homeworkQuery(filter models.HomeworkFilter) repository.Query {
	return repository.NewQuery().
		WhereNotEmpty("studentId", filter.StudentID).
		WhereNotEmpty("subject", filter.Subject).
		WhereNotEmpty("status", filter.Status).
		Matching(filter.Search, "title")
}

func (s *HomeworkService) GetAll(ctx context.Context, filter models.HomeworkFilter, page, limit int) (*models.Page[models.Homework], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := homeworkQuery(filter)

	total, err := s.homework.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	items, err := s.homework.Find(ctx, q.SortBy("-createdAt").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(items, total, page, limit), nil
}

func (s *HomeworkService) GetByID(ctx context.Context, id string) (*models.Homework, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.homework.FindByID(ctx, id)
}

// GetForStudent returns the homework only when it is assigned to studentID.
func (s *HomeworkService) GetForStudent(ctx context.Context, studentID, id string) (*models.Homework, error) {
	hw, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hw.StudentID != studentID {
		return nil, ErrNotFound
	}
	return hw, nil
}

func (s *HomeworkService) Create(ctx context.Context, req *models.CreateHomeworkRequest) (*models.Homework, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	hw := newHomework(req, s.now())
	if err := s.homework.Insert(ctx, hw); err != nil {
		return nil, err
	}

	s.publish(ctx, event.HomeworkAssigned, hw, "")
	return hw, nil
}

func (s *HomeworkService) Update(ctx context.Context, id string, req *models.UpdateHomeworkRequest) (*models.Homework, error) {
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
	return s.homework.Update(ctx, id, fields)
}

func (s *HomeworkService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.homework.Delete(ctx, id)
}

// CompleteQuestion marks one question done, awards its points as XP and moves assigned
// homework to in_progress. A question can only be completed once.
func (s *HomeworkService) CompleteQuestion(ctx context.Context, studentID, homeworkID, questionID string) (*models.QuestionCompletion, error) {
	hw, err := s.GetForStudent(ctx, studentID, homeworkID)
	if err != nil {
		return nil, err
	}
	if hw.IsClosed() {
		return nil, ErrHomeworkClosed
	}

	idx := -1
	for i, q := range hw.Questions {
		if q.ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrQuestionNotFound
	}
	if hw.Questions[idx].Completed {
		return nil, ErrQuestionCompleted
	}

	// Only one of several concurrent calls can match the question while it is still open.
	now := s.now()
	guard := repository.NewQuery().
		Where("_id", hw.ID).
		Where("studentId", studentID).
		WhereIn("status", completableHomeworkStatuses...).
		WhereElem("questions", map[string]any{"id": questionID, "completed": false})
	updated, err := s.homework.UpdateOne(ctx, guard, bson.M{
		"questions.$.completed":   true,
		"questions.$.completedAt": now,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.completionConflict(ctx, studentID, homeworkID)
	}
	if err != nil {
		return nil, err
	}

	if updated.Status == models.HomeworkAssigned {
		started, err := s.homework.UpdateOne(ctx, repository.NewQuery().
			Where("_id", hw.ID).
			Where("status", models.HomeworkAssigned), bson.M{"status": models.HomeworkInProgress})
		switch {
		case err == nil:
			updated = started
		case !errors.Is(err, repository.ErrNotFound):
			log.Printf("Failed to start homework %s: %v", hw.ID, err)
		}
	}

	points := hw.Questions[idx].Points
	result := &models.QuestionCompletion{Homework: updated, XPAwarded: points}
	if s.users != nil {
		user, err := s.users.RecordQuestionCompleted(ctx, studentID, points)
		if err != nil {
			log.Printf("Failed to award xp for question %s to %s: %v", questionID, studentID, err)
		} else {
			result.TotalXP = user.XP
			result.Level = user.Level()
		}
	}

	s.publish(ctx, event.HomeworkQuestionCompleted, updated, questionID)
	return result, nil
}

// completionConflict explains why the guarded completion matched nothing.
func (s *HomeworkService) completionConflict(ctx context.Context, studentID, homeworkID string) error {
	hw, err := s.GetForStudent(ctx, studentID, homeworkID)
	if err != nil {
		return err
	}
	if hw.IsClosed() {
		return ErrHomeworkClosed
	}
	return ErrQuestionCompleted
}

func (s *HomeworkService) Submit(ctx context.Context, studentID, homeworkID string) (*models.Homework, error) {
	hw, err := s.GetForStudent(ctx, studentID, homeworkID)
	if err != nil {
		return nil, err
	}
	if hw.IsClosed() {
		return nil, ErrHomeworkClosed
	}

	updated, err := s.homework.Update(ctx, hw.ID, bson.M{
		"status":      models.HomeworkSubmitted,
		"submittedAt": s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.HomeworkSubmitted, updated, "")
	return updated, nil
}

func (s *HomeworkService) Grade(ctx context.Context, id string, req *models.GradeHomeworkRequest) (*models.Homework, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	hw, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Score < 0 || req.Score > float64(hw.MaxScore) {
		return nil, ErrScoreOutOfRange
	}

	updated, err := s.homework.Update(ctx, hw.ID, bson.M{
		"status":   models.HomeworkGraded,
		"score":    req.Score,
		"feedback": req.Feedback,
		"gradedAt": s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.HomeworkGraded, updated, "")
	return updated, nil
}

func (s *HomeworkService) CWA(ctx context.Context, studentID string) (float64, error) {
	graded, err := s.homework.Find(ctx, repository.NewQuery().
		Where("studentId", studentID).
		Where("status", models.HomeworkGraded))
	if err != nil {
		return 0, err
	}
	return models.CWA(graded), nil
}

// Pending lists a student's unfinished homework, soonest due first.
func (s *HomeworkService) Pending(ctx context.Context, studentID string, limit int) ([]models.Homework, error) {
	q := repository.NewQuery().
		Where("studentId", studentID).
		WhereIn("status", models.HomeworkAssigned, models.HomeworkInProgress, models.HomeworkOverdue).
		SortBy("dueDate")
	q.Limit = int64(limit)
	return s.homework.Find(ctx, q)
}

// MarkOverdue flags open homework whose due date has passed.
func (s *HomeworkService) MarkOverdue(ctx context.Context) (int64, error) {
	now := s.now()
	q := repository.NewQuery().
		WhereIn("status", openHomeworkStatuses...).
		Between("dueDate", nil, &now)

	updated, err := s.homework.UpdateMany(ctx, q, bson.M{"status": models.HomeworkOverdue})
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue homework: %w", err)
	}
	return updated, nil
}

func (s *HomeworkService) Recent(ctx context.Context, n int) ([]models.Homework, error) {
	q := repository.NewQuery().SortBy("-createdAt")
	q.Limit = int64(n)
	return s.homework.Find(ctx, q)
}

func (s *HomeworkService) GetStats(ctx context.Context) (*models.HomeworkStats, error) {
	items, err := s.homework.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekAhead := now.AddDate(0, 0, 7)
	stats := &models.HomeworkStats{
		Total:    len(items),
		ByStatus: map[string]int{},
	}

	var done int
	for _, hw := range items {
		stats.ByStatus[string(hw.Status)]++

		open := hw.Status == models.HomeworkAssigned || hw.Status == models.HomeworkInProgress
		switch {
		case hw.IsClosed():
			done++
		case hw.Status == models.HomeworkOverdue, open && hw.DueDate.Before(now):
			stats.Overdue++
		case open && hw.DueDate.Before(weekAhead):
			stats.DueThisWeek++
		}
	}

	if len(items) > 0 {
		stats.CompletionRate = models.Round2(float64(done) / float64(len(items)) * 100)
	}
	stats.AverageScore = models.CWA(items)
	return stats, nil
}

func (s *HomeworkService) publish(ctx context.Context, eventType event.EventType, hw *models.Homework, questionID string) {
	if s.publisher == nil {
		return
	}
	evt := event.NewHomeworkEvent(eventType, hw.ID, hw.StudentID, hw.Subject, string(hw.Status))
	evt.QuestionID = questionID
	evt.Score = hw.Score
	evt.MaxScore = hw.MaxScore
	if err := s.publisher.PublishHomeworkEvent(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event for homework %s: %v", eventType, hw.ID, err)
	}
}
