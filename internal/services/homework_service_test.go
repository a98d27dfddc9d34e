package services

import (
	"context"
	"errors"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func assignHomework(t *testing.T, ts *testServices, studentID string, due time.Time, points ...int) *models.Homework {
	t.Helper()
	questions := make([]models.QuestionInput, 0, len(points))
	for _, p := range points {
		questions = append(questions, models.QuestionInput{Prompt: "Solve it", Points: &p})
	}
	hw, err := ts.homework.Create(context.Background(), &models.CreateHomeworkRequest{
		Title:     "Quadratics worksheet",
		Subject:   "Mathematics",
		StudentID: studentID,
		DueDate:   due,
		Questions: questions,
	})
	require.NoError(t, err)
	return hw
}

func TestHomeworkCreateComputesMaxScore(t *testing.T) {
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	five := 5

	hw, err := ts.homework.Create(context.Background(), &models.CreateHomeworkRequest{
		Title:     "Quadratics worksheet",
		Subject:   "Mathematics",
		StudentID: student.ID,
		DueDate:   testNow.AddDate(0, 0, 3),
		Questions: []models.QuestionInput{{Prompt: "Expand", Points: &five}, {Prompt: "Factorise"}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.HomeworkAssigned, hw.Status)
	assert.Equal(t, 15, hw.MaxScore)
	require.Len(t, hw.Questions, 2)
	assert.Equal(t, models.DefaultQuestionPoints, hw.Questions[1].Points)
	assert.NotEqual(t, hw.Questions[0].ID, hw.Questions[1].ID)
	assert.Contains(t, ts.publisher.published(), event.HomeworkAssigned)
}

func TestHomeworkCreateKeepsExplicitZeroPoints(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	hw := assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 3), 0, 20)
	assert.Equal(t, 20, hw.MaxScore)
	assert.Equal(t, 0, hw.Questions[0].Points)

	result, err := ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.XPAwarded)
	assert.Equal(t, 0, result.TotalXP)
}

func TestHomeworkCreateRejectsInvalidStudent(t *testing.T) {
	ts := newTestServices(t)
	_, err := ts.homework.Create(context.Background(), &models.CreateHomeworkRequest{
		Title:     "Essay",
		Subject:   "English",
		StudentID: "not-an-id",
		DueDate:   testNow,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteQuestionAwardsXP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	hw := assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 3), 15, 10)

	result, err := ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
	require.NoError(t, err)

	assert.Equal(t, 15, result.XPAwarded)
	assert.Equal(t, 15, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, models.HomeworkInProgress, result.Homework.Status)
	assert.True(t, result.Homework.Questions[0].Completed)
	assert.False(t, result.Homework.Questions[1].Completed)

	updated, err := ts.users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, updated.XP)
	assert.Equal(t, 15, updated.WeeklyXP)
	assert.Equal(t, 1, updated.CompletedQuestions)
	assert.Equal(t, 1, updated.Streak)

	_, err = ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
	assert.ErrorIs(t, err, ErrQuestionCompleted)

	_, err = ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, "missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

// gatedHomeworkStore holds the first n reads until all n callers have read, so every
// caller sees the homework before any of them writes.
type gatedHomeworkStore struct {
	*repository.MemoryStore[models.Homework]
	n       int64
	reads   atomic.Int64
	arrived sync.WaitGroup
}

func newGatedHomeworkStore(store *repository.MemoryStore[models.Homework], n int) *gatedHomeworkStore {
	g := &gatedHomeworkStore{MemoryStore: store, n: int64(n)}
	g.arrived.Add(n)
	return g
}

func (g *gatedHomeworkStore) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	hw, err := g.MemoryStore.FindByID(ctx, id)
	if g.reads.Add(1) <= g.n {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return hw, err
}

func TestCompleteQuestionConcurrentCallsAwardOnce(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	hw := assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 3), 15, 10)

	const callers = 5
	homework := NewHomeworkService(newGatedHomeworkStore(ts.homeworkStore, callers), ts.users, ts.publisher)
	homework.now = fixedClock

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		conflicts atomic.Int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrQuestionCompleted):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
	assert.Equal(t, int64(callers-1), conflicts.Load())

	user, err := ts.users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, user.XP)
	assert.Equal(t, 1, user.CompletedQuestions)

	stored, err := ts.homework.GetByID(ctx, hw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkInProgress, stored.Status)
	assert.True(t, stored.Questions[0].Completed)
	require.NotNil(t, stored.Questions[0].CompletedAt)
	assert.True(t, stored.Questions[0].CompletedAt.Equal(testNow))
	assert.False(t, stored.Questions[1].Completed)
}

func TestCompleteQuestionOnOverdueHomework(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	hw := assignHomework(t, ts, student.ID, testNow.Add(-time.Hour), 10)
	_, err := ts.homeworkStore.Update(ctx, hw.ID, bson.M{"status": models.HomeworkOverdue})
	require.NoError(t, err)

	result, err := ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkOverdue, result.Homework.Status)
	assert.Equal(t, 10, result.XPAwarded)
}

func TestCompleteQuestionRejectsOtherStudents(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	other := ts.createStudent(t, "Alan Turing", "alan@example.com")
	hw := assignHomework(t, ts, owner.ID, testNow.AddDate(0, 0, 3), 10)

	_, err := ts.homework.CompleteQuestion(context.Background(), other.ID, hw.ID, hw.Questions[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAndGrade(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	hw := assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 3), 10, 10)

	submitted, err := ts.homework.Submit(ctx, student.ID, hw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	_, err = ts.homework.Submit(ctx, student.ID, hw.ID)
	assert.ErrorIs(t, err, ErrHomeworkClosed)

	_, err = ts.homework.CompleteQuestion(ctx, student.ID, hw.ID, hw.Questions[0].ID)
	assert.ErrorIs(t, err, ErrHomeworkClosed)

	_, err = ts.homework.Grade(ctx, hw.ID, &models.GradeHomeworkRequest{Score: 21})
	assert.ErrorIs(t, err, ErrScoreOutOfRange)

	graded, err := ts.homework.Grade(ctx, hw.ID, &models.GradeHomeworkRequest{Score: 15, Feedback: "Good work"})
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkGraded, graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 15.0, *graded.Score)

	cwa, err := ts.homework.CWA(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cwa)
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	late := assignHomework(t, ts, student.ID, testNow.Add(-time.Hour), 10)
	onTime := assignHomework(t, ts, student.ID, testNow.Add(time.Hour), 10)
	submitted := assignHomework(t, ts, student.ID, testNow.Add(-time.Hour), 10)
	_, err := ts.homework.Submit(ctx, student.ID, submitted.ID)
	require.NoError(t, err)

	n, err := ts.homework.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := ts.homework.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkOverdue, got.Status)

	got, err = ts.homework.GetByID(ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HomeworkAssigned, got.Status)

	pending, err := ts.homework.Pending(ctx, student.ID, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, late.ID, pending[0].ID)
}

func TestHomeworkStats(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	assignHomework(t, ts, student.ID, testNow.Add(-time.Hour), 10)
	assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 2), 10)
	assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 30), 10)
	graded := assignHomework(t, ts, student.ID, testNow.AddDate(0, 0, 1), 10)
	_, err := ts.homework.Grade(ctx, graded.ID, &models.GradeHomeworkRequest{Score: 5})
	require.NoError(t, err)

	stats, err := ts.homework.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByStatus["assigned"])
	assert.Equal(t, 1, stats.ByStatus["graded"])
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.DueThisWeek)
	assert.Equal(t, 25.0, stats.CompletionRate)
	assert.Equal(t, 50.0, stats.AverageScore)
}

func TestHomeworkGetAllFilters(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	alan := ts.createStudent(t, "Alan Turing", "alan@example.com")
	assignHomework(t, ts, ada.ID, testNow, 10)
	assignHomework(t, ts, ada.ID, testNow, 10)
	assignHomework(t, ts, alan.ID, testNow, 10)

	page, err := ts.homework.GetAll(ctx, models.HomeworkFilter{StudentID: ada.ID}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	page, err = ts.homework.GetAll(ctx, models.HomeworkFilter{Search: "QUADRATICS"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}
