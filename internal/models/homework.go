package models

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type HomeworkStatus string

const (
	HomeworkAssigned   HomeworkStatus = "assigned"
	HomeworkInProgress HomeworkStatus = "in_progress"
	HomeworkSubmitted  HomeworkStatus = "submitted"
	HomeworkGraded     HomeworkStatus = "graded"
	HomeworkOverdue    HomeworkStatus = "overdue"
)

const DefaultQuestionPoints = 10

type Question struct {
	ID          string     `bson:"id" json:"id"`
	Prompt      string     `bson:"prompt" json:"prompt"`
	Points      int        `bson:"points" json:"points"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

type Homework struct {
	ID          string         `bson:"_id" json:"id"`
	Title       string         `bson:"title" json:"title"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Subject     string         `bson:"subject" json:"subject"`
	StudentID   string         `bson:"studentId" json:"studentId"`
	LessonID    string         `bson:"lessonId,omitempty" json:"lessonId,omitempty"`
	DueDate     time.Time      `bson:"dueDate" json:"dueDate"`
	Status      HomeworkStatus `bson:"status" json:"status"`
	Questions   []Question     `bson:"questions" json:"questions"`
	Score       *float64       `bson:"score,omitempty" json:"score,omitempty"`
	MaxScore    int            `bson:"maxScore" json:"maxScore"`
	Feedback    string         `bson:"feedback,omitempty" json:"feedback,omitempty"`
	SubmittedAt *time.Time     `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	GradedAt    *time.Time     `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

func (h *Homework) IsClosed() bool {
	return h.Status == HomeworkSubmitted || h.Status == HomeworkGraded
}

func (h *Homework) Progress() (completed, total int) {
	for _, q := range h.Questions {
		if q.Completed {
			completed++
		}
	}
	return completed, len(h.Questions)
}

// Percentage reports the graded score as a percentage of maxScore.
func (h *Homework) Percentage() (float64, bool) {
	if h.Status != HomeworkGraded || h.Score == nil || h.MaxScore <= 0 {
		return 0, false
	}
	return *h.Score / float64(h.MaxScore) * 100, true
}

// CWA is the mean percentage over graded homework, rounded to two decimals.
func CWA(homework []Homework) float64 {
	var sum float64
	var n int
	for i := range homework {
		if pct, ok := homework[i].Percentage(); ok {
			sum += pct
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// QuestionInput.Points falls back to DefaultQuestionPoints only when omitted; zero is kept.
type QuestionInput struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
	Points *int   `json:"points" validate:"omitempty,min=0,max=1000"`
}

type CreateHomeworkRequest struct {
	Title       string          `json:"title" validate:"required,min=2,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Subject     string          `json:"subject" validate:"required"`
	StudentID   string          `json:"studentId" validate:"required,objectid"`
	LessonID    string          `json:"lessonId"`
	DueDate     time.Time       `json:"dueDate" validate:"required"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

type UpdateHomeworkRequest struct {
	Title       *string         `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Subject     *string         `json:"subject" validate:"omitempty,min=1"`
	StudentID   *string         `json:"studentId" validate:"omitempty,min=1"`
	DueDate     *time.Time      `json:"dueDate"`
	Status      *HomeworkStatus `json:"status" validate:"omitempty,oneof=assigned in_progress submitted graded overdue"`
	Feedback    *string         `json:"feedback" validate:"omitempty,max=2000"`
}

func (r *UpdateHomeworkRequest) Fields() bson.M {
	fields := bson.M{}
	if r.Title != nil {
		fields["title"] = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Subject != nil {
		fields["subject"] = *r.Subject
	}
	if r.StudentID != nil {
		fields["studentId"] = *r.StudentID
	}
	if r.DueDate != nil {
		fields["dueDate"] = r.DueDate.UTC()
	}
	if r.Status != nil {
		fields["status"] = *r.Status
	}
	if r.Feedback != nil {
		fields["feedback"] = *r.Feedback
	}
	return fields
}

type GradeHomeworkRequest struct {
	Score    float64 `json:"score" validate:"min=0"`
	Feedback string  `json:"feedback" validate:"max=2000"`
}

type HomeworkFilter struct {
	StudentID string
	Subject   string
	Status    string
	Search    string
}

type HomeworkStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	CompletionRate float64        `json:"completionRate"`
	AverageScore   float64        `json:"averageScore"`
	Overdue        int            `json:"overdue"`
	DueThisWeek    int            `json:"dueThisWeek"`
}

// QuestionCompletion is returned to the student after completing a question.
type QuestionCompletion struct {
	Homework  *Homework `json:"homework"`
	XPAwarded int       `json:"xpAwarded"`
	TotalXP   int       `json:"totalXp"`
	Level     int       `json:"level"`
}
