package event

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	LessonCreated   EventType = "lesson.created"
	LessonUpdated   EventType = "lesson.updated"
	LessonDeleted   EventType = "lesson.deleted"
	LessonCompleted EventType = "lesson.completed"

	HomeworkAssigned          EventType = "homework.assigned"
	HomeworkQuestionCompleted EventType = "homework.question_completed"
	HomeworkSubmitted         EventType = "homework.submitted"
	HomeworkGraded            EventType = "homework.graded"
	HomeworkOverdue           EventType = "homework.overdue"

	StudentRegistered EventType = "student.registered"
	StudentDeleted    EventType = "student.deleted"
	StudentXPAwarded  EventType = "student.xp_awarded"

	ImportCompleted      EventType = "import.completed"
	MaintenanceCompleted EventType = "maintenance.completed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

func newBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}

type LessonEvent struct {
	BaseEvent
	LessonID    string    `json:"lesson_id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	ScheduledAt time.Time `json:"scheduled_at"`
	StudentIDs  []string  `json:"student_ids,omitempty"`
}

func NewLessonEvent(eventType EventType, lessonID, title, subject string, scheduledAt time.Time, studentIDs []string) *LessonEvent {
	return &LessonEvent{
		BaseEvent:   newBaseEvent(eventType),
		LessonID:    lessonID,
		Title:       title,
		Subject:     subject,
		ScheduledAt: scheduledAt,
		StudentIDs:  studentIDs,
	}
}

type HomeworkEvent struct {
	BaseEvent
	HomeworkID string   `json:"homework_id"`
	StudentID  string   `json:"student_id"`
	Subject    string   `json:"subject"`
	Status     string   `json:"status"`
	QuestionID string   `json:"question_id,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	MaxScore   int      `json:"max_score,omitempty"`
}

func NewHomeworkEvent(eventType EventType, homeworkID, studentID, subject, status string) *HomeworkEvent {
	return &HomeworkEvent{
		BaseEvent:  newBaseEvent(eventType),
		HomeworkID: homeworkID,
		StudentID:  studentID,
		Subject:    subject,
		Status:     status,
	}
}

type StudentEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Email     string `json:"email,omitempty"`
	Points    int    `json:"points,omitempty"`
	TotalXP   int    `json:"total_xp,omitempty"`
	Level     int    `json:"level,omitempty"`
}

func NewStudentEvent(eventType EventType, studentID string) *StudentEvent {
	return &StudentEvent{
		BaseEvent: newBaseEvent(eventType),
		StudentID: studentID,
	}
}

type ImportEvent struct {
	BaseEvent
	BatchID  string `json:"batch_id"`
	Kind     string `json:"kind"`
	Inserted int    `json:"inserted"`
	Failed   int    `json:"failed"`
}

func NewImportEvent(batchID, kind string, inserted, failed int) *ImportEvent {
	return &ImportEvent{
		BaseEvent: newBaseEvent(ImportCompleted),
		BatchID:   batchID,
		Kind:      kind,
		Inserted:  inserted,
		Failed:    failed,
	}
}

type MaintenanceEvent struct {
	BaseEvent
	Task     string `json:"task"`
	Affected int64  `json:"affected"`
}

func NewMaintenanceEvent(task string, affected int64) *MaintenanceEvent {
	return &MaintenanceEvent{
		BaseEvent: newBaseEvent(MaintenanceCompleted),
		Task:      task,
		Affected:  affected,
	}
}
