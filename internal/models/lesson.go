package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LessonStatus string

const (
	LessonScheduled LessonStatus = "scheduled"
	LessonLive      LessonStatus = "live"
	LessonCompleted LessonStatus = "completed"
	LessonCancelled LessonStatus = "cancelled"
)

const DefaultLessonDuration = 60

type Lesson struct {
	ID              string       `bson:"_id" json:"id"`
	Title           string       `bson:"title" json:"title"`
	Description     string       `bson:"description,omitempty" json:"description,omitempty"`
	Subject         string       `bson:"subject" json:"subject"`
	ProgramID       string       `bson:"programId,omitempty" json:"programId,omitempty"`
	Teacher         string       `bson:"teacher,omitempty" json:"teacher,omitempty"`
	ScheduledAt     time.Time    `bson:"scheduledAt" json:"scheduledAt"`
	DurationMinutes int          `bson:"durationMinutes" json:"durationMinutes"`
	Status          LessonStatus `bson:"status" json:"status"`
	MeetingURL      string       `bson:"meetingUrl,omitempty" json:"meetingUrl,omitempty"`
	ZoomMeetingID   string       `bson:"zoomMeetingId,omitempty" json:"zoomMeetingId,omitempty"`
	RecordingURL    string       `bson:"recordingUrl,omitempty" json:"recordingUrl,omitempty"`
	StudentIDs      []string     `bson:"studentIds" json:"studentIds"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

func (l *Lesson) EndsAt() time.Time {
	d := l.DurationMinutes
	if d <= 0 {
		d = DefaultLessonDuration
	}
	return l.ScheduledAt.Add(time.Duration(d) * time.Minute)
}

type CreateLessonRequest struct {
	Title           string    `json:"title" validate:"required,min=2,max=200"`
	Description     string    `json:"description" validate:"max=2000"`
	Subject         string    `json:"subject" validate:"required"`
	ProgramID       string    `json:"programId"`
	Teacher         string    `json:"teacher" validate:"max=100"`
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"min=0,max=600"`
	MeetingURL      string    `json:"meetingUrl" validate:"omitempty,url"`
	StudentIDs      []string  `json:"studentIds"`
	CreateMeeting   bool      `json:"createMeeting"`
}

type UpdateLessonRequest struct {
	Title           *string       `json:"title" validate:"omitempty,min=2,max=200"`
	Description     *string       `json:"description" validate:"omitempty,max=2000"`
	Subject         *string       `json:"subject" validate:"omitempty,min=1"`
	ProgramID       *string       `json:"programId"`
	Teacher         *string       `json:"teacher" validate:"omitempty,max=100"`
	ScheduledAt     *time.Time    `json:"scheduledAt"`
	DurationMinutes *int          `json:"durationMinutes" validate:"omitempty,min=0,max=600"`
	Status          *LessonStatus `json:"status" validate:"omitempty,oneof=scheduled live completed cancelled"`
	MeetingURL      *string       `json:"meetingUrl" validate:"omitempty,url"`
	RecordingURL    *string       `json:"recordingUrl" validate:"omitempty,url"`
	StudentIDs      *[]string     `json:"studentIds"`
}

func (r *UpdateLessonRequest) Fields() bson.M {
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
	if r.ProgramID != nil {
		fields["programId"] = *r.ProgramID
	}
	if r.Teacher != nil {
		fields["teacher"] = *r.Teacher
	}
	if r.ScheduledAt != nil {
		fields["scheduledAt"] = r.ScheduledAt.UTC()
	}
	if r.DurationMinutes != nil {
		fields["durationMinutes"] = *r.DurationMinutes
	}
	if r.Status != nil {
		fields["status"] = *r.Status
	}
	if r.MeetingURL != nil {
		fields["meetingUrl"] = *r.MeetingURL
	}
	if r.RecordingURL != nil {
		fields["recordingUrl"] = *r.RecordingURL
	}
	if r.StudentIDs != nil {
		fields["studentIds"] = *r.StudentIDs
	}
	return fields
}

type LessonFilter struct {
	Subject   string
	ProgramID string
	Status    string
	Teacher   string
	StudentID string
	Search    string
	From      *time.Time
	To        *time.Time
}

type LessonStats struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"byStatus"`
	BySubject          map[string]int `json:"bySubject"`
	Upcoming           int            `json:"upcoming"`
	CompletedThisMonth int            `json:"completedThisMonth"`
	LessonsPerDay      []DailyCount   `json:"lessonsPerDay"`
}
