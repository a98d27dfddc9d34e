package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TopicVaultVideo struct {
	ID              string    `bson:"_id" json:"id"`
	Subject         string    `bson:"subject" json:"subject"`
	Topic           string    `bson:"topic" json:"topic"`
	Subtopic        string    `bson:"subtopic,omitempty" json:"subtopic,omitempty"`
	Title           string    `bson:"title" json:"title"`
	VideoURL        string    `bson:"videoUrl" json:"videoUrl"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	DurationSeconds int       `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	Order           int       `bson:"order" json:"order"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CreateTopicVaultRequest struct {
	Subject         string `json:"subject" validate:"required"`
	Topic           string `json:"topic" validate:"required,max=200"`
	Subtopic        string `json:"subtopic" validate:"max=200"`
	Title           string `json:"title" validate:"required,min=2,max=200"`
	VideoURL        string `json:"videoUrl" validate:"required,url"`
	Description     string `json:"description" validate:"max=2000"`
	DurationSeconds int    `json:"durationSeconds" validate:"min=0"`
	Order           int    `json:"order" validate:"min=0"`
}

type UpdateTopicVaultRequest struct {
	Subject         *string `json:"subject" validate:"omitempty,min=1"`
	Topic           *string `json:"topic" validate:"omitempty,min=1,max=200"`
	Subtopic        *string `json:"subtopic" validate:"omitempty,max=200"`
	Title           *string `json:"title" validate:"omitempty,min=2,max=200"`
	VideoURL        *string `json:"videoUrl" validate:"omitempty,url"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	DurationSeconds *int    `json:"durationSeconds" validate:"omitempty,min=0"`
	Order           *int    `json:"order" validate:"omitempty,min=0"`
}

func (r *UpdateTopicVaultRequest) Fields() bson.M {
	fields := bson.M{}
	if r.Subject != nil {
		fields["subject"] = *r.Subject
	}
	if r.Topic != nil {
		fields["topic"] = strings.TrimSpace(*r.Topic)
	}
	if r.Subtopic != nil {
		fields["subtopic"] = strings.TrimSpace(*r.Subtopic)
	}
	if r.Title != nil {
		fields["title"] = strings.TrimSpace(*r.Title)
	}
	if r.VideoURL != nil {
		fields["videoUrl"] = *r.VideoURL
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.DurationSeconds != nil {
		fields["durationSeconds"] = *r.DurationSeconds
	}
	if r.Order != nil {
		fields["order"] = *r.Order
	}
	return fields
}

type TopicVaultFilter struct {
	Subject  string
	Topic    string
	Subtopic string
	Search   string
}

type SubtopicGroup struct {
	Subtopic string            `json:"subtopic"`
	Videos   []TopicVaultVideo `json:"videos"`
}

type TopicGroup struct {
	Topic     string          `json:"topic"`
	Subtopics []SubtopicGroup `json:"subtopics"`
}

type SubjectGroup struct {
	Subject string       `json:"subject"`
	Topics  []TopicGroup `json:"topics"`
}

type TopicVaultStats struct {
	TotalVideos      int            `json:"totalVideos"`
	BySubject        map[string]int `json:"bySubject"`
	TopicsPerSubject map[string]int `json:"topicsPerSubject"`
}
