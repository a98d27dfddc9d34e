package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PastPaper struct {
	ID               string    `bson:"_id" json:"id"`
	Subject          string    `bson:"subject" json:"subject"`
	Year             int       `bson:"year" json:"year"`
	Session          string    `bson:"session,omitempty" json:"session,omitempty"`
	PaperNumber      int       `bson:"paperNumber,omitempty" json:"paperNumber,omitempty"`
	Variant          int       `bson:"variant,omitempty" json:"variant,omitempty"`
	Title            string    `bson:"title" json:"title"`
	QuestionPaperURL string    `bson:"questionPaperUrl,omitempty" json:"questionPaperUrl,omitempty"`
	MarkSchemeURL    string    `bson:"markSchemeUrl,omitempty" json:"markSchemeUrl,omitempty"`
	FileKey          string    `bson:"fileKey,omitempty" json:"fileKey,omitempty"`
	MarkSchemeKey    string    `bson:"markSchemeKey,omitempty" json:"markSchemeKey,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

type PaperFileKind string

const (
	PaperFileQuestions  PaperFileKind = "questions"
	PaperFileMarkScheme PaperFileKind = "markscheme"
)

type CreatePastPaperRequest struct {
	Subject          string `json:"subject" validate:"required"`
	Year             int    `json:"year" validate:"required,min=1950,max=2100"`
	Session          string `json:"session" validate:"max=50"`
	PaperNumber      int    `json:"paperNumber" validate:"min=0,max=20"`
	Variant          int    `json:"variant" validate:"min=0,max=20"`
	Title            string `json:"title" validate:"max=200"`
	QuestionPaperURL string `json:"questionPaperUrl" validate:"omitempty,url"`
	MarkSchemeURL    string `json:"markSchemeUrl" validate:"omitempty,url"`
}

type UpdatePastPaperRequest struct {
	Subject          *string `json:"subject" validate:"omitempty,min=1"`
	Year             *int    `json:"year" validate:"omitempty,min=1950,max=2100"`
	Session          *string `json:"session" validate:"omitempty,max=50"`
	PaperNumber      *int    `json:"paperNumber" validate:"omitempty,min=0,max=20"`
	Variant          *int    `json:"variant" validate:"omitempty,min=0,max=20"`
	Title            *string `json:"title" validate:"omitempty,max=200"`
	QuestionPaperURL *string `json:"questionPaperUrl" validate:"omitempty,url"`
	MarkSchemeURL    *string `json:"markSchemeUrl" validate:"omitempty,url"`
}

func (r *UpdatePastPaperRequest) Fields() bson.M {
	fields := bson.M{}
	if r.Subject != nil {
		fields["subject"] = *r.Subject
	}
	if r.Year != nil {
		fields["year"] = *r.Year
	}
	if r.Session != nil {
		fields["session"] = *r.Session
	}
	if r.PaperNumber != nil {
		fields["paperNumber"] = *r.PaperNumber
	}
	if r.Variant != nil {
		fields["variant"] = *r.Variant
	}
	if r.Title != nil {
		fields["title"] = strings.TrimSpace(*r.Title)
	}
	if r.QuestionPaperURL != nil {
		fields["questionPaperUrl"] = *r.QuestionPaperURL
	}
	if r.MarkSchemeURL != nil {
		fields["markSchemeUrl"] = *r.MarkSchemeURL
	}
	return fields
}

type PastPaperFilter struct {
	Subject string
	Year    int
	Session string
	Search  string
}

type PastPaperStats struct {
	Total     int            `json:"total"`
	BySubject map[string]int `json:"bySubject"`
	ByYear    map[string]int `json:"byYear"`
}
