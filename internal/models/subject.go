package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Subject struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Code        string    `bson:"code,omitempty" json:"code,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Color       string    `bson:"color,omitempty" json:"color,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Program struct {
	ID          string    `bson:"_id" json:"id"`
	SubjectID   string    `bson:"subjectId" json:"subjectId"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Level       string    `bson:"level,omitempty" json:"level,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DuplicateKey identifies programs that are considered the same within a subject.
func (p *Program) DuplicateKey() string {
	return p.SubjectID + "\x00" + strings.ToLower(strings.TrimSpace(p.Name))
}

type CreateSubjectRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Code        string `json:"code" validate:"max=20"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

type UpdateSubjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Code        *string `json:"code" validate:"omitempty,max=20"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

func (r *UpdateSubjectRequest) Fields() bson.M {
	fields := bson.M{}
	if r.Name != nil {
		fields["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Code != nil {
		fields["code"] = *r.Code
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Color != nil {
		fields["color"] = *r.Color
	}
	return fields
}

type CreateProgramRequest struct {
	SubjectID   string `json:"subjectId" validate:"required,objectid"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Level       string `json:"level" validate:"max=50"`
}

type UpdateProgramRequest struct {
	SubjectID   *string `json:"subjectId"`
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Level       *string `json:"level" validate:"omitempty,max=50"`
}

func (r *UpdateProgramRequest) Fields() bson.M {
	fields := bson.M{}
	if r.SubjectID != nil {
		fields["subjectId"] = *r.SubjectID
	}
	if r.Name != nil {
		fields["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Level != nil {
		fields["level"] = *r.Level
	}
	return fields
}

type SubjectStats struct {
	TotalSubjects     int            `json:"totalSubjects"`
	TotalPrograms     int            `json:"totalPrograms"`
	ProgramsBySubject map[string]int `json:"programsBySubject"`
}

type DuplicateProgramsResult struct {
	Removed []Program `json:"removed"`
	Count   int       `json:"count"`
}
