package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// XPPerLevel is the amount of XP a student needs to gain one level.
const XPPerLevel = 1000

type User struct {
	ID                 string     `bson:"_id" json:"id"`
	Name               string     `bson:"name" json:"name"`
	Email              string     `bson:"email" json:"email"`
	PasswordHash       string     `bson:"passwordHash" json:"-"`
	Role               Role       `bson:"role" json:"role"`
	Grade              string     `bson:"grade,omitempty" json:"grade,omitempty"`
	ProgramID          string     `bson:"programId,omitempty" json:"programId,omitempty"`
	Subjects           []string   `bson:"subjects" json:"subjects"`
	XP                 int        `bson:"xp" json:"xp"`
	WeeklyXP           int        `bson:"weeklyXp" json:"weeklyXp"`
	CompletedQuestions int        `bson:"completedQuestions" json:"completedQuestions"`
	Streak             int        `bson:"streak" json:"streak"`
	LastActiveAt       *time.Time `bson:"lastActiveAt,omitempty" json:"lastActiveAt,omitempty"`
	IsActive           bool       `bson:"isActive" json:"isActive"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) Level() int {
	return LevelForXP(u.XP)
}

func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateStudentRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8,max=72"`
	Grade     string   `json:"grade" validate:"max=20"`
	ProgramID string   `json:"programId"`
	Subjects  []string `json:"subjects"`
}

type UpdateStudentRequest struct {
	Name      *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Email     *string   `json:"email" validate:"omitempty,email"`
	Password  *string   `json:"password" validate:"omitempty,min=8,max=72"`
	Grade     *string   `json:"grade" validate:"omitempty,max=20"`
	ProgramID *string   `json:"programId"`
	Subjects  *[]string `json:"subjects"`
	IsActive  *bool     `json:"isActive"`
}

// Fields returns the $set document for the non-nil fields. Password is handled by the caller.
func (r *UpdateStudentRequest) Fields() bson.M {
	fields := bson.M{}
	if r.Name != nil {
		fields["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		fields["email"] = NormalizeEmail(*r.Email)
	}
	if r.Grade != nil {
		fields["grade"] = *r.Grade
	}
	if r.ProgramID != nil {
		fields["programId"] = *r.ProgramID
	}
	if r.Subjects != nil {
		fields["subjects"] = *r.Subjects
	}
	if r.IsActive != nil {
		fields["isActive"] = *r.IsActive
	}
	return fields
}

type StudentFilter struct {
	Grade     string
	ProgramID string
	IsActive  *bool
	Search    string
}

type StudentStats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	NewThisMonth  int            `json:"newThisMonth"`
	ByGrade       map[string]int `json:"byGrade"`
	ByProgram     map[string]int `json:"byProgram"`
	AverageXP     float64        `json:"averageXp"`
	SignupsPerDay []DailyCount   `json:"signupsPerDay"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
