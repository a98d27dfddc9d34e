package models

import "time"

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Page is a single page of a listing together with its pagination metadata.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, total int64, page, limit int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Grade     string `json:"grade,omitempty"`
	XP        int    `json:"xp"`
	WeeklyXP  int    `json:"weeklyXp"`
	Level     int    `json:"level"`
}

type StudentDashboard struct {
	Student            *User      `json:"student"`
	Level              int        `json:"level"`
	CWA                float64    `json:"cwa"`
	XP                 int        `json:"xp"`
	WeeklyXP           int        `json:"weeklyXp"`
	CompletedQuestions int        `json:"completedQuestions"`
	Streak             int        `json:"streak"`
	UpcomingLessons    []Lesson   `json:"upcomingLessons"`
	PendingHomework    []Homework `json:"pendingHomework"`
}

type AdminStats struct {
	Students       *StudentStats    `json:"students"`
	Lessons        *LessonStats     `json:"lessons"`
	Homework       *HomeworkStats   `json:"homework"`
	Subjects       *SubjectStats    `json:"subjects"`
	TopicVault     *TopicVaultStats `json:"topicVault"`
	PastPapers     *PastPaperStats  `json:"pastPapers"`
	RecentStudents []User           `json:"recentStudents"`
	RecentHomework []Homework       `json:"recentHomework"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResult struct {
	BatchID  string     `json:"batchId"`
	Kind     string     `json:"kind"`
	Total    int        `json:"total"`
	Inserted int        `json:"inserted"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

type MaintenanceResult struct {
	OverdueHomework  int64     `json:"overdueHomework"`
	CompletedLessons int64     `json:"completedLessons"`
	WeeklyXPReset    int64     `json:"weeklyXpReset"`
	RanAt            time.Time `json:"ranAt"`
}
