package handlers

import (
	"proacademics-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type Services struct {
	Users       *services.UserService
	Tokens      *services.TokenService
	Leaderboard *services.LeaderboardService
	Lessons     *services.LessonService
	Homework    *services.HomeworkService
	Subjects    *services.SubjectService
	TopicVault  *services.TopicVaultService
	PastPapers  *services.PastPaperService
	Stats       *services.StatsService
	Imports     *services.ImportService
	Maintenance *services.MaintenanceService
	Tutor       *services.TutorService
}

type Options struct {
	CronSecret    string
	MaxUploadSize int64
}

// Register mounts every API route on app.
func Register(app *fiber.App, svc *Services, opts Options) {
	routes := NewRoutes(app, svc.Tokens, opts.CronSecret)

	NewAuthHandler(svc.Users, svc.Tokens).RegisterRoutes(routes)
	NewStudentHandler(svc.Users).RegisterRoutes(routes)
	NewLessonHandler(svc.Lessons).RegisterRoutes(routes)
	NewSubjectHandler(svc.Subjects).RegisterRoutes(routes)
	NewHomeworkHandler(svc.Homework).RegisterRoutes(routes)
	NewPastPaperHandler(svc.PastPapers, opts.MaxUploadSize).RegisterRoutes(routes)
	NewTopicVaultHandler(svc.TopicVault).RegisterRoutes(routes)
	NewPortalHandler(svc.Stats, svc.Lessons, svc.Homework, svc.Leaderboard).RegisterRoutes(routes)
	NewStatsHandler(svc.Stats, svc.Leaderboard).RegisterRoutes(routes)
	NewAIHandler(svc.Tutor).RegisterRoutes(routes)
	NewImportHandler(svc.Imports, svc.Stats).RegisterRoutes(routes)
	NewCronHandler(svc.Maintenance).RegisterRoutes(routes)
}
