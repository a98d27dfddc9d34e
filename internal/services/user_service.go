package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserService struct {
	users       repository.Store[models.User]
	leaderboard *LeaderboardService
	publisher   event.Publisher
	now         Clock
}

func NewUserService(users repository.Store[models.User], leaderboard *LeaderboardService, publisher event.Publisher) *UserService {
	return &UserService{
		users:       users,
		leaderboard: leaderboard,
		publisher:   publisher,
		now:         utcNow,
	}
}

func studentQuery(filter models.StudentFilter) repository.Query {
	q := repository.NewQuery().
		Where("role", models.RoleStudent).
		WhereNotEmpty("grade", filter.Grade).
		WhereNotEmpty("programId", filter.ProgramID).
		Matching(filter.Search, "name", "email")
	if filter.IsActive != nil {
		q = q.Where("isActive", *filter.IsActive)
	}
	return q
}

func (s *UserService) GetAll(ctx context.Context, filter models.StudentFilter, page, limit int) (*models.Page[models.User], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := studentQuery(filter)

	total, err := s.users.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Find(ctx, q.SortBy("-createdAt").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(users, total, page, limit), nil
}

// GetByID returns any user, admin or student.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// GetStudent is GetByID restricted to students.
func (s *UserService) GetStudent(ctx context.Context, id string) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	existing, err := s.users.FindOne(ctx, repository.NewQuery().Where("email", email))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return existing.ID != exceptID, nil
}

func (s *UserService) CreateStudent(ctx context.Context, req *models.CreateStudentRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	s.invalidateLeaderboard(ctx)

	if s.publisher != nil {
		evt := event.NewStudentEvent(event.StudentRegistered, user.ID)
		evt.Email = user.Email
		if err := s.publisher.PublishStudentEvent(ctx, evt); err != nil {
			log.Printf("Failed to publish student registered event: %v", err)
		}
	}
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, req *models.CreateStudentRequest, role models.Role) (*models.User, error) {
	email := models.NormalizeEmail(req.Email)
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailExists
	}

	subjects := req.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	now := s.now()
	user := &models.User{
		ID:        newID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Role:      role,
		Grade:     req.Grade,
		ProgramID: req.ProgramID,
		Subjects:  subjects,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

// leaderboardFields are the student fields a cached leaderboard depends on.
var leaderboardFields = []string{"name", "grade", "isActive"}

func (s *UserService) UpdateStudent(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.GetStudent(ctx, id); err != nil {
		return nil, err
	}

	fields := req.Fields()
	if email, ok := fields["email"].(string); ok {
		taken, err := s.emailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailExists
		}
	}
	if req.Password != nil {
		var u models.User
		if err := u.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["passwordHash"] = u.PasswordHash
	}
	if len(fields) == 0 {
		return nil, ErrNoChanges
	}

	user, err := s.users.Update(ctx, id, fields)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	for _, shown := range leaderboardFields {
		if _, ok := fields[shown]; ok {
			s.invalidateLeaderboard(ctx)
			break
		}
	}
	return user, nil
}

func (s *UserService) DeleteStudent(ctx context.Context, id string) error {
	if _, err := s.GetStudent(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateLeaderboard(ctx)

	if s.publisher != nil {
		if err := s.publisher.PublishStudentEvent(ctx, event.NewStudentEvent(event.StudentDeleted, id)); err != nil {
			log.Printf("Failed to publish student deleted event: %v", err)
		}
	}
	return nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindOne(ctx, repository.NewQuery().Where("email", models.NormalizeEmail(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	if updated, err := s.RecordActivity(ctx, user.ID); err != nil {
		log.Printf("Failed to record activity for %s: %v", user.ID, err)
	} else {
		user = updated
	}
	return user, nil
}

// RecordActivity maintains the daily streak: consecutive UTC days extend it, a gap resets it to 1.
func (s *UserService) RecordActivity(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := startOfDay(now)
	streak := 1
	if user.LastActiveAt != nil {
		last := startOfDay(*user.LastActiveAt)
		switch {
		case last.Equal(today):
			streak = max(user.Streak, 1)
		case last.Equal(today.AddDate(0, 0, -1)):
			streak = user.Streak + 1
		}
	}

	return s.users.Update(ctx, id, bson.M{
		"lastActiveAt": now,
		"streak":       streak,
	})
}

// AwardXP adds points to both the lifetime and the weekly XP counters.
func (s *UserService) AwardXP(ctx context.Context, id string, points int) (*models.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	return s.increment(ctx, id, points, map[string]int{"xp": points, "weeklyXp": points})
}

// RecordQuestionCompleted counts a completed question and awards its points.
func (s *UserService) RecordQuestionCompleted(ctx context.Context, id string, points int) (*models.User, error) {
	deltas := map[string]int{"completedQuestions": 1}
	if points > 0 {
		deltas["xp"] = points
		deltas["weeklyXp"] = points
	}
	user, err := s.increment(ctx, id, points, deltas)
	if err != nil {
		return nil, err
	}
	if updated, err := s.RecordActivity(ctx, id); err == nil {
		user = updated
	}
	return user, nil
}

func (s *UserService) increment(ctx context.Context, id string, points int, deltas map[string]int) (*models.User, error) {
	user, err := s.users.Increment(ctx, id, deltas)
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		return user, nil
	}

	s.invalidateLeaderboard(ctx)
	if s.publisher != nil {
		evt := event.NewStudentEvent(event.StudentXPAwarded, id)
		evt.Points = points
		evt.TotalXP = user.XP
		evt.Level = user.Level()
		if err := s.publisher.PublishStudentEvent(ctx, evt); err != nil {
			log.Printf("Failed to publish xp awarded event: %v", err)
		}
	}
	return user, nil
}

func (s *UserService) ResetWeeklyXP(ctx context.Context) (int64, error) {
	reset, err := s.users.UpdateMany(ctx, repository.NewQuery().Where("role", models.RoleStudent), bson.M{"weeklyXp": 0})
	if err != nil {
		return 0, fmt.Errorf("failed to reset weekly xp: %w", err)
	}
	s.invalidateLeaderboard(ctx)
	return reset, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		log.Println("Admin credentials not configured, skipping admin seed")
		return nil
	}

	email = models.NormalizeEmail(email)
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return err
	}
	if taken {
		return nil
	}

	_, err = s.createUser(ctx, &models.CreateStudentRequest{
		Name:     "Administrator",
		Email:    email,
		Password: password,
	}, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Printf("Seeded admin account %s", email)
	return nil
}

func (s *UserService) Recent(ctx context.Context, n int) ([]models.User, error) {
	q := repository.NewQuery().Where("role", models.RoleStudent).SortBy("-createdAt")
	q.Limit = int64(n)
	return s.users.Find(ctx, q)
}

func (s *UserService) GetStats(ctx context.Context) (*models.StudentStats, error) {
	students, err := s.users.Find(ctx, repository.NewQuery().Where("role", models.RoleStudent))
	if err != nil {
		return nil, err
	}

	now := s.now()
	monthStart := startOfMonth(now)
	stats := &models.StudentStats{
		Total:     len(students),
		ByGrade:   map[string]int{},
		ByProgram: map[string]int{},
	}
	signups := make([]time.Time, 0, len(students))
	var xp int
	for _, u := range students {
		if u.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if !u.CreatedAt.Before(monthStart) {
			stats.NewThisMonth++
		}
		stats.ByGrade[labelOr(u.Grade, "Unassigned")]++
		stats.ByProgram[labelOr(u.ProgramID, "Unassigned")]++
		xp += u.XP
		signups = append(signups, u.CreatedAt)
	}
	if len(students) > 0 {
		stats.AverageXP = models.Round2(float64(xp) / float64(len(students)))
	}
	stats.SignupsPerDay = dailyCounts(signups, now, statsWindowDays)
	return stats, nil
}

func (s *UserService) invalidateLeaderboard(ctx context.Context) {
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
}
