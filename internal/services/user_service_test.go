package services

import (
	"context"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStudentNormalizesEmail(t *testing.T) {
	ts := newTestServices(t)
	user := ts.createStudent(t, "Ada Lovelace", "  Ada@Example.COM ")

	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.Contains(t, ts.publisher.published(), event.StudentRegistered)

	_, err := ts.users.CreateStudent(context.Background(), &models.CreateStudentRequest{
		Name:     "Someone Else",
		Email:    "ADA@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	_, err := ts.users.Authenticate(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = ts.users.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := ts.users.Authenticate(ctx, " ADA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, student.ID, user.ID)
	require.NotNil(t, user.LastActiveAt)
	assert.Equal(t, 1, user.Streak)

	inactive := false
	_, err = ts.users.UpdateStudent(ctx, student.ID, &models.UpdateStudentRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = ts.users.Authenticate(ctx, "ada@example.com", "password123")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestRecordActivityStreak(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	student := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	day := testNow
	ts.users.now = func() time.Time { return day }

	tests := []struct {
		name   string
		at     time.Time
		streak int
	}{
		{"first activity", testNow, 1},
		{"same day", testNow.Add(3 * time.Hour), 1},
		{"next day", testNow.AddDate(0, 0, 1), 2},
		{"day after", testNow.AddDate(0, 0, 2), 3},
		{"gap resets", testNow.AddDate(0, 0, 5), 1},
	}
	for _, tt := range tests {
		day = tt.at
		user, err := ts.users.RecordActivity(ctx, student.ID)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.streak, user.Streak, tt.name)
	}
}

func TestUpdateStudent(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	ts.createStudent(t, "Alan Turing", "alan@example.com")

	taken := "alan@example.com"
	_, err := ts.users.UpdateStudent(ctx, ada.ID, &models.UpdateStudentRequest{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = ts.users.UpdateStudent(ctx, ada.ID, &models.UpdateStudentRequest{})
	assert.ErrorIs(t, err, ErrNoChanges)

	_, err = ts.users.UpdateStudent(ctx, "bad", &models.UpdateStudentRequest{})
	assert.ErrorIs(t, err, ErrInvalidID)

	name := "Augusta Ada King"
	password := "new-password-1"
	updated, err := ts.users.UpdateStudent(ctx, ada.ID, &models.UpdateStudentRequest{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, updated.CheckPassword(password))
}

func TestAwardXPInvalidatesLeaderboard(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	alan := ts.createStudent(t, "Alan Turing", "alan@example.com")

	_, err := ts.users.AwardXP(ctx, ada.ID, 1500)
	require.NoError(t, err)
	_, err = ts.users.AwardXP(ctx, alan.ID, 200)
	require.NoError(t, err)

	board, err := ts.leaderboard.Top(ctx, LeaderboardAllTime, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, ada.ID, board[0].StudentID)
	assert.Equal(t, 2, board[0].Level)
	assert.True(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))

	_, err = ts.users.AwardXP(ctx, alan.ID, 2000)
	require.NoError(t, err)
	assert.False(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))

	board, err = ts.leaderboard.Top(ctx, LeaderboardAllTime, 1)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, alan.ID, board[0].StudentID)
	assert.Equal(t, 2200, board[0].XP)

	_, err = ts.users.AwardXP(ctx, ada.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStudentChangesInvalidateLeaderboard(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")

	_, err := ts.leaderboard.Top(ctx, LeaderboardAllTime, 10)
	require.NoError(t, err)
	require.True(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))

	ts.createStudent(t, "Alan Turing", "alan@example.com")
	assert.False(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))

	board, err := ts.leaderboard.Top(ctx, LeaderboardAllTime, 10)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	name := "Ada King"
	_, err = ts.users.UpdateStudent(ctx, ada.ID, &models.UpdateStudentRequest{Name: &name})
	require.NoError(t, err)
	assert.False(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))

	board, err = ts.leaderboard.Top(ctx, LeaderboardAllTime, 10)
	require.NoError(t, err)
	names := []string{board[0].Name, board[1].Name}
	assert.Contains(t, names, "Ada King")

	subjects := []string{"Physics"}
	_, err = ts.users.UpdateStudent(ctx, ada.ID, &models.UpdateStudentRequest{Subjects: &subjects})
	require.NoError(t, err)
	assert.True(t, ts.cache.has(leaderboardKey(LeaderboardAllTime)))
}

func TestResetWeeklyXP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	alan := ts.createStudent(t, "Alan Turing", "alan@example.com")
	_, err := ts.users.AwardXP(ctx, ada.ID, 300)
	require.NoError(t, err)
	_, err = ts.users.AwardXP(ctx, alan.ID, 100)
	require.NoError(t, err)

	weekly, err := ts.leaderboard.Top(ctx, LeaderboardWeekly, 10)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, 300, weekly[0].WeeklyXP)

	n, err := ts.users.ResetWeeklyXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	user, err := ts.users.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.WeeklyXP)
	assert.Equal(t, 300, user.XP)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)

	require.NoError(t, ts.users.EnsureAdmin(ctx, "Admin@Academy.io", "supersecret"))
	require.NoError(t, ts.users.EnsureAdmin(ctx, "admin@academy.io", "supersecret"))
	assert.Equal(t, 1, ts.userStore.Len())

	admin, err := ts.users.Authenticate(ctx, "admin@academy.io", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = ts.users.GetStudent(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentStats(t *testing.T) {
	ctx := context.Background()
	ts := newTestServices(t)
	ada := ts.createStudent(t, "Ada Lovelace", "ada@example.com")
	alan := ts.createStudent(t, "Alan Turing", "alan@example.com")
	_, err := ts.users.AwardXP(ctx, ada.ID, 100)
	require.NoError(t, err)
	inactive := false
	_, err = ts.users.UpdateStudent(ctx, alan.ID, &models.UpdateStudentRequest{IsActive: &inactive})
	require.NoError(t, err)

	stats, err := ts.users.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 2, stats.NewThisMonth)
	assert.Equal(t, 2, stats.ByGrade["10"])
	assert.Equal(t, 50.0, stats.AverageXP)
	require.Len(t, stats.SignupsPerDay, statsWindowDays)
	assert.Equal(t, 2, stats.SignupsPerDay[statsWindowDays-1].Count)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	tokens.now = fixedClock

	user := &models.User{ID: "65f0c0ffee0000000000abcd", Email: "ada@example.com", Role: models.RoleStudent}
	signed, expiresAt, err := tokens.Generate(user)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), expiresAt)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	tokens.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenService("other-secret", time.Hour)
	require.NoError(t, err)
	other.now = fixedClock
	_, err = other.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenService("", time.Hour)
	assert.Error(t, err)
}
