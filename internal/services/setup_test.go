package services

import (
	"context"
	"encoding/json"
	"proacademics-service/internal/event"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// mapCache is an in-process Cache used to observe hits and invalidations.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// recordingPublisher keeps the type of every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.EventType
}

func (p *recordingPublisher) record(t event.EventType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return nil
}

func (p *recordingPublisher) PublishLessonEvent(ctx context.Context, e *event.LessonEvent) error {
	return p.record(e.Type)
}

func (p *recordingPublisher) PublishHomeworkEvent(ctx context.Context, e *event.HomeworkEvent) error {
	return p.record(e.Type)
}

func (p *recordingPublisher) PublishStudentEvent(ctx context.Context, e *event.StudentEvent) error {
	return p.record(e.Type)
}

func (p *recordingPublisher) PublishImportEvent(ctx context.Context, e *event.ImportEvent) error {
	return p.record(e.Type)
}

func (p *recordingPublisher) PublishMaintenanceEvent(ctx context.Context, e *event.MaintenanceEvent) error {
	return p.record(e.Type)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []event.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.EventType(nil), p.events...)
}

type testServices struct {
	users       *UserService
	leaderboard *LeaderboardService
	lessons     *LessonService
	homework    *HomeworkService
	subjects    *SubjectService
	topicVault  *TopicVaultService
	pastPapers  *PastPaperService
	stats       *StatsService
	imports     *ImportService
	maintenance *MaintenanceService

	userStore     *repository.MemoryStore[models.User]
	lessonStore   *repository.MemoryStore[models.Lesson]
	homeworkStore *repository.MemoryStore[models.Homework]
	videoStore    *repository.MemoryStore[models.TopicVaultVideo]
	cache         *mapCache
	publisher     *recordingPublisher
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		userStore:     repository.NewMemoryStore[models.User]("email"),
		lessonStore:   repository.NewMemoryStore[models.Lesson](),
		homeworkStore: repository.NewMemoryStore[models.Homework](),
		videoStore:    repository.NewMemoryStore[models.TopicVaultVideo](),
		cache:         newMapCache(),
		publisher:     &recordingPublisher{},
	}

	ts.leaderboard = NewLeaderboardService(ts.userStore, ts.cache, time.Minute)
	ts.users = NewUserService(ts.userStore, ts.leaderboard, ts.publisher)
	ts.lessons = NewLessonService(ts.lessonStore, nil, ts.publisher)
	ts.homework = NewHomeworkService(ts.homeworkStore, ts.users, ts.publisher)
	ts.subjects = NewSubjectService(repository.NewMemoryStore[models.Subject](), repository.NewMemoryStore[models.Program]())
	ts.topicVault = NewTopicVaultService(ts.videoStore)
	ts.pastPapers = NewPastPaperService(repository.NewMemoryStore[models.PastPaper](), nil)
	ts.stats = NewStatsService(StatsSources{
		Users:      ts.users,
		Lessons:    ts.lessons,
		Homework:   ts.homework,
		Subjects:   ts.subjects,
		TopicVault: ts.topicVault,
		PastPapers: ts.pastPapers,
	}, ts.cache, time.Minute)
	ts.imports = NewImportService(ts.homeworkStore, ts.lessonStore, ts.videoStore, ts.publisher)
	ts.maintenance = NewMaintenanceService(ts.homework, ts.lessons, ts.users, ts.stats, ts.publisher)

	ts.users.now = fixedClock
	ts.lessons.now = fixedClock
	ts.homework.now = fixedClock
	ts.subjects.now = fixedClock
	ts.topicVault.now = fixedClock
	ts.pastPapers.now = fixedClock
	ts.stats.now = fixedClock
	ts.imports.now = fixedClock
	ts.maintenance.now = fixedClock
	return ts
}

func (ts *testServices) createStudent(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := ts.users.CreateStudent(context.Background(), &models.CreateStudentRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
		Grade:    "10",
	})
	require.NoError(t, err)
	return user
}
