package services

import (
	"context"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strings"
	"time"
)

type TopicVaultService struct {
	videos repository.Store[models.TopicVaultVideo]
	now    Clock
}

func NewTopicVaultService(videos repository.Store[models.TopicVaultVideo]) *TopicVaultService {
	return &TopicVaultService{
		videos: videos,
		now:    utcNow,
	}
}

const vaultOrder = "subject,topic,subtopic,order,title"

func newTopicVaultVideo(req *models.CreateTopicVaultRequest, now time.Time) *models.TopicVaultVideo {
	return &models.TopicVaultVideo{
		ID:              newID(),
		Subject:         strings.TrimSpace(req.Subject),
		Topic:           strings.TrimSpace(req.Topic),
		Subtopic:        strings.TrimSpace(req.Subtopic),
		Title:           strings.TrimSpace(req.Title),
		VideoURL:        req.VideoURL,
		Description:     req.Description,
		DurationSeconds: req.DurationSeconds,
		Order:           req.Order,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *TopicVaultService) GetAll(ctx context.Context, filter models.TopicVaultFilter, page, limit int) (*models.Page[models.TopicVaultVideo], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := repository.NewQuery().
		WhereNotEmpty("subject", filter.Subject).
		WhereNotEmpty("topic", filter.Topic).
		WhereNotEmpty("subtopic", filter.Subtopic).
		Matching(filter.Search, "title", "topic", "subtopic")

	total, err := s.videos.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	videos, err := s.videos.Find(ctx, q.SortBy(vaultOrder).Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(videos, total, page, limit), nil
}

func (s *TopicVaultService) GetByID(ctx context.Context, id string) (*models.TopicVaultVideo, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.videos.FindByID(ctx, id)
}

func (s *TopicVaultService) Create(ctx context.Context, req *models.CreateTopicVaultRequest) (*models.TopicVaultVideo, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	video := newTopicVaultVideo(req, s.now())
	if err := s.videos.Insert(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *TopicVaultService) Update(ctx context.Context, id string, req *models.UpdateTopicVaultRequest) (*models.TopicVaultVideo, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, ErrNoChanges
	}
	return s.videos.Update(ctx, id, fields)
}

func (s *TopicVaultService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.videos.Delete(ctx, id)
}

// GetGrouped nests videos as subject > topic > subtopic, each level sorted by name and the
// videos by their order. An empty subject groups the whole vault.
func (s *TopicVaultService) GetGrouped(ctx context.Context, subject string) ([]models.SubjectGroup, error) {
	videos, err := s.videos.Find(ctx, repository.NewQuery().WhereNotEmpty("subject", subject).SortBy(vaultOrder))
	if err != nil {
		return nil, err
	}

	groups := []models.SubjectGroup{}
	for _, v := range videos {
		if len(groups) == 0 || groups[len(groups)-1].Subject != v.Subject {
			groups = append(groups, models.SubjectGroup{Subject: v.Subject})
		}
		sg := &groups[len(groups)-1]

		if len(sg.Topics) == 0 || sg.Topics[len(sg.Topics)-1].Topic != v.Topic {
			sg.Topics = append(sg.Topics, models.TopicGroup{Topic: v.Topic})
		}
		tg := &sg.Topics[len(sg.Topics)-1]

		if len(tg.Subtopics) == 0 || tg.Subtopics[len(tg.Subtopics)-1].Subtopic != v.Subtopic {
			tg.Subtopics = append(tg.Subtopics, models.SubtopicGroup{Subtopic: v.Subtopic})
		}
		stg := &tg.Subtopics[len(tg.Subtopics)-1]
		stg.Videos = append(stg.Videos, v)
	}
	return groups, nil
}

func (s *TopicVaultService) GetStats(ctx context.Context) (*models.TopicVaultStats, error) {
	videos, err := s.videos.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	stats := &models.TopicVaultStats{
		TotalVideos:      len(videos),
		BySubject:        map[string]int{},
		TopicsPerSubject: map[string]int{},
	}
	topics := map[string]map[string]bool{}
	for _, v := range videos {
		stats.BySubject[v.Subject]++
		if topics[v.Subject] == nil {
			topics[v.Subject] = map[string]bool{}
		}
		topics[v.Subject][strings.ToLower(v.Topic)] = true
	}
	for subject, set := range topics {
		stats.TopicsPerSubject[subject] = len(set)
	}
	return stats, nil
}
