package services

import (
	"context"
	"fmt"
	"log"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"sort"
	"strings"
)

// SubjectService manages subjects and the programs filed under them.
type SubjectService struct {
	subjects repository.Store[models.Subject]
	programs repository.Store[models.Program]
	now      Clock
}

func NewSubjectService(subjects repository.Store[models.Subject], programs repository.Store[models.Program]) *SubjectService {
	return &SubjectService{
		subjects: subjects,
		programs: programs,
		now:      utcNow,
	}
}

func (s *SubjectService) ListSubjects(ctx context.Context, search string, page, limit int) (*models.Page[models.Subject], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := repository.NewQuery().Matching(search, "name", "code", "description")

	total, err := s.subjects.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.Find(ctx, q.SortBy("name").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(subjects, total, page, limit), nil
}

func (s *SubjectService) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.subjects.FindByID(ctx, id)
}

func (s *SubjectService) CreateSubject(ctx context.Context, req *models.CreateSubjectRequest) (*models.Subject, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	subject := &models.Subject{
		ID:          newID(),
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.subjects.Insert(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SubjectService) UpdateSubject(ctx context.Context, id string, req *models.UpdateSubjectRequest) (*models.Subject, error) {
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
	if code, ok := fields["code"].(string); ok {
		fields["code"] = strings.ToUpper(strings.TrimSpace(code))
	}
	return s.subjects.Update(ctx, id, fields)
}

// DeleteSubject removes the subject and its programs. Lessons and homework that name the
// subject are left as they are. It returns the number of programs removed.
func (s *SubjectService) DeleteSubject(ctx context.Context, id string) (int64, error) {
	if err := checkID(id); err != nil {
		return 0, err
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return 0, err
	}

	removed, err := s.programs.DeleteMany(ctx, repository.NewQuery().Where("subjectId", id))
	if err != nil {
		return 0, fmt.Errorf("subject deleted but its programs were not: %w", err)
	}
	log.Printf("Deleted subject %s and %d programs", id, removed)
	return removed, nil
}

func (s *SubjectService) ListPrograms(ctx context.Context, subjectID, search string, page, limit int) (*models.Page[models.Program], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := repository.NewQuery().
		WhereNotEmpty("subjectId", subjectID).
		Matching(search, "name", "description")

	total, err := s.programs.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	programs, err := s.programs.Find(ctx, q.SortBy("name").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(programs, total, page, limit), nil
}

func (s *SubjectService) ListProgramsBySubject(ctx context.Context, subjectID string) ([]models.Program, error) {
	if err := checkID(subjectID); err != nil {
		return nil, err
	}
	return s.programs.Find(ctx, repository.NewQuery().Where("subjectId", subjectID).SortBy("name"))
}

func (s *SubjectService) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.programs.FindByID(ctx, id)
}

func (s *SubjectService) CreateProgram(ctx context.Context, req *models.CreateProgramRequest) (*models.Program, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	program := &models.Program{
		ID:          newID(),
		SubjectID:   req.SubjectID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Level:       req.Level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.programs.Insert(ctx, program); err != nil {
		return nil, err
	}
	return program, nil
}

func (s *SubjectService) UpdateProgram(ctx context.Context, id string, req *models.UpdateProgramRequest) (*models.Program, error) {
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
	return s.programs.Update(ctx, id, fields)
}

func (s *SubjectService) DeleteProgram(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.programs.Delete(ctx, id)
}

// RemoveDuplicatePrograms keeps the oldest program of every (subject, trimmed lower-case
// name) group and deletes the rest. Ties on createdAt are broken by id.
func (s *SubjectService) RemoveDuplicatePrograms(ctx context.Context) (*models.DuplicateProgramsResult, error) {
	programs, err := s.programs.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	sort.SliceStable(programs, func(i, j int) bool {
		if !programs[i].CreatedAt.Equal(programs[j].CreatedAt) {
			return programs[i].CreatedAt.Before(programs[j].CreatedAt)
		}
		return programs[i].ID < programs[j].ID
	})

	seen := make(map[string]bool, len(programs))
	removed := []models.Program{}
	var ids []any
	for _, p := range programs {
		key := p.DuplicateKey()
		if seen[key] {
			removed = append(removed, p)
			ids = append(ids, p.ID)
			continue
		}
		seen[key] = true
	}

	if len(ids) > 0 {
		if _, err := s.programs.DeleteMany(ctx, repository.NewQuery().WhereIn("_id", ids...)); err != nil {
			return nil, fmt.Errorf("failed to delete duplicate programs: %w", err)
		}
		log.Printf("Removed %d duplicate programs", len(ids))
	}

	return &models.DuplicateProgramsResult{Removed: removed, Count: len(removed)}, nil
}

func (s *SubjectService) GetStats(ctx context.Context) (*models.SubjectStats, error) {
	subjects, err := s.subjects.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}
	programs, err := s.programs.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(subjects))
	stats := &models.SubjectStats{
		TotalSubjects:     len(subjects),
		TotalPrograms:     len(programs),
		ProgramsBySubject: map[string]int{},
	}
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
		stats.ProgramsBySubject[sub.Name] = 0
	}
	for _, p := range programs {
		stats.ProgramsBySubject[labelOr(names[p.SubjectID], "Unknown subject")]++
	}
	return stats, nil
}
