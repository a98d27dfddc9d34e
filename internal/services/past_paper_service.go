package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FileStorage is the object store past-paper PDFs are written to.
type FileStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

type PastPaperService struct {
	papers  repository.Store[models.PastPaper]
	storage FileStorage
	now     Clock
}

func NewPastPaperService(papers repository.Store[models.PastPaper], storage FileStorage) *PastPaperService {
	return &PastPaperService{
		papers:  papers,
		storage: storage,
		now:     utcNow,
	}
}

func defaultPaperTitle(req *models.CreatePastPaperRequest) string {
	parts := []string{strings.TrimSpace(req.Subject), strconv.Itoa(req.Year)}
	if req.Session != "" {
		parts = append(parts, req.Session)
	}
	if req.PaperNumber > 0 {
		parts = append(parts, fmt.Sprintf("Paper %d", req.PaperNumber))
	}
	if req.Variant > 0 {
		parts = append(parts, fmt.Sprintf("Variant %d", req.Variant))
	}
	return strings.Join(parts, " ")
}

func newPastPaper(req *models.CreatePastPaperRequest, now time.Time) *models.PastPaper {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultPaperTitle(req)
	}
	return &models.PastPaper{
		ID:               newID(),
		Subject:          strings.TrimSpace(req.Subject),
		Year:             req.Year,
		Session:          strings.TrimSpace(req.Session),
		PaperNumber:      req.PaperNumber,
		Variant:          req.Variant,
		Title:            title,
		QuestionPaperURL: req.QuestionPaperURL,
		MarkSchemeURL:    req.MarkSchemeURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *PastPaperService) GetAll(ctx context.Context, filter models.PastPaperFilter, page, limit int) (*models.Page[models.PastPaper], error) {
	page, limit = repository.NormalizePage(page, limit)
	q := repository.NewQuery().
		WhereNotEmpty("subject", filter.Subject).
		WhereNotEmpty("session", filter.Session).
		Matching(filter.Search, "title")
	if filter.Year > 0 {
		q = q.Where("year", filter.Year)
	}

	total, err := s.papers.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	papers, err := s.papers.Find(ctx, q.SortBy("-year,subject,paperNumber").Paginate(page, limit))
	if err != nil {
		return nil, err
	}
	return models.NewPage(papers, total, page, limit), nil
}

func (s *PastPaperService) GetByID(ctx context.Context, id string) (*models.PastPaper, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.papers.FindByID(ctx, id)
}

func (s *PastPaperService) Create(ctx context.Context, req *models.CreatePastPaperRequest) (*models.PastPaper, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	paper := newPastPaper(req, s.now())
	if err := s.papers.Insert(ctx, paper); err != nil {
		return nil, err
	}
	return paper, nil
}

func (s *PastPaperService) Update(ctx context.Context, id string, req *models.UpdatePastPaperRequest) (*models.PastPaper, error) {
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
	return s.papers.Update(ctx, id, fields)
}

// Delete removes the paper and, best effort, the files it owns in object storage.
func (s *PastPaperService) Delete(ctx context.Context, id string) error {
	paper, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.papers.Delete(ctx, id); err != nil {
		return err
	}
	if s.storage != nil {
		for _, key := range []string{paper.FileKey, paper.MarkSchemeKey} {
			if key == "" {
				continue
			}
			if err := s.storage.Delete(ctx, key); err != nil {
				log.Printf("Failed to delete object %s for past paper %s: %v", key, id, err)
			}
		}
	}
	return nil
}

// AttachFile uploads a PDF for the paper and records its object key and URL.
func (s *PastPaperService) AttachFile(ctx context.Context, id string, kind models.PaperFileKind, filename string, reader io.Reader, size int64, contentType string) (*models.PastPaper, error) {
	if s.storage == nil {
		return nil, ErrNotConfigured
	}
	if kind != models.PaperFileQuestions && kind != models.PaperFileMarkScheme {
		return nil, fmt.Errorf("%w: unknown file kind %q", ErrValidation, kind)
	}
	if !isPDF(filename, contentType) {
		return nil, ErrInvalidFile
	}

	paper, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d/%s-%s.pdf", strings.ToLower(strings.ReplaceAll(paper.Subject, " ", "-")), paper.Year, paper.ID, kind)
	url, err := s.storage.Upload(ctx, key, reader, size, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	fields := bson.M{"fileKey": key, "questionPaperUrl": url}
	if kind == models.PaperFileMarkScheme {
		fields = bson.M{"markSchemeKey": key, "markSchemeUrl": url}
	}
	return s.papers.Update(ctx, paper.ID, fields)
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(path.Ext(filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

func (s *PastPaperService) GetStats(ctx context.Context) (*models.PastPaperStats, error) {
	papers, err := s.papers.Find(ctx, repository.NewQuery())
	if err != nil {
		return nil, err
	}

	stats := &models.PastPaperStats{
		Total:     len(papers),
		BySubject: map[string]int{},
		ByYear:    map[string]int{},
	}
	for _, p := range papers {
		stats.BySubject[labelOr(p.Subject, "Unassigned")]++
		stats.ByYear[strconv.Itoa(p.Year)]++
	}
	return stats, nil
}
