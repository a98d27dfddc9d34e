package services

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log"
	"proacademics-service/internal/event"
	"proacademics-service/internal/importer"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ImportService bulk-loads CSV files. Rows are validated independently; bad rows are
// reported by line and the rest are inserted.
type ImportService struct {
	homework  repository.Store[models.Homework]
	lessons   repository.Store[models.Lesson]
	videos    repository.Store[models.TopicVaultVideo]
	publisher event.Publisher
	now       Clock
}

func NewImportService(homework repository.Store[models.Homework], lessons repository.Store[models.Lesson], videos repository.Store[models.TopicVaultVideo], publisher event.Publisher) *ImportService {
	return &ImportService{
		homework:  homework,
		lessons:   lessons,
		videos:    videos,
		publisher: publisher,
		now:       utcNow,
	}
}

func (s *ImportService) Import(ctx context.Context, kind importer.Kind, r io.Reader) (*models.ImportResult, error) {
	result := &models.ImportResult{BatchID: uuid.NewString(), Kind: string(kind)}
	now := s.now()

	var err error
	switch kind {
	case importer.KindHomework:
		records, rowErrors, perr := importer.ParseHomework(r)
		if perr != nil {
			return nil, perr
		}
		err = insertRecords(ctx, s.homework, records, rowErrors, result, func(req *models.CreateHomeworkRequest) *models.Homework {
			return newHomework(req, now)
		})
	case importer.KindLessons:
		records, rowErrors, perr := importer.ParseLessons(r)
		if perr != nil {
			return nil, perr
		}
		err = insertRecords(ctx, s.lessons, records, rowErrors, result, func(req *models.CreateLessonRequest) *models.Lesson {
			return newLesson(req, now)
		})
	case importer.KindTopicVault:
		records, rowErrors, perr := importer.ParseTopicVault(r)
		if perr != nil {
			return nil, perr
		}
		err = insertRecords(ctx, s.videos, records, rowErrors, result, func(req *models.CreateTopicVaultRequest) *models.TopicVaultVideo {
			return newTopicVaultVideo(req, now)
		})
	default:
		return nil, fmt.Errorf("%w: %q", importer.ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		evt := event.NewImportEvent(result.BatchID, result.Kind, result.Inserted, result.Failed)
		if err := s.publisher.PublishImportEvent(ctx, evt); err != nil {
			log.Printf("Failed to publish import event for batch %s: %v", result.BatchID, err)
		}
	}
	return result, nil
}

// insertRecords validates each parsed row, builds its document and inserts the valid ones
// in one unordered batch.
func insertRecords[Req any, Doc any](
	ctx context.Context,
	store repository.Store[Doc],
	records []importer.Record[Req],
	rowErrors []models.RowError,
	result *models.ImportResult,
	build func(*Req) *Doc,
) error {
	result.Total = len(records) + len(rowErrors)

	docs := make([]*Doc, 0, len(records))
	for i := range records {
		if err := validate(&records[i].Value); err != nil {
			rowErrors = append(rowErrors, models.RowError{Line: records[i].Line, Message: err.Error()})
			continue
		}
		docs = append(docs, build(&records[i].Value))
	}

	if len(docs) > 0 {
		inserted, err := store.InsertMany(ctx, docs)
		result.Inserted = inserted
		if err != nil {
			if inserted == 0 {
				return fmt.Errorf("failed to insert rows: %w", err)
			}
			log.Printf("Partial import, %d of %d rows inserted: %v", inserted, len(docs), err)
			rowErrors = append(rowErrors, models.RowError{
				Message: fmt.Sprintf("%d rows were rejected by the database", len(docs)-inserted),
			})
		}
	}

	result.Failed = result.Total - result.Inserted
	if rowErrors == nil {
		rowErrors = []models.RowError{}
	}
	sortRowErrors(rowErrors)
	result.Errors = rowErrors
	return nil
}

// sortRowErrors orders errors by line. Batch-level errors carry no line and go last.
func sortRowErrors(rowErrors []models.RowError) {
	slices.SortStableFunc(rowErrors, func(a, b models.RowError) int {
		switch {
		case a.Line == b.Line:
			return 0
		case a.Line == 0:
			return 1
		case b.Line == 0:
			return -1
		}
		return cmp.Compare(a.Line, b.Line)
	})
}

// ImportTimeout bounds a whole import, which can be much larger than a single request.
const ImportTimeout = 2 * time.Minute
