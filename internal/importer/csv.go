package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"proacademics-service/internal/models"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindHomework   Kind = "homework"
	KindLessons    Kind = "lessons"
	KindTopicVault Kind = "topic-vault"
)

var (
	ErrEmptyFile     = errors.New("csv file is empty")
	ErrMissingHeader = errors.New("csv is missing required columns")
	ErrUnknownKind   = errors.New("unknown import kind")
)

// Schema lists the recognised columns of an import. Headers are matched case-insensitively
// in any order; unknown columns are ignored.
type Schema struct {
	Columns  []string
	Required []string
}

var (
	HomeworkSchema = Schema{
		Columns:  []string{"title", "description", "subject", "studentId", "dueDate", "questions", "pointsPerQuestion"},
		Required: []string{"title", "subject", "studentId", "dueDate"},
	}
	LessonSchema = Schema{
		Columns:  []string{"title", "description", "subject", "programId", "teacher", "scheduledAt", "durationMinutes", "meetingUrl"},
		Required: []string{"title", "subject", "scheduledAt"},
	}
	TopicVaultSchema = Schema{
		Columns:  []string{"subject", "topic", "subtopic", "title", "videoUrl", "description", "order"},
		Required: []string{"subject", "topic", "title", "videoUrl"},
	}
)

func SchemaFor(kind Kind) (Schema, error) {
	switch kind {
	case KindHomework:
		return HomeworkSchema, nil
	case KindLessons:
		return LessonSchema, nil
	case KindTopicVault:
		return TopicVaultSchema, nil
	}
	return Schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

type Row struct {
	Line   int
	values map[string]string
}

// Get returns the trimmed value of a schema column, empty when the column is absent.
func (r Row) Get(column string) string {
	return r.values[column]
}

type Record[T any] struct {
	Line  int
	Value T
}

// Parse reads the header and every data row. Rows the CSV reader cannot decode are reported
// as row errors; a missing required header rejects the whole file.
func Parse(r io.Reader, schema Schema) ([]Row, []models.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyFile
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range schema.Required {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	var rows []Row
	var rowErrors []models.RowError
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrors = append(rowErrors, models.RowError{Line: parseErr.StartLine, Message: parseErr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		values := make(map[string]string, len(schema.Columns))
		for _, col := range schema.Columns {
			if i, ok := index[strings.ToLower(col)]; ok && i < len(record) {
				values[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, Row{Line: line, values: values})
	}

	return rows, rowErrors, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate accepts the date formats used in import sheets. Values without a zone are UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

func parseOptionalInt(row Row, column string, def int) (int, error) {
	raw := row.Get(column)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", column)
	}
	return n, nil
}

func requireValues(row Row, columns ...string) error {
	var missing []string
	for _, col := range columns {
		if row.Get(col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing value for %s", strings.Join(missing, ", "))
	}
	return nil
}

func mapRows[T any](rows []Row, rowErrors []models.RowError, required []string, mapRow func(Row) (T, error)) ([]Record[T], []models.RowError) {
	records := make([]Record[T], 0, len(rows))
	for _, row := range rows {
		if err := requireValues(row, required...); err != nil {
			rowErrors = append(rowErrors, models.RowError{Line: row.Line, Message: err.Error()})
			continue
		}
		value, err := mapRow(row)
		if err != nil {
			rowErrors = append(rowErrors, models.RowError{Line: row.Line, Message: err.Error()})
			continue
		}
		records = append(records, Record[T]{Line: row.Line, Value: value})
	}
	return records, rowErrors
}

func ParseHomework(r io.Reader) ([]Record[models.CreateHomeworkRequest], []models.RowError, error) {
	rows, rowErrors, err := Parse(r, HomeworkSchema)
	if err != nil {
		return nil, nil, err
	}

	records, rowErrors := mapRows(rows, rowErrors, HomeworkSchema.Required, func(row Row) (models.CreateHomeworkRequest, error) {
		due, err := ParseDate(row.Get("dueDate"))
		if err != nil {
			return models.CreateHomeworkRequest{}, fmt.Errorf("dueDate: %w", err)
		}
		points, err := parseOptionalInt(row, "pointsPerQuestion", models.DefaultQuestionPoints)
		if err != nil {
			return models.CreateHomeworkRequest{}, err
		}
		if points < 0 {
			return models.CreateHomeworkRequest{}, errors.New("pointsPerQuestion must not be negative")
		}

		var questions []models.QuestionInput
		for _, prompt := range strings.Split(row.Get("questions"), "|") {
			if prompt = strings.TrimSpace(prompt); prompt != "" {
				questions = append(questions, models.QuestionInput{Prompt: prompt, Points: &points})
			}
		}

		return models.CreateHomeworkRequest{
			Title:       row.Get("title"),
			Description: row.Get("description"),
			Subject:     row.Get("subject"),
			StudentID:   row.Get("studentId"),
			DueDate:     due,
			Questions:   questions,
		}, nil
	})
	return records, rowErrors, nil
}

func ParseLessons(r io.Reader) ([]Record[models.CreateLessonRequest], []models.RowError, error) {
	rows, rowErrors, err := Parse(r, LessonSchema)
	if err != nil {
		return nil, nil, err
	}

	records, rowErrors := mapRows(rows, rowErrors, LessonSchema.Required, func(row Row) (models.CreateLessonRequest, error) {
		scheduled, err := ParseDate(row.Get("scheduledAt"))
		if err != nil {
			return models.CreateLessonRequest{}, fmt.Errorf("scheduledAt: %w", err)
		}
		duration, err := parseOptionalInt(row, "durationMinutes", models.DefaultLessonDuration)
		if err != nil {
			return models.CreateLessonRequest{}, err
		}

		return models.CreateLessonRequest{
			Title:           row.Get("title"),
			Description:     row.Get("description"),
			Subject:         row.Get("subject"),
			ProgramID:       row.Get("programId"),
			Teacher:         row.Get("teacher"),
			ScheduledAt:     scheduled,
			DurationMinutes: duration,
			MeetingURL:      row.Get("meetingUrl"),
		}, nil
	})
	return records, rowErrors, nil
}

func ParseTopicVault(r io.Reader) ([]Record[models.CreateTopicVaultRequest], []models.RowError, error) {
	rows, rowErrors, err := Parse(r, TopicVaultSchema)
	if err != nil {
		return nil, nil, err
	}

	records, rowErrors := mapRows(rows, rowErrors, TopicVaultSchema.Required, func(row Row) (models.CreateTopicVaultRequest, error) {
		order, err := parseOptionalInt(row, "order", 0)
		if err != nil {
			return models.CreateTopicVaultRequest{}, err
		}

		return models.CreateTopicVaultRequest{
			Subject:     row.Get("subject"),
			Topic:       row.Get("topic"),
			Subtopic:    row.Get("subtopic"),
			Title:       row.Get("title"),
			VideoURL:    row.Get("videoUrl"),
			Description: row.Get("description"),
			Order:       order,
		}, nil
	})
	return records, rowErrors, nil
}
