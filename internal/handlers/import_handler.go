package handlers

import (
	"bytes"
	"context"
	"io"
	"log"
	"proacademics-service/internal/importer"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var importRows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "academy_import_rows_total",
		Help: "Total number of CSV rows processed by import",
	},
	[]string{"kind", "outcome"},
)

type ImportHandler struct {
	importService *services.ImportService
	statsService  *services.StatsService
}

func NewImportHandler(importService *services.ImportService, statsService *services.StatsService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		statsService:  statsService,
	}
}

func (h *ImportHandler) RegisterRoutes(r *Routes) {
	r.Admin.Post("/import/:kind", h.Import)
}

// csvSource returns the multipart "file" field when present, otherwise the raw request body.
func csvSource(c fiber.Ctx) (io.ReadCloser, error) {
	if file, err := c.FormFile("file"); err == nil {
		return file.Open()
	}
	return io.NopCloser(bytes.NewReader(c.Body())), nil
}

func (h *ImportHandler) Import(c fiber.Ctx) error {
	kind := importer.Kind(c.Params("kind"))

	src, err := csvSource(c)
	if err != nil {
		return respondError(c, err, "read uploaded file")
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), services.ImportTimeout)
	defer cancel()

	result, err := h.importService.Import(ctx, kind, src)
	if err != nil {
		return respondError(c, err, "import "+string(kind))
	}

	importRows.WithLabelValues(string(kind), "inserted").Add(float64(result.Inserted))
	importRows.WithLabelValues(string(kind), "failed").Add(float64(result.Failed))
	log.Printf("Import %s of %s: %d inserted, %d failed", result.BatchID, kind, result.Inserted, result.Failed)

	if result.Inserted > 0 {
		h.statsService.InvalidateAdminStats(ctx)
	}
	return utils.SuccessResponse(c, "Import completed", result)
}
