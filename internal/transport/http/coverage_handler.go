package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"covcheck/internal/config"
	apierrors "covcheck/internal/errors"
	"covcheck/internal/exporter"
	"covcheck/internal/files"
	"covcheck/internal/infrastructure"
	"covcheck/internal/middleware"
	"covcheck/internal/services"
	"covcheck/internal/validation"
	"covcheck/internal/workbook"
	"covcheck/pkg/contracts/domain"
)

// MaxPreviewRows caps the preview query parameter
const MaxPreviewRows = 100

// CoverageServiceInterface defines the coverage operations the handler needs
type CoverageServiceInterface interface {
	Run(ctx context.Context, in services.RunInput) (*services.RunOutput, error)
	OpenOutput(name string) (*os.File, os.FileInfo, error)
	ListRuns() ([]files.Run, error)
}

// ReportRun is one past run in the reports listing
type ReportRun struct {
	files.Run
	Downloads map[string]string `json:"downloads"`
}

// runRequest is the validated shape of POST /api/coverage
type runRequest struct {
	Targets string `json:"targets" validate:"required,workbook"`
	Bulk    string `json:"bulk" validate:"required,workbook"`
	Format  string `json:"format" validate:"omitempty,oneof=xlsx csv"`
	Preview int    `json:"preview" validate:"gte=-1,lte=100"`
}

// downloadRequest is the validated shape of GET /api/coverage/download/{filename}
type downloadRequest struct {
	Filename string `json:"filename" validate:"required,filename,outputname"`
}

// CoverageResponse is the data member of a successful run response
type CoverageResponse struct {
	RunID          string                `json:"run_id"`
	Stats          domain.CoverageStats  `json:"stats"`
	MatchedPreview services.TablePreview `json:"matched_preview"`
	MissingPreview services.TablePreview `json:"missing_preview"`
	Files          exporter.Names        `json:"files"`
	Downloads      map[string]string     `json:"downloads"`
}

// CoverageHandler handles coverage runs and output downloads
type CoverageHandler struct {
	service       CoverageServiceInterface
	validator     *validation.Validator
	files         *validation.FileValidator
	query         *middleware.QueryParamValidator
	metrics       *infrastructure.CoverageMetrics
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	downloadsPath string
}

// NewCoverageHandler creates a new coverage handler. metrics may be nil.
func NewCoverageHandler(service CoverageServiceInterface, metrics *infrastructure.CoverageMetrics, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CoverageHandler {
	logger = logger.With(slog.String("component", "coverage_handler"))
	return &CoverageHandler{
		service:       service,
		validator:     validation.New(),
		files:         validation.NewFileValidator(logger),
		query:         middleware.NewQueryParamValidator(logger, errorHandler),
		metrics:       metrics,
		logger:        logger,
		errorHandler:  errorHandler,
		downloadsPath: "/api/coverage/download/",
	}
}

// Routes returns the coverage routes, mounted under /api/coverage
func (h *CoverageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).
		Post("/", h.Run)
	r.Get("/reports", h.Reports)
	r.Get("/download/{filename}", h.Download)

	return r
}

// Run handles POST /api/coverage with the targets and bulk workbooks as multipart files
func (h *CoverageHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	preview, ok := h.query.ValidateInt(w, r, "preview", 0, MaxPreviewRows, -1)
	if !ok {
		return
	}
	format, ok := h.query.ValidateEnum(w, r, "format", []string{string(exporter.FormatXLSX), string(exporter.FormatCSV)}, "")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(config.MultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	targets, targetsHeader, err := r.FormFile(config.FormFieldTargets)
	if err != nil {
		h.handleFormFileError(w, r, config.FormFieldTargets, err)
		return
	}
	defer targets.Close()

	bulk, bulkHeader, err := r.FormFile(config.FormFieldBulk)
	if err != nil {
		h.handleFormFileError(w, r, config.FormFieldBulk, err)
		return
	}
	defer bulk.Close()

	req := runRequest{
		Targets: filepath.Base(targetsHeader.Filename),
		Bulk:    filepath.Base(bulkHeader.Filename),
		Format:  format,
		Preview: preview,
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	for _, upload := range []struct {
		field string
		name  string
		file  multipart.File
	}{
		{config.FormFieldTargets, req.Targets, targets},
		{config.FormFieldBulk, req.Bulk, bulk},
	} {
		if err := h.files.ValidateUpload(upload.name, upload.file); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidWorkbookError(upload.field, err))
			return
		}
	}

	if h.metrics != nil {
		h.metrics.UploadBytes.Add(ctx, targetsHeader.Size+bulkHeader.Size)
	}

	h.logger.InfoContext(ctx, "coverage upload accepted",
		slog.String("request_id", middleware.GetRequestID(ctx)),
		slog.String("targets", req.Targets),
		slog.Int64("targets_bytes", targetsHeader.Size),
		slog.String("bulk", req.Bulk),
		slog.Int64("bulk_bytes", bulkHeader.Size),
	)

	in := services.RunInput{
		Targets: targets,
		Bulk:    bulk,
		Names:   services.InputNames{Targets: req.Targets, Bulk: req.Bulk},
		Format:  exporter.Format(req.Format),
		Source:  services.SourceHTTP,
	}
	if req.Preview >= 0 {
		in.PreviewRows = &req.Preview
	}

	out, err := h.service.Run(ctx, in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": CoverageResponse{
			RunID:          out.RunID,
			Stats:          out.Stats,
			MatchedPreview: out.MatchedPreview,
			MissingPreview: out.MissingPreview,
			Files:          out.Files,
			Downloads: map[string]string{
				"matched": h.downloadsPath + url.PathEscape(out.Files.Matched),
				"missing": h.downloadsPath + url.PathEscape(out.Files.Missing),
			},
		},
	})
}

func (h *CoverageHandler) handleFormFileError(w http.ResponseWriter, r *http.Request, field string, err error) {
	if errors.Is(err, http.ErrMissingFile) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			apierrors.CodeMissingUpload,
			config.ErrMsgMissingUpload,
			map[string]string{"field": field},
		))
		return
	}
	h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
}

// Reports handles GET /api/coverage/reports, listing the runs still on disk
func (h *CoverageHandler) Reports(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	listing := make([]ReportRun, 0, len(runs))
	for _, run := range runs {
		downloads := make(map[string]string, 2)
		if run.Matched != nil {
			downloads["matched"] = h.downloadsPath + url.PathEscape(run.Matched.Name)
		}
		if run.Missing != nil {
			downloads["missing"] = h.downloadsPath + url.PathEscape(run.Missing.Name)
		}
		listing = append(listing, ReportRun{Run: run, Downloads: downloads})
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"runs": listing},
	})
}

// Download handles GET /api/coverage/download/{filename}
func (h *CoverageHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := downloadRequest{Filename: chi.URLParam(r, "filename")}

	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	f, info, err := h.service.OpenOutput(req.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	h.logger.InfoContext(ctx, "serving coverage output",
		slog.String("request_id", middleware.GetRequestID(ctx)),
		slog.String("filename", req.Filename),
		slog.Int64("size", info.Size()),
	)

	w.Header().Set("Content-Type", outputContentType(req.Filename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename))
	http.ServeContent(w, r, req.Filename, info.ModTime(), f)
}

func outputContentType(name string) string {
	if strings.EqualFold(filepath.Ext(name), "."+string(exporter.FormatCSV)) {
		return "text/csv; charset=utf-8"
	}
	return workbook.ContentType
}
