package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/fittrack/internal/blob"
	"github.com/fdg312/fittrack/internal/storage"
)

var (
	ErrInvalidFormat    = errors.New("invalid report format")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrRangeTooLarge    = errors.New("date range too large")
	ErrReportNotFound   = errors.New("report not found")
)

// Service handles report generation and delivery.
type Service struct {
	storage      storage.ReportsStorage
	generator    *Generator
	blobStore    blob.Store
	logger       *log.Logger
	maxRangeDays int
	presignTTL   int
	localMode    bool // true if no S3 configured
}

func NewService(
	reportsStorage storage.ReportsStorage,
	meals storage.MealsStorage,
	sessions storage.SessionsStorage,
	blobStore blob.Store,
	logger *log.Logger,
	maxRangeDays int,
	presignTTL int,
) *Service {
	return &Service{
		storage:      reportsStorage,
		generator:    NewGenerator(meals, sessions),
		blobStore:    blobStore,
		logger:       logger,
		maxRangeDays: maxRangeDays,
		presignTTL:   presignTTL,
		localMode:    blobStore == nil,
	}
}

// CreateReport generates a report over the requested range and stores it.
func (s *Service) CreateReport(ctx context.Context, ownerUserID string, req CreateReportRequest) (*Report, error) {
	if req.Format != FormatPDF && req.Format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	fromDate, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, ErrInvalidDate
	}
	toDate, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if fromDate.After(toDate) {
		return nil, ErrInvalidDateRange
	}
	if int(toDate.Sub(fromDate).Hours()/24) > s.maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	data, err := s.generator.GenerateReport(ctx, ownerUserID, req)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	meta := &storage.ReportMeta{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Format:      req.Format,
		FromDate:    req.From,
		ToDate:      req.To,
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
		CreatedAt:   time.Now().UTC(),
	}

	if s.localMode {
		meta.Data = data
	} else {
		objectKey := fmt.Sprintf("reports/%s/%s_%s_%s.%s",
			ownerUserID, req.From, req.To, meta.ID.String(), req.Format)

		contentType := "application/pdf"
		if req.Format == FormatCSV {
			contentType = "text/csv"
		}

		if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentType); err != nil {
			return nil, fmt.Errorf("upload report: %w", err)
		}
		meta.ObjectKey = &objectKey
	}

	if err := s.storage.CreateReport(ctx, meta); err != nil {
		return nil, fmt.Errorf("save report metadata: %w", err)
	}

	return toReport(meta), nil
}

// GetReport returns the owner's report by id.
func (s *Service) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (*Report, error) {
	meta, err := s.ownedReport(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	return toReport(meta), nil
}

// ListReports lists the owner's reports, newest first.
func (s *Service) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]Report, error) {
	metaList, err := s.storage.ListReports(ctx, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]Report, len(metaList))
	for i := range metaList {
		reports[i] = *toReport(&metaList[i])
	}
	return reports, nil
}

// DeleteReport removes the report metadata and its stored object.
func (s *Service) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	meta, err := s.ownedReport(ctx, ownerUserID, id)
	if err != nil {
		return err
	}

	// Object deletion is best effort, the metadata row is authoritative.
	if !s.localMode && meta.ObjectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			s.logger.Printf("WARN reports: delete object %s failed: %v", *meta.ObjectKey, err)
		}
	}

	if err := s.storage.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete report metadata: %w", err)
	}
	return nil
}

// GetReportDownloadURL resolves the download link for a report. In local mode
// that is the server's own download endpoint, otherwise a presigned S3 URL.
func (s *Service) GetReportDownloadURL(ctx context.Context, ownerUserID string, id uuid.UUID, baseURL string) (string, error) {
	meta, err := s.ownedReport(ctx, ownerUserID, id)
	if err != nil {
		return "", err
	}

	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), id.String()), nil
	}

	if meta.ObjectKey == nil {
		return "", fmt.Errorf("report %s has no object key", id)
	}
	return s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.presignTTL)
}

// GetReportData returns the raw report body for the local download endpoint.
func (s *Service) GetReportData(ctx context.Context, ownerUserID string, id uuid.UUID) ([]byte, string, error) {
	meta, err := s.ownedReport(ctx, ownerUserID, id)
	if err != nil {
		return nil, "", err
	}

	contentType := "application/pdf"
	if meta.Format == FormatCSV {
		contentType = "text/csv"
	}

	if s.localMode {
		return meta.Data, contentType, nil
	}
	if meta.ObjectKey == nil {
		return nil, "", fmt.Errorf("report %s has no object key", id)
	}
	data, err := s.blobStore.GetObject(ctx, *meta.ObjectKey)
	if err != nil {
		return nil, "", fmt.Errorf("fetch report object: %w", err)
	}
	return data, contentType, nil
}

// ownedReport loads the report and hides it behind ErrReportNotFound when it
// belongs to another owner.
func (s *Service) ownedReport(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.ReportMeta, error) {
	meta, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	if meta.OwnerUserID != ownerUserID {
		return nil, ErrReportNotFound
	}
	return meta, nil
}

func toReport(meta *storage.ReportMeta) *Report {
	return &Report{
		ID:          meta.ID,
		OwnerUserID: meta.OwnerUserID,
		Format:      meta.Format,
		From:        meta.FromDate,
		To:          meta.ToDate,
		SizeBytes:   meta.SizeBytes,
		Status:      meta.Status,
		CreatedAt:   meta.CreatedAt,
	}
}
