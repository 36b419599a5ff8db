// Package imports bulk-loads leads from CSV uploads, optionally archiving the
// raw file and handing the new leads to the assignment engine.
package imports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"
	"admissions_crm/platform/storage"
	"admissions_crm/platform/validator"

	"github.com/google/uuid"
)

const (
	opImport       = "leads.imports.import"
	opImportObject = "leads.imports.import_object"
	opArchive      = "leads.imports.archive"

	archiveFolder = "lead-imports"
	contentType   = "text/csv"
	// maxUploadBytes caps uploads when no object store enforces its own limit.
	maxUploadBytes = 10 << 20
)

type Repository interface {
	CreateLead(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	GetCounsellor(ctx context.Context, id uuid.UUID) (domain.Counsellor, error)
}

// Assigner is satisfied by *assignment.Service.
type Assigner interface {
	AssignLeads(ctx context.Context, leads []domain.Lead, method assignment.Method) (assignment.Result, error)
}

type Options struct {
	FileName   string
	SourceID   *uuid.UUID
	AssignTo   *uuid.UUID
	AutoAssign bool
	Method     assignment.Method
}

type Result struct {
	Imported  int        `json:"imported"`
	Failed    int        `json:"failed"`
	Assigned  int        `json:"assigned"`
	Errors    []RowError `json:"errors"`
	ObjectKey string     `json:"objectKey,omitempty"`
	// AssignError is set when leads were imported but auto-assignment failed.
	AssignError string `json:"assignError,omitempty"`
}

type Service struct {
	repo      Repository
	assigner  Assigner
	store     storage.ObjectStore
	bucket    string
	bus       events.Bus
	log       *logger.Logger
	validator *validator.Validator
}

// NewService wires the importer. store may be nil, in which case uploads are
// not archived and ImportObject is unavailable.
func NewService(repo Repository, assigner Assigner, store storage.ObjectStore, bucket string, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		assigner:  assigner,
		store:     store,
		bucket:    bucket,
		bus:       bus,
		log:       log,
		validator: validator.New(),
	}
}

// CanArchive reports whether uploads can be stored for deferred imports.
func (s *Service) CanArchive() bool {
	return s.store != nil
}

// Import reads a CSV upload, archives it when storage is configured and
// creates one lead per valid row.
func (s *Service) Import(ctx context.Context, file io.Reader, opts Options) (Result, error) {
	data, err := readUpload(file)
	if err != nil {
		return Result{}, apperr.Validation(err.Error()).WithOp(opImport)
	}

	var key string
	if s.store != nil {
		key, err = s.upload(ctx, data, opts.FileName)
		if err != nil {
			// The import itself does not depend on the archive.
			s.log.Warn("failed to archive lead import", "error", err, "file", opts.FileName)
		}
	}
	return s.run(ctx, data, key, opts, opImport)
}

// Archive stores an upload for a later ImportObject call.
func (s *Service) Archive(ctx context.Context, file io.Reader, fileName string) (string, error) {
	if s.store == nil {
		return "", apperr.BadRequest("deferred imports need object storage").WithOp(opArchive)
	}
	data, err := readUpload(file)
	if err != nil {
		return "", apperr.Validation(err.Error()).WithOp(opArchive)
	}
	key, err := s.upload(ctx, data, fileName)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to archive import", err).WithOp(opArchive)
	}
	return key, nil
}

// ImportObject imports a file previously stored by Archive or Import.
func (s *Service) ImportObject(ctx context.Context, key string, opts Options) (Result, error) {
	if s.store == nil {
		return Result{}, apperr.BadRequest("deferred imports need object storage").WithOp(opImportObject)
	}
	obj, err := s.store.DownloadFile(ctx, s.bucket, key)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to open archived import", err).WithOp(opImportObject)
	}
	defer obj.Close()

	data, err := readUpload(obj)
	if err != nil {
		return Result{}, apperr.Validation(err.Error()).WithOp(opImportObject)
	}
	return s.run(ctx, data, key, opts, opImportObject)
}

func (s *Service) run(ctx context.Context, data []byte, key string, opts Options, op string) (Result, error) {
	if opts.AssignTo != nil {
		c, err := s.repo.GetCounsellor(ctx, *opts.AssignTo)
		if errors.Is(err, repository.ErrCounsellorNotFound) || (err == nil && !c.IsActive) {
			return Result{}, apperr.Validation("assignTo must be an active counsellor").WithOp(op)
		}
		if err != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellor", err).WithOp(op)
		}
	}

	rows, rowErrs, err := readRows(bytes.NewReader(data), s.validator, opts.SourceID)
	if err != nil {
		return Result{}, apperr.Validation(err.Error()).WithOp(op)
	}

	result := Result{ObjectKey: key, Errors: rowErrs}
	imported := make([]domain.Lead, 0, len(rows))
	for _, row := range rows {
		params := row.params
		params.AssignedTo = opts.AssignTo
		lead, err := s.repo.CreateLead(ctx, params)
		if err != nil {
			s.log.Error("failed to import lead row", "error", err, "row", row.line)
			result.Errors = append(result.Errors, RowError{Row: row.line, Message: "could not save lead"})
			continue
		}
		imported = append(imported, lead)
	}
	result.Imported = len(imported)
	result.Failed = len(result.Errors)
	if result.Errors == nil {
		result.Errors = []RowError{}
	}

	switch {
	case opts.AssignTo != nil:
		result.Assigned = result.Imported
	case opts.AutoAssign && len(imported) > 0 && s.assigner != nil:
		res, err := s.assigner.AssignLeads(ctx, imported, opts.Method)
		if err != nil {
			s.log.Warn("auto-assignment after import failed", "error", err, "imported", result.Imported)
			result.AssignError = err.Error()
		}
		result.Assigned = res.Assigned
	}

	s.log.Info("lead import finished",
		"imported", result.Imported, "failed", result.Failed, "assigned", result.Assigned, "objectKey", key)
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadsImported{
			BaseEvent: events.NewBaseEvent(),
			Imported:  result.Imported,
			Skipped:   result.Failed,
			Assigned:  result.Assigned,
			ObjectKey: key,
		})
	}
	return result, nil
}

func (s *Service) upload(ctx context.Context, data []byte, fileName string) (string, error) {
	if err := s.store.ValidateFileSize(int64(len(data))); err != nil {
		return "", err
	}
	if fileName == "" {
		fileName = "leads.csv"
	}
	return s.store.UploadFile(ctx, s.bucket, archiveFolder, fileName, contentType, bytes.NewReader(data), int64(len(data)))
}

func readUpload(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", maxUploadBytes)
	}
	return data, nil
}
