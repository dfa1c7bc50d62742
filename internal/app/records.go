package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ioezgamer/studio/internal/export"
	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/search"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/ioezgamer/studio/internal/util"
	"go.uber.org/zap"
)

// RecordInput is the create payload. Date accepts YYYY-MM-DD or RFC3339.
type RecordInput struct {
	Equipment   string       `json:"equipment"`
	AssetNumber string       `json:"assetNumber"`
	User        string       `json:"user"`
	Technician  string       `json:"technician"`
	Date        string       `json:"date"`
	Status      string       `json:"status"`
	Notes       string       `json:"notes"`
	Tasks       []store.Task `json:"tasks"`
}

// RecordPatch is the update payload; absent fields stay untouched.
type RecordPatch struct {
	Equipment   *string       `json:"equipment"`
	AssetNumber *string       `json:"assetNumber"`
	User        *string       `json:"user"`
	Technician  *string       `json:"technician"`
	Date        *string       `json:"date"`
	Status      *string       `json:"status"`
	Notes       *string       `json:"notes"`
	Tasks       *[]store.Task `json:"tasks"`
}

type RecordView struct {
	ID                  string       `json:"id"`
	Equipment           string       `json:"equipment"`
	AssetNumber         string       `json:"assetNumber"`
	User                string       `json:"user"`
	Technician          string       `json:"technician"`
	Date                string       `json:"date"`
	NextMaintenanceDate string       `json:"nextMaintenanceDate"`
	Status              string       `json:"status"`
	Notes               string       `json:"notes"`
	Tasks               []store.Task `json:"tasks"`
	CreatedBy           string       `json:"createdBy"`
	CreatedAt           string       `json:"createdAt"`
	UpdatedAt           *string      `json:"updatedAt,omitempty"`
}

func recordView(record store.MaintenanceRecord) RecordView {
	tasks := record.Tasks
	if tasks == nil {
		tasks = []store.Task{}
	}
	view := RecordView{
		ID:                  record.ID,
		Equipment:           record.Equipment,
		AssetNumber:         record.AssetNumber,
		User:                record.User,
		Technician:          record.Technician,
		Date:                record.Date.Format(time.DateOnly),
		NextMaintenanceDate: export.NextMaintenanceDate(record.Date).Format(time.DateOnly),
		Status:              string(record.Status),
		Notes:               record.Notes,
		Tasks:               tasks,
		CreatedBy:           record.CreatedBy,
		CreatedAt:           record.CreatedAt.UTC().Format(time.RFC3339),
	}
	if record.UpdatedAt != nil {
		updated := record.UpdatedAt.UTC().Format(time.RFC3339)
		view.UpdatedAt = &updated
	}
	return view
}

// parseDate keeps only the calendar date of the input.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.DateOnly, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, validationError("La fecha debe tener el formato AAAA-MM-DD.")
	}
	y, m, d := parsed.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func parseStatus(value string) (store.Status, error) {
	status := store.Status(strings.TrimSpace(value))
	if !status.Valid() {
		return "", validationError("Estado no válido: debe ser Completed, Pending o InProgress.")
	}
	return status, nil
}

func cleanTasks(tasks []store.Task) ([]store.Task, error) {
	cleaned := make([]store.Task, 0, len(tasks))
	for _, task := range tasks {
		task.Description = strings.TrimSpace(task.Description)
		if task.Description == "" {
			continue
		}
		cleaned = append(cleaned, task)
	}
	if len(cleaned) == 0 {
		return nil, validationError("Agrega al menos una tarea.")
	}
	return cleaned, nil
}

func (in RecordInput) toRecord() (store.MaintenanceRecord, error) {
	record := store.MaintenanceRecord{
		Equipment:   strings.TrimSpace(in.Equipment),
		AssetNumber: strings.TrimSpace(in.AssetNumber),
		User:        strings.TrimSpace(in.User),
		Technician:  strings.TrimSpace(in.Technician),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if record.Equipment == "" || record.AssetNumber == "" || record.User == "" || record.Technician == "" {
		return store.MaintenanceRecord{}, validationError("Equipo, número de activo, usuario y técnico son obligatorios.")
	}
	var err error
	if record.Date, err = parseDate(in.Date); err != nil {
		return store.MaintenanceRecord{}, err
	}
	if record.Status, err = parseStatus(in.Status); err != nil {
		return store.MaintenanceRecord{}, err
	}
	if record.Tasks, err = cleanTasks(in.Tasks); err != nil {
		return store.MaintenanceRecord{}, err
	}
	return record, nil
}

func (p RecordPatch) toStore() (store.RecordPatch, error) {
	patch := store.RecordPatch{
		Equipment:   trimmed(p.Equipment),
		AssetNumber: trimmed(p.AssetNumber),
		User:        trimmed(p.User),
		Technician:  trimmed(p.Technician),
		Notes:       trimmed(p.Notes),
	}
	for _, field := range []*string{patch.Equipment, patch.AssetNumber, patch.User, patch.Technician} {
		if field != nil && *field == "" {
			return store.RecordPatch{}, validationError("Los campos enviados no pueden estar vacíos.")
		}
	}
	if p.Date != nil {
		date, err := parseDate(*p.Date)
		if err != nil {
			return store.RecordPatch{}, err
		}
		patch.Date = &date
	}
	if p.Status != nil {
		status, err := parseStatus(*p.Status)
		if err != nil {
			return store.RecordPatch{}, err
		}
		patch.Status = &status
	}
	if p.Tasks != nil {
		tasks, err := cleanTasks(*p.Tasks)
		if err != nil {
			return store.RecordPatch{}, err
		}
		patch.Tasks = &tasks
	}
	if patch.Empty() {
		return store.RecordPatch{}, validationError("No hay campos para actualizar.")
	}
	return patch, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}

func (s *Service) CreateRecord(ctx context.Context, input RecordInput, actorID string) (RecordView, error) {
	if err := s.authorize(ctx, actorID, rbac.ActionWrite); err != nil {
		return RecordView{}, err
	}
	record, err := input.toRecord()
	if err != nil {
		return RecordView{}, err
	}
	record.ID = util.NewID("rec")
	record.CreatedBy = actorID
	record.CreatedAt = s.now().UTC()

	if err := s.store.InsertRecord(ctx, record); err != nil {
		s.logger.Error("insert record", zap.String("actor", actorID), zap.Error(err))
		return RecordView{}, storeFailure()
	}
	s.search.IndexRecord(record)
	return recordView(record), nil
}

// UpdateRecord writes only the fields present in input. There is no version
// check: concurrent edits resolve last-write-wins per field.
func (s *Service) UpdateRecord(ctx context.Context, id string, input RecordPatch, actorID string) error {
	if err := s.authorize(ctx, actorID, rbac.ActionWrite); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("ID de registro inválido.")
	}
	patch, err := input.toStore()
	if err != nil {
		return err
	}
	if err := s.store.UpdateRecord(ctx, id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("El registro no existe.")
		}
		s.logger.Error("update record", zap.String("id", id), zap.String("actor", actorID), zap.Error(err))
		return storeFailure()
	}
	s.reindex(ctx, id)
	return nil
}

func (s *Service) DeleteRecord(ctx context.Context, id, actorID string) error {
	if err := s.authorize(ctx, actorID, rbac.ActionDelete); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("ID de registro inválido.")
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("El registro no existe.")
		}
		s.logger.Error("delete record", zap.String("id", id), zap.String("actor", actorID), zap.Error(err))
		return storeFailure()
	}
	s.search.RemoveRecord(id)
	return nil
}

// ListRecords returns every record, newest first.
func (s *Service) ListRecords(ctx context.Context) ([]RecordView, error) {
	records, err := s.listRecords(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, recordView(record))
	}
	return views, nil
}

func (s *Service) listRecords(ctx context.Context) ([]store.MaintenanceRecord, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		s.logger.Error("list records", zap.Error(err))
		return nil, storeFailure()
	}
	return records, nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (RecordView, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return RecordView{}, err
	}
	return recordView(record), nil
}

func (s *Service) getRecord(ctx context.Context, id string) (store.MaintenanceRecord, error) {
	record, err := s.store.GetRecord(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return store.MaintenanceRecord{}, notFound("El registro no existe.")
	}
	if err != nil {
		s.logger.Error("get record", zap.String("id", id), zap.Error(err))
		return store.MaintenanceRecord{}, storeFailure()
	}
	return record, nil
}

// reindex refreshes the search document after an update. Failures only cost
// search freshness.
func (s *Service) reindex(ctx context.Context, id string) {
	record, err := s.store.GetRecord(ctx, id)
	if err != nil {
		s.logger.Warn("reload record for indexing", zap.String("id", id), zap.Error(err))
		return
	}
	s.search.IndexRecord(record)
}

func (s *Service) SearchRecords(ctx context.Context, q search.Query) (search.Response, error) {
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		s.logger.Error("search records", zap.String("query", q.Text), zap.Error(err))
		return search.Response{}, storeFailure()
	}
	return resp, nil
}

func (s *Service) ExportRecords(ctx context.Context, format export.Format) (*export.Result, error) {
	records, err := s.listRecords(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.export.Records(records, format)
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return nil, validationError("Formato de exportación no soportado.")
	}
	if err != nil {
		s.logger.Error("export records", zap.String("format", string(format)), zap.Error(err))
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "No se pudo generar la exportación.", nil)
	}
	return result, nil
}

func (s *Service) RecordReport(ctx context.Context, id string, format export.Format) (*export.Result, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.export.Report(ctx, record, format)
	switch {
	case errors.Is(err, export.ErrUnsupportedFormat):
		return nil, validationError("Formato de reporte no soportado.")
	case errors.Is(err, export.ErrRendererMissing):
		return nil, domainError(http.StatusServiceUnavailable, "REPORT_UNAVAILABLE", "El generador de reportes no está disponible.", nil)
	case err != nil:
		s.logger.Error("render report", zap.String("id", record.ID), zap.String("format", string(format)), zap.Error(err))
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "No se pudo generar el reporte.", nil)
	}
	return result, nil
}
