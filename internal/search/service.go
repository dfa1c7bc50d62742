package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ioezgamer/studio/internal/store"
	"go.uber.org/zap"
)

const (
	EngineMeili    = "meilisearch"
	EnginePostgres = "postgres"
)

// Service tries the index first and falls back to the database.
type Service struct {
	index    Index
	fallback Fallback
	logger   *zap.Logger
}

// NewService accepts a nil index when Meilisearch is not configured.
func NewService(index Index, fallback Fallback, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, fallback: fallback, logger: logger}
}

// Search errors only when the database fallback fails; an index failure
// degrades to the fallback.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return Response{Results: []Result{}, Query: q.Text, Engine: EnginePostgres}, nil
	}
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: results, Total: total, Query: q.Text, Engine: EngineMeili}, nil
		}
		s.logger.Warn("index search failed, falling back to postgres", zap.Error(err))
	}

	records, err := s.fallback.SearchRecords(ctx, q.Text, q.Status, q.Limit)
	if err != nil {
		return Response{}, fmt.Errorf("fallback search: %w", err)
	}
	results := make([]Result, 0, len(records))
	for _, record := range records {
		results = append(results, resultFromRecord(record, q.Text))
	}
	return Response{Results: results, Total: len(results), Query: q.Text, Engine: EnginePostgres}, nil
}

// IndexRecord pushes the record to the index without blocking the caller.
func (s *Service) IndexRecord(record store.MaintenanceRecord) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	doc := DocFromRecord(record)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.index.Upsert(ctx, doc); err != nil {
			s.logger.Warn("index record", zap.String("record_id", doc.ID), zap.Error(err))
		}
	}()
}

func (s *Service) RemoveRecord(id string) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn("remove record from index", zap.String("record_id", id), zap.Error(err))
		}
	}()
}

// Reindex loads every record from the database into the index. Called at
// startup so the index survives restarts of either side.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil || !s.index.Healthy() {
		return 0, nil
	}
	records, err := s.fallback.ListRecords(ctx)
	if err != nil {
		return 0, err
	}
	docs := make([]RecordDoc, 0, len(records))
	for _, record := range records {
		docs = append(docs, DocFromRecord(record))
	}
	if err := s.index.Upsert(ctx, docs...); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func resultFromRecord(record store.MaintenanceRecord, text string) Result {
	snippet := record.Notes
	needle := strings.ToLower(text)
	for _, task := range record.Tasks {
		if strings.Contains(strings.ToLower(task.Description), needle) {
			snippet = task.Description
			break
		}
	}
	return Result{
		ID:          record.ID,
		Equipment:   record.Equipment,
		AssetNumber: record.AssetNumber,
		Technician:  record.Technician,
		Date:        record.Date.Format("2006-01-02"),
		Status:      string(record.Status),
		Snippet:     snippet,
	}
}
