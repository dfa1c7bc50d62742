package search

import (
	"context"

	"github.com/ioezgamer/studio/internal/store"
)

// RecordDoc is what gets indexed for a maintenance record.
type RecordDoc struct {
	ID          string   `json:"id"`
	Equipment   string   `json:"equipment"`
	AssetNumber string   `json:"assetNumber"`
	User        string   `json:"user"`
	Technician  string   `json:"technician"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	Notes       string   `json:"notes"`
	Tasks       []string `json:"tasks"`
	CreatedAt   int64    `json:"createdAt"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Equipment   string `json:"equipment"`
	AssetNumber string `json:"assetNumber"`
	Technician  string `json:"technician"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Snippet     string `json:"snippet"`
}

type Query struct {
	Text   string
	Status string
	Limit  int
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// Index is the external full-text engine.
type Index interface {
	Healthy() bool
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Upsert(ctx context.Context, docs ...RecordDoc) error
	Delete(ctx context.Context, id string) error
}

// Fallback is the database-side substring search.
type Fallback interface {
	SearchRecords(ctx context.Context, query, status string, limit int) ([]store.MaintenanceRecord, error)
	ListRecords(ctx context.Context) ([]store.MaintenanceRecord, error)
}

func DocFromRecord(record store.MaintenanceRecord) RecordDoc {
	tasks := make([]string, 0, len(record.Tasks))
	for _, task := range record.Tasks {
		tasks = append(tasks, task.Description)
	}
	return RecordDoc{
		ID:          record.ID,
		Equipment:   record.Equipment,
		AssetNumber: record.AssetNumber,
		User:        record.User,
		Technician:  record.Technician,
		Date:        record.Date.Format("2006-01-02"),
		Status:      string(record.Status),
		Notes:       record.Notes,
		Tasks:       tasks,
		CreatedAt:   record.CreatedAt.Unix(),
	}
}
