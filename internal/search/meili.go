package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const recordsIndex = "techcare_records"

var errUnhealthy = errors.New("meilisearch unhealthy")

// Meili implements Index on top of Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	logger  *zap.Logger
	done    chan struct{}
}

// NewMeili never fails: an unreachable server starts unhealthy and the health
// loop reconfigures the index once it comes back.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}
	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}
	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: recordsIndex, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", recordsIndex), zap.Error(err))
	}
	index := m.client.Index(recordsIndex)

	filterable := []interface{}{"status", "equipment", "technician"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"equipment", "assetNumber", "user", "technician", "tasks", "notes"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Swap(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, errUnhealthy
	}
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}
	req := &meili.SearchRequest{
		IndexUID:              recordsIndex,
		Query:                 q.Text,
		Limit:                 limit,
		AttributesToHighlight: []string{"tasks", "notes"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.Status != "" {
		req.Filter = fmt.Sprintf("status = %q", q.Status)
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{req}})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0)
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func (m *Meili) Upsert(_ context.Context, docs ...RecordDoc) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := m.client.Index(recordsIndex).AddDocuments(docs, nil)
	return err
}

func (m *Meili) Delete(_ context.Context, id string) error {
	_, err := m.client.Index(recordsIndex).DeleteDocument(id, nil)
	return err
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:          decodeString(hit, "id"),
		Equipment:   decodeString(hit, "equipment"),
		AssetNumber: decodeString(hit, "assetNumber"),
		Technician:  decodeString(hit, "technician"),
		Date:        decodeString(hit, "date"),
		Status:      decodeString(hit, "status"),
		Snippet:     firstNonBlank(formattedTask(hit), decodeFormatted(hit, "notes")),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func formatted(hit meili.Hit) map[string]json.RawMessage {
	raw, ok := hit["_formatted"]
	if !ok {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func decodeFormatted(hit meili.Hit, key string) string {
	var s string
	if err := json.Unmarshal(formatted(hit)[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// formattedTask returns the first highlighted task, if any.
func formattedTask(hit meili.Hit) string {
	var tasks []string
	if err := json.Unmarshal(formatted(hit)["tasks"], &tasks); err != nil {
		return ""
	}
	for _, task := range tasks {
		if strings.Contains(task, "<mark>") {
			return task
		}
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
