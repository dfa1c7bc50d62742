package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = `id, equipment, asset_number, equipment_user, technician, maintenance_date, status, notes, tasks, created_by, created_at, updated_at`

func (s *PostgresStore) InsertRecord(ctx context.Context, record MaintenanceRecord) error {
	tasks, err := encodeTasks(record.Tasks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO maintenance_records
			(id, equipment, asset_number, equipment_user, technician, maintenance_date, status, notes, tasks, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9::jsonb, $10, $11)
	`, record.ID, record.Equipment, record.AssetNumber, record.User, record.Technician,
		record.Date.Format(time.DateOnly), string(record.Status), record.Notes, tasks, record.CreatedBy, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// UpdateRecord merges the patch into the stored row. Fields absent from the
// patch are left as they are, so concurrent writers touching different
// fields both survive.
func (s *PostgresStore) UpdateRecord(ctx context.Context, id string, patch RecordPatch) error {
	var tasks any
	if patch.Tasks != nil {
		encoded, err := encodeTasks(*patch.Tasks)
		if err != nil {
			return err
		}
		tasks = encoded
	}
	var date any
	if patch.Date != nil {
		date = patch.Date.Format(time.DateOnly)
	}
	var status any
	if patch.Status != nil {
		status = string(*patch.Status)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_records SET
			equipment = COALESCE($2, equipment),
			asset_number = COALESCE($3, asset_number),
			equipment_user = COALESCE($4, equipment_user),
			technician = COALESCE($5, technician),
			maintenance_date = COALESCE($6::date, maintenance_date),
			status = COALESCE($7, status),
			notes = COALESCE($8, notes),
			tasks = COALESCE($9::jsonb, tasks),
			updated_at = NOW()
		WHERE id = $1
	`, id, nullable(patch.Equipment), nullable(patch.AssetNumber), nullable(patch.User),
		nullable(patch.Technician), date, status, nullable(patch.Notes), tasks)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM maintenance_records WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (MaintenanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM maintenance_records WHERE id=$1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MaintenanceRecord{}, ErrNotFound
	}
	if err != nil {
		return MaintenanceRecord{}, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// ListRecords is a full scan, newest first.
func (s *PostgresStore) ListRecords(ctx context.Context) ([]MaintenanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM maintenance_records ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collectRecords(rows)
}

// SearchRecords is the substring fallback used when no search index is
// reachable. An empty status matches every record.
func (s *PostgresStore) SearchRecords(ctx context.Context, query, status string, limit int) ([]MaintenanceRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM maintenance_records
		WHERE (equipment ILIKE $1 OR asset_number ILIKE $1 OR equipment_user ILIKE $1
			OR technician ILIKE $1 OR notes ILIKE $1 OR tasks::text ILIKE $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, pattern, status, limit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return collectRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (MaintenanceRecord, error) {
	var (
		record    MaintenanceRecord
		status    string
		tasks     []byte
		updatedAt sql.NullTime
	)
	if err := row.Scan(&record.ID, &record.Equipment, &record.AssetNumber, &record.User, &record.Technician,
		&record.Date, &status, &record.Notes, &tasks, &record.CreatedBy, &record.CreatedAt, &updatedAt); err != nil {
		return MaintenanceRecord{}, err
	}
	record.Status = Status(status)
	record.Tasks = []Task{}
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &record.Tasks); err != nil {
			return MaintenanceRecord{}, fmt.Errorf("decode tasks for %s: %w", record.ID, err)
		}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		record.UpdatedAt = &t
	}
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]MaintenanceRecord, error) {
	defer rows.Close()
	records := make([]MaintenanceRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func encodeTasks(tasks []Task) (string, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	encoded, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("encode tasks: %w", err)
	}
	return string(encoded), nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
