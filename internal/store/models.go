package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusPending, StatusInProgress:
		return true
	default:
		return false
	}
}

// Reference list names. Any other list name is rejected before reaching SQL.
const (
	ListEquipment    = "equipment"
	ListAppUsers     = "appUsers"
	ListTechnicians  = "technicians"
	ListAssetNumbers = "assetNumbers"
)

var ReferenceLists = []string{ListEquipment, ListAppUsers, ListTechnicians, ListAssetNumbers}

func IsReferenceList(name string) bool {
	for _, list := range ReferenceLists {
		if list == name {
			return true
		}
	}
	return false
}

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// Relevance is produced once when a task is added and never re-validated.
type Relevance struct {
	IsRelevant  bool   `json:"isRelevant"`
	Explanation string `json:"relevanceExplanation"`
}

type Task struct {
	Description string     `json:"description"`
	Relevance   *Relevance `json:"relevance,omitempty"`
}

type MaintenanceRecord struct {
	ID          string
	Equipment   string
	AssetNumber string
	User        string
	Technician  string
	Date        time.Time
	Status      Status
	Notes       string
	Tasks       []Task
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// RecordPatch carries only the fields to overwrite; nil fields keep their
// stored value.
type RecordPatch struct {
	Equipment   *string
	AssetNumber *string
	User        *string
	Technician  *string
	Date        *time.Time
	Status      *Status
	Notes       *string
	Tasks       *[]Task
}

func (p RecordPatch) Empty() bool {
	return p.Equipment == nil && p.AssetNumber == nil && p.User == nil && p.Technician == nil &&
		p.Date == nil && p.Status == nil && p.Notes == nil && p.Tasks == nil
}

type ReferenceItem struct {
	ID        string
	List      string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}
