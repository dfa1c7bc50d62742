package app

import (
	"context"
	"sort"

	"github.com/ioezgamer/studio/internal/store"
)

type CountPoint struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

type Dashboard struct {
	TotalRecords      int            `json:"totalRecords"`
	UniqueEquipment   int            `json:"uniqueEquipment"`
	UniqueTechnicians int            `json:"uniqueTechnicians"`
	StatusCounts      map[string]int `json:"statusCounts"`
	Monthly           []CountPoint   `json:"monthly"`
	ByEquipment       []CountPoint   `json:"byEquipment"`
}

// Dashboard aggregates every record. Months are keyed YYYY-MM in
// chronological order; equipment is ordered by count, then name.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	records, err := s.listRecords(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return summarize(records), nil
}

func summarize(records []store.MaintenanceRecord) Dashboard {
	monthly := map[string]int{}
	byEquipment := map[string]int{}
	technicians := map[string]struct{}{}
	statuses := map[string]int{
		string(store.StatusCompleted):  0,
		string(store.StatusPending):    0,
		string(store.StatusInProgress): 0,
	}

	for _, record := range records {
		monthly[record.Date.Format("2006-01")]++
		byEquipment[record.Equipment]++
		technicians[record.Technician] = struct{}{}
		statuses[string(record.Status)]++
	}

	d := Dashboard{
		TotalRecords:      len(records),
		UniqueEquipment:   len(byEquipment),
		UniqueTechnicians: len(technicians),
		StatusCounts:      statuses,
		Monthly:           points(monthly),
		ByEquipment:       points(byEquipment),
	}
	sort.Slice(d.Monthly, func(i, j int) bool { return d.Monthly[i].Name < d.Monthly[j].Name })
	sort.SliceStable(d.ByEquipment, func(i, j int) bool {
		if d.ByEquipment[i].Total != d.ByEquipment[j].Total {
			return d.ByEquipment[i].Total > d.ByEquipment[j].Total
		}
		return d.ByEquipment[i].Name < d.ByEquipment[j].Name
	})
	return d
}

func points(counts map[string]int) []CountPoint {
	out := make([]CountPoint, 0, len(counts))
	for name, total := range counts {
		out = append(out, CountPoint{Name: name, Total: total})
	}
	return out
}
