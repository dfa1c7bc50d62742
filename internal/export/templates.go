package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/ioezgamer/studio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var monthsES = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
	"agosto", "septiembre", "octubre", "noviembre", "diciembre"}

func longDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), monthsES[t.Month()-1], t.Year())
}

func longDateTime(t time.Time) string {
	return fmt.Sprintf("%s, %s", longDate(t), t.Format("3:04 PM"))
}

func statusLabel(s store.Status) string {
	switch s {
	case store.StatusCompleted:
		return "Completado"
	case store.StatusPending:
		return "Pendiente"
	case store.StatusInProgress:
		return "En Progreso"
	default:
		return string(s)
	}
}

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"longDate":     longDate,
	"longDateTime": longDateTime,
	"statusLabel":  statusLabel,
}).ParseFS(templateFS, "templates/report.html"))

type reportData struct {
	Record          store.MaintenanceRecord
	NextMaintenance time.Time
	GeneratedAt     time.Time
}

// NextMaintenanceDate is four calendar months after the maintenance date.
func NextMaintenanceDate(date time.Time) time.Time {
	return date.AddDate(0, 4, 0)
}

func RenderReportHTML(record store.MaintenanceRecord, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	data := reportData{Record: record, NextMaintenance: NextMaintenanceDate(record.Date), GeneratedAt: generatedAt}
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
