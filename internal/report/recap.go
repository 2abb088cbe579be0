package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sekolah-catering/api/internal/format"
)

//go:embed templates/recap.html
var recapFS embed.FS

var recapTmpl = template.Must(template.New("recap.html").Funcs(template.FuncMap{
	"price": format.Price,
	"date":  format.Date,
	"dateKey": func(s string) string {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return s
		}
		return format.LongDate(t)
	},
}).ParseFS(recapFS, "templates/recap.html"))

// Recap is the admin order recap, grouped for the kitchen and class teachers.
type Recap struct {
	Start       time.Time `json:"start_date"`
	End         time.Time `json:"end_date"`
	TotalOrders int       `json:"total_orders"`
	Menu        []Group   `json:"menu_items"`
	MenuTotal   Group     `json:"menu_total"`
	ByClass     []Section `json:"by_class"`
	ByDate      []Section `json:"by_date"`
}

func BuildRecap(start, end time.Time, orders int, lines []Line) Recap {
	menu := GroupByMenuItem(lines)
	return Recap{
		Start:       start,
		End:         end,
		TotalOrders: orders,
		Menu:        menu,
		MenuTotal:   Sum(menu),
		ByClass:     SectionsByClass(lines),
		ByDate:      SectionsByDate(lines),
	}
}

// RenderHTML writes the printable recap page.
func RenderHTML(w io.Writer, r Recap) error {
	if err := recapTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("render recap: %w", err)
	}
	return nil
}
