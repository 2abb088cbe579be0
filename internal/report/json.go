package report

import "encoding/json"

const dateLayout = "2006-01-02"

// Report dates are calendar days; they go out as YYYY-MM-DD.

func (d Day) MarshalJSON() ([]byte, error) {
	type alias Day
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias(d), d.Date.Format(dateLayout)})
}

func (r CashierReport) MarshalJSON() ([]byte, error) {
	type alias CashierReport
	return json.Marshal(struct {
		alias
		Start string `json:"start_date"`
		End   string `json:"end_date"`
	}{alias(r), r.Start.Format(dateLayout), r.End.Format(dateLayout)})
}

func (r Recap) MarshalJSON() ([]byte, error) {
	type alias Recap
	return json.Marshal(struct {
		alias
		Start string `json:"start_date"`
		End   string `json:"end_date"`
	}{alias(r), r.Start.Format(dateLayout), r.End.Format(dateLayout)})
}
