package handler

import (
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// dateRange is an inclusive day range read from ?from and ?to.
type dateRange struct {
	from *time.Time
	to   *time.Time
}

func parseDateRange(r *http.Request) (dateRange, bool) {
	from, errFrom := parseDateQuery(r, "from")
	to, errTo := parseDateQuery(r, "to")
	if errFrom != nil || errTo != nil {
		return dateRange{}, false
	}
	if from != nil && to != nil && to.Before(*from) {
		return dateRange{}, false
	}
	return dateRange{from: from, to: to}, true
}

func (d dateRange) contains(t time.Time) bool {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	if d.from != nil && day.Before(*d.from) {
		return false
	}
	if d.to != nil && day.After(*d.to) {
		return false
	}
	return true
}

func (d dateRange) suffix() string {
	if d.from == nil || d.to == nil {
		return ""
	}
	return d.from.Format("20060102") + "_" + d.to.Format("20060102")
}
