package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reusability-token/internal/ids"
	"reusability-token/internal/report"
)

type RunHandlers struct {
	runs report.Reader
}

func NewRunHandlers(runs report.Reader) *RunHandlers {
	return &RunHandlers{runs: runs}
}

func (h *RunHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	}
}

func (h *RunHandlers) Run() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s, err := h.runs.Summary()
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, s)
	}
}

type daysPage struct {
	Items  []report.Day `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (h *RunHandlers) Days() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, total := h.runs.Days(limit, offset)
		writeJSON(w, daysPage{Items: items, Total: total, Limit: limit, Offset: offset})
	}
}

func (h *RunHandlers) LatestDay() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		d, err := h.runs.Latest()
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, d)
	}
}

func (h *RunHandlers) Day() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := strconv.Atoi(chi.URLParam(r, "day"))
		if err != nil || day < 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_day")
			return
		}
		d, err := h.runs.Day(day)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, d)
	}
}

func (h *RunHandlers) BlacklistedShops() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		d, err := h.runs.Latest()
		if errors.Is(err, report.ErrDayNotFound) {
			writeJSON(w, map[string]any{"day": nil, "shops": []ids.Address{}})
			return
		}
		if err != nil {
			writeLookupError(w, err)
			return
		}
		shops := d.Blacklisted
		if shops == nil {
			shops = []ids.Address{}
		}
		writeJSON(w, map[string]any{"day": d.Day, "shops": shops})
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrNoRun):
		WriteHTTPError(w, http.StatusNotFound, "run_not_started")
	case errors.Is(err, report.ErrDayNotFound):
		WriteHTTPError(w, http.StatusNotFound, "day_not_found")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
