package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

const (
	defaultPage         = 1
	defaultItemsPerPage = 10
	maxItemsPerPage     = 250

	dateLayout = "2006-01-02"
)

// GetTable returns a paginated listing of processed recordings, newest
// first, for the frontend's table view.
func (h *Handlers) GetTable(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", defaultPage)
	itemsPerPage := queryInt(r, "itemsPerPage", defaultItemsPerPage)

	if page < 1 {
		page = defaultPage
	}
	if itemsPerPage < 1 {
		itemsPerPage = defaultItemsPerPage
	}
	if itemsPerPage > maxItemsPerPage {
		itemsPerPage = maxItemsPerPage
	}

	listing, err := h.db.ListTable(r.Context(), page, itemsPerPage)
	if err != nil {
		logging.Error("Table: listing failed: %v", err)
		writeJSONError(w, "Failed to list files", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing)
}

// GetCalendar returns per-hour recording counts for one day, used to
// render the calendar drill-down view.
func (h *Handlers) GetCalendar(w http.ResponseWriter, r *http.Request) {
	day, category, ok := h.dayAndCategory(w, r)
	if !ok {
		return
	}

	counts, err := h.db.CountPerHour(r.Context(), day, category)
	if err != nil {
		logging.Error("Calendar: count failed for %s: %v", day.Format(dateLayout), err)
		writeJSONError(w, "Failed to count recordings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, counts)
}

// GetHour returns the recordings captured in one hour of one day.
func (h *Handlers) GetHour(w http.ResponseWriter, r *http.Request) {
	day, category, ok := h.dayAndCategory(w, r)
	if !ok {
		return
	}

	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		writeJSONError(w, "Invalid hour", http.StatusBadRequest)
		return
	}

	records, err := h.db.ListHour(r.Context(), day, hour, category)
	if err != nil {
		logging.Error("Hour: listing failed for %s %02d: %v", day.Format(dateLayout), hour, err)
		writeJSONError(w, "Failed to list recordings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}

// dayAndCategory parses the date and type query parameters shared by
// the calendar endpoints, writing a 400 itself on bad input.
func (h *Handlers) dayAndCategory(w http.ResponseWriter, r *http.Request) (time.Time, database.Category, bool) {
	day, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return time.Time{}, 0, false
	}

	category := database.CategoryNormal
	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		v, err := strconv.Atoi(typeStr)
		if err != nil {
			writeJSONError(w, "Invalid type", http.StatusBadRequest)
			return time.Time{}, 0, false
		}
		category, err = database.ParseCategory(v)
		if err != nil {
			writeJSONError(w, "Invalid type", http.StatusBadRequest)
			return time.Time{}, 0, false
		}
	}

	return day, category, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
