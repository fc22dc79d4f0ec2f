package lib

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warelink/wpmsync/models"
)

func incrementalEndpoint() models.EndpointConfig {
	mappings := make(map[string]string, len(productivityMappings))
	for field, column := range productivityMappings {
		mappings[field] = column
	}

	return models.EndpointConfig{
		Name:          "productivity",
		URI:           "/api/stats/productivity",
		Parameters:    map[string]models.ParamValue{"DATE": {Raw: "DYNAMIC:PreviousMondayDate"}},
		TargetTable:   "ProductivityStats",
		FieldMappings: mappings,
		TableSchema:   productivitySchema,
		Incremental:   &models.IncrementalConfig{DateColumn: "Date", DateParameter: "DATE"},
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDetermineStartResumesAfterMaxDate(t *testing.T) {
	w := newTestWriter(t)
	assert.NoError(t, w.EnsureTable("ProductivityStats", productivitySchema))

	// seed the checkpoint through the writer so the stored date format is
	// whatever the driver actually produces
	extra := map[string]interface{}{"Date": time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)}
	written, _ := w.Upsert("ProductivityStats", []Row{productivityRow("OP1", "10")}, productivityMappings, productivitySchema, extra, time.Now().UTC())
	assert.Equal(t, 1, written)

	p := &Pipeline{Writer: w, Now: fixedNow(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))}
	start := p.determineStart(incrementalEndpoint(), truncateToDay(p.now()))

	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), start)
}

func TestDetermineStartEmptyTable(t *testing.T) {
	w := newTestWriter(t)
	assert.NoError(t, w.EnsureTable("ProductivityStats", productivitySchema))

	today := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &Pipeline{Writer: w, Now: fixedNow(today)}

	assert.Equal(t, today, p.determineStart(incrementalEndpoint(), today))
}

func TestDetermineStartAbsentTable(t *testing.T) {
	w := newTestWriter(t)

	today := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &Pipeline{Writer: w, Now: fixedNow(today)}

	assert.Equal(t, today, p.determineStart(incrementalEndpoint(), today))
}

func TestRunIncremental(t *testing.T) {
	var dates []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats/productivity", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		dates = append(dates, r.URL.Query().Get("DATE"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"1": {"Whrs": "001", "Oprt": "OP1", "WrkType": "PICK", "QttPicked": "10"}, "2": {"Whrs": "001", "Oprt": "OP2", "WrkType": "PICK", "QttPicked": "20"}}`)
	}))
	defer server.Close()

	writer := newTestWriter(t)
	p := &Pipeline{
		Exec:   &Executor{},
		Writer: writer,
		Server: server.URL,
		Token:  "tok-1",
		Now:    fixedNow(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)),
	}

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	summary, outcomes := p.RunIncremental(incrementalEndpoint(), start, end)

	assert.Equal(t, []string{"20250610", "20250611"}, dates, "each day's literal date overrides the dynamic parameter")
	assert.Equal(t, 4, summary.TotalRecordsWritten)
	assert.Zero(t, summary.TotalDaysWithErrors)
	assert.Len(t, outcomes, 2)

	var count int
	assert.NoError(t, writer.DB.QueryRow("SELECT COUNT(*) FROM ProductivityStats").Scan(&count))
	assert.Equal(t, 4, count)

	var qtt float64
	assert.NoError(t, writer.DB.QueryRow("SELECT QttPicked FROM ProductivityStats WHERE Oprt = 'OP2' AND Date = ?", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)).Scan(&qtt))
	assert.Equal(t, float64(20), qtt)
}

func TestRunIncrementalRerunIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"Whrs": "001", "Oprt": "OP1", "WrkType": "PICK", "QttPicked": "10"}]`)
	}))
	defer server.Close()

	writer := newTestWriter(t)
	p := &Pipeline{
		Exec:   &Executor{},
		Writer: writer,
		Server: server.URL,
		Token:  "tok-1",
		Now:    fixedNow(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)),
	}

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	p.RunIncremental(incrementalEndpoint(), day, day)
	p.RunIncremental(incrementalEndpoint(), day, day)

	var count int
	assert.NoError(t, writer.DB.QueryRow("SELECT COUNT(*) FROM ProductivityStats").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunIncrementalDayFailureDoesNotBlock(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("DATE") == "20250610" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"Whrs": "001", "Oprt": "OP1", "WrkType": "PICK", "QttPicked": "10"}]`)
	}))
	defer server.Close()

	writer := newTestWriter(t)
	p := &Pipeline{
		Exec:   &Executor{},
		Writer: writer,
		Server: server.URL,
		Token:  "tok-1",
		Now:    fixedNow(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)),
	}

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	summary, _ := p.RunIncremental(incrementalEndpoint(), start, end)

	assert.Equal(t, 2, calls, "the day after a failed day is still imported")
	assert.Equal(t, 1, summary.TotalRecordsWritten)
	assert.Equal(t, 1, summary.TotalDaysWithErrors)
}

func TestRunIncrementalDryRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"Whrs": "001", "Oprt": "OP1", "WrkType": "PICK", "QttPicked": "10"}]`)
	}))
	defer server.Close()

	writer := newTestWriter(t)
	p := &Pipeline{
		Exec:   &Executor{},
		Writer: writer,
		Server: server.URL,
		Token:  "tok-1",
		DryRun: true,
		Now:    fixedNow(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)),
	}

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	summary, _ := p.RunIncremental(incrementalEndpoint(), day, day)

	assert.Equal(t, 1, summary.TotalRecordsWritten, "dry run counts would-be-written rows")

	var count int
	err := writer.DB.QueryRow("SELECT COUNT(*) FROM ProductivityStats").Scan(&count)
	assert.Error(t, err, "dry run never touches the destination")
}
