package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

var tripRowColumns = []string{
	"id", "user_id", "title", "destination", "start_date", "end_date", "status",
	"packing_list", "budget_total", "budget_spent", "notes", "created_at", "updated_at",
}

func tripRow(id int, userID int, title string, destination string, startDate time.Time, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tripRowColumns).AddRow(
		id, userID, title, destination,
		startDate, startDate.AddDate(0, 0, 9),
		status, []byte("[]"), 0.0, 0.0, "", now, now,
	)
}

func tripsRouter(userID int) *gin.Engine {
	router := gin.New()
	router.POST("/api/trips", withTestUserID(userID), CreateTrip)
	router.GET("/api/trips", withTestUserID(userID), ListTrips)
	router.GET("/api/trips/:id", withTestUserID(userID), GetTrip)
	router.PUT("/api/trips/:id", withTestUserID(userID), UpdateTrip)
	router.DELETE("/api/trips/:id", withTestUserID(userID), DeleteTrip)
	return router
}

func TestCreateTripDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`INSERT INTO trips`).
		WithArgs(7, "Paris", "France", sqlmock.AnyArg(), sqlmock.AnyArg(), "upcoming", []byte("[]"), 0.0, 0.0, "").
		WillReturnRows(tripRow(1, 7, "Paris", "France", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "upcoming"))

	router := tripsRouter(7)
	resp := postJSON(t, router, "/api/trips", map[string]any{
		"title":       "Paris",
		"destination": "France",
		"startDate":   "2025-01-01",
		"endDate":     "2025-01-10",
		"userId":      7,
	})
	mustStatus(t, resp.Code, http.StatusCreated)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out["status"] != "upcoming" {
		t.Fatalf("expected default status upcoming, got %v", out["status"])
	}
	packingList, ok := out["packingList"].([]any)
	if !ok || len(packingList) != 0 {
		t.Fatalf("expected empty packing list, got %v", out["packingList"])
	}
	budget, _ := out["budget"].(map[string]any)
	if budget["total"] != 0.0 || budget["spent"] != 0.0 {
		t.Fatalf("expected zero budget, got %v", out["budget"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateTripMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, _, cleanup := setupMockDB(t)
	defer cleanup()

	router := tripsRouter(7)
	resp := postJSON(t, router, "/api/trips", map[string]any{
		"title":  "Paris",
		"userId": 7,
	})
	mustStatus(t, resp.Code, http.StatusBadRequest)
}

func TestCreateTripForAnotherUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, _, cleanup := setupMockDB(t)
	defer cleanup()

	router := tripsRouter(7)
	resp := postJSON(t, router, "/api/trips", map[string]any{
		"title":       "Paris",
		"destination": "France",
		"startDate":   "2025-01-01",
		"endDate":     "2025-01-10",
		"userId":      8,
	})
	mustStatus(t, resp.Code, http.StatusForbidden)
}

func TestListTripsRequiresUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, _, cleanup := setupMockDB(t)
	defer cleanup()

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusBadRequest)
}

func TestListTripsOrderedByStartDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows(tripRowColumns).
		AddRow(1, 7, "Rome", "Italy",
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			"upcoming", []byte("[]"), 0.0, 0.0, "", now, now).
		AddRow(2, 7, "Oslo", "Norway",
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
			"wishlist", []byte(`[{"item":"boots","packed":false}]`), 1200.0, 0.0, "", now, now)

	mock.
		ExpectQuery(`SELECT (.+) FROM trips WHERE user_id = \$1 ORDER BY start_date ASC`).
		WithArgs(7).
		WillReturnRows(rows)

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodGet, "/api/trips?userId=7", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(out))
	}
	if out[0]["title"] != "Rome" || out[1]["title"] != "Oslo" {
		t.Fatalf("unexpected trip order: %v, %v", out[0]["title"], out[1]["title"])
	}
	packingList, _ := out[1]["packingList"].([]any)
	if len(packingList) != 1 {
		t.Fatalf("expected one packing item, got %v", out[1]["packingList"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestListTripsForAnotherUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, _, cleanup := setupMockDB(t)
	defer cleanup()

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodGet, "/api/trips?userId=99", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusForbidden)
}

func TestGetTripNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.
		ExpectQuery(`SELECT (.+) FROM trips WHERE id = \$1 AND user_id = \$2`).
		WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows(tripRowColumns))

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodGet, "/api/trips/42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNotFound)
}

func TestUpdateTripPartialMerge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.
		ExpectQuery(`SELECT (.+) FROM trips WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, 7).
		WillReturnRows(tripRow(3, 7, "Paris", "France", start, "upcoming"))
	mock.
		ExpectQuery(`UPDATE trips`).
		WithArgs("Paris in spring", "France", sqlmock.AnyArg(), sqlmock.AnyArg(), "completed",
			[]byte("[]"), 0.0, 0.0, "", 3, 7).
		WillReturnRows(tripRow(3, 7, "Paris in spring", "France", start, "completed"))

	router := tripsRouter(7)
	payload, _ := json.Marshal(map[string]any{
		"title":  "Paris in spring",
		"status": "completed",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/trips/3", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out["title"] != "Paris in spring" || out["destination"] != "France" {
		t.Fatalf("partial merge failed: %v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpdateTripInvalidStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.
		ExpectQuery(`SELECT (.+) FROM trips WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, 7).
		WillReturnRows(tripRow(3, 7, "Paris", "France", start, "upcoming"))

	router := tripsRouter(7)
	payload, _ := json.Marshal(map[string]any{"status": "cancelled"})
	req := httptest.NewRequest(http.MethodPut, "/api/trips/3", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusBadRequest)
}

func TestDeleteTripCascadesPhotos(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	uploadsRoot := t.TempDir()
	t.Setenv("TRIPPLAN_UPLOADS_PATH", uploadsRoot)

	tripDir := filepath.Join(uploadsRoot, "3")
	if err := os.MkdirAll(tripDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(tripDir, name), []byte("img"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	mock.ExpectBegin()
	mock.
		ExpectQuery(regexp.QuoteMeta(`SELECT id FROM trips WHERE id = $1 AND user_id = $2`)).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.
		ExpectQuery(regexp.QuoteMeta(`DELETE FROM photos WHERE trip_id = $1 RETURNING filename`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"filename"}).AddRow("a.jpg").AddRow("b.jpg"))
	mock.
		ExpectExec(regexp.QuoteMeta(`DELETE FROM trips WHERE id = $1 AND user_id = $2`)).
		WithArgs(3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodDelete, "/api/trips/3", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	expectHTTP200(t, resp.Code)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if out["deleted_photos"] != 2.0 {
		t.Fatalf("expected 2 deleted photos, got %v", out["deleted_photos"])
	}

	for _, name := range []string{"a.jpg", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(tripDir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be deleted", name)
		}
	}
	if _, err := os.Stat(tripDir); !os.IsNotExist(err) {
		t.Fatalf("expected empty trip directory to be removed")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestDeleteTripNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.
		ExpectQuery(regexp.QuoteMeta(`SELECT id FROM trips WHERE id = $1 AND user_id = $2`)).
		WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	router := tripsRouter(7)
	req := httptest.NewRequest(http.MethodDelete, "/api/trips/42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	mustStatus(t, resp.Code, http.StatusNotFound)
}
