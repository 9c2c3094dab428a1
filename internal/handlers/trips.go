package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rudra0075-rudi/470pro/internal/database"
	"github.com/Rudra0075-rudi/470pro/internal/models"
	"github.com/gin-gonic/gin"
)

const tripColumns = `id, user_id, title, destination, start_date, end_date, status,
	packing_list, budget_total, budget_spent, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (models.Trip, error) {
	var trip models.Trip
	var packingListRaw []byte

	err := row.Scan(
		&trip.ID,
		&trip.UserID,
		&trip.Title,
		&trip.Destination,
		&trip.StartDate,
		&trip.EndDate,
		&trip.Status,
		&packingListRaw,
		&trip.Budget.Total,
		&trip.Budget.Spent,
		&trip.Notes,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return trip, err
	}

	trip.PackingList = []models.PackingItem{}
	if len(packingListRaw) > 0 {
		if err := json.Unmarshal(packingListRaw, &trip.PackingList); err != nil {
			return trip, err
		}
	}

	return trip, nil
}

// parseTripDate accepts both plain dates ("2025-01-01") and RFC3339 timestamps.
func parseTripDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

func authedUserID(c *gin.Context) (int, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}

	userID, ok := userIDInterface.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return 0, false
	}

	return userID, true
}

// CreateTrip creates a new trip for the authenticated user
func CreateTrip(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req struct {
		Title       string                `json:"title"`
		Destination string                `json:"destination"`
		StartDate   string                `json:"startDate"`
		EndDate     string                `json:"endDate"`
		UserID      int                   `json:"userId"`
		Status      *string               `json:"status"`
		PackingList *[]models.PackingItem `json:"packingList"`
		Budget      *models.Budget        `json:"budget"`
		Notes       *string               `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	startDate, startOK := parseTripDate(req.StartDate)
	endDate, endOK := parseTripDate(req.EndDate)

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Destination) == "" ||
		!startOK || !endOK || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if req.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot create trips for another user"})
		return
	}

	status := models.TripStatusUpcoming
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status = strings.TrimSpace(*req.Status)
	}
	if !models.IsValidTripStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip status"})
		return
	}

	packingList := []models.PackingItem{}
	if req.PackingList != nil {
		packingList = *req.PackingList
	}
	packingListJSON, err := json.Marshal(packingList)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip", "details": err.Error()})
		return
	}

	budget := models.Budget{}
	if req.Budget != nil {
		budget = *req.Budget
	}

	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}

	db := database.DB
	query := `
		INSERT INTO trips (user_id, title, destination, start_date, end_date, status, packing_list, budget_total, budget_spent, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + tripColumns

	trip, err := scanTrip(db.QueryRow(
		query,
		userID,
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.Destination),
		startDate,
		endDate,
		status,
		packingListJSON,
		budget.Total,
		budget.Spent,
		notes,
	))
	if err != nil {
		log.Printf("Error creating trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// ListTrips returns the caller's trips ordered by ascending start date
func ListTrips(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	rawUserID := strings.TrimSpace(c.Query("userId"))
	if rawUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	requestedUserID, err := strconv.Atoi(rawUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid userId"})
		return
	}
	if requestedUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot list trips for another user"})
		return
	}

	db := database.DB
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY start_date ASC, id ASC`

	rows, err := db.Query(query, userID)
	if err != nil {
		log.Printf("Error listing trips: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trips", "details": err.Error()})
		return
	}
	defer rows.Close()

	trips := []models.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			log.Printf("Error scanning trip: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trips", "details": err.Error()})
			return
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating trips: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trips", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, trips)
}

// GetTrip returns one trip by id, scoped to the authenticated owner
func GetTrip(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	db := database.DB
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 AND user_id = $2`

	trip, err := scanTrip(db.QueryRow(query, tripID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		log.Printf("Error fetching trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trip", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, trip)
}

// UpdateTrip merges the supplied fields into an existing trip
func UpdateTrip(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req struct {
		Title       *string               `json:"title"`
		Destination *string               `json:"destination"`
		StartDate   *string               `json:"startDate"`
		EndDate     *string               `json:"endDate"`
		Status      *string               `json:"status"`
		PackingList *[]models.PackingItem `json:"packingList"`
		Budget      *models.Budget        `json:"budget"`
		Notes       *string               `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := database.DB

	trip, err := scanTrip(db.QueryRow(
		`SELECT `+tripColumns+` FROM trips WHERE id = $1 AND user_id = $2`,
		tripID, userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		log.Printf("Error loading trip for update: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trip", "details": err.Error()})
		return
	}

	if req.Title != nil {
		trip.Title = strings.TrimSpace(*req.Title)
	}
	if req.Destination != nil {
		trip.Destination = strings.TrimSpace(*req.Destination)
	}
	if req.StartDate != nil {
		parsed, ok := parseTripDate(*req.StartDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate"})
			return
		}
		trip.StartDate = parsed
	}
	if req.EndDate != nil {
		parsed, ok := parseTripDate(*req.EndDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate"})
			return
		}
		trip.EndDate = parsed
	}
	if req.Status != nil {
		trip.Status = strings.TrimSpace(*req.Status)
	}
	if req.PackingList != nil {
		trip.PackingList = *req.PackingList
	}
	if req.Budget != nil {
		trip.Budget = *req.Budget
	}
	if req.Notes != nil {
		trip.Notes = *req.Notes
	}

	// Re-run validation over the merged record
	if trip.Title == "" || trip.Destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if !models.IsValidTripStatus(trip.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip status"})
		return
	}

	packingListJSON, err := json.Marshal(trip.PackingList)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trip", "details": err.Error()})
		return
	}

	query := `
		UPDATE trips
		SET title = $1, destination = $2, start_date = $3, end_date = $4, status = $5,
			packing_list = $6, budget_total = $7, budget_spent = $8, notes = $9,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $10 AND user_id = $11
		RETURNING ` + tripColumns

	updated, err := scanTrip(db.QueryRow(
		query,
		trip.Title,
		trip.Destination,
		trip.StartDate,
		trip.EndDate,
		trip.Status,
		packingListJSON,
		trip.Budget.Total,
		trip.Budget.Spent,
		trip.Notes,
		tripID,
		userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		log.Printf("Error updating trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trip", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteTrip removes a trip together with its photo records and files.
// Rows and filenames go in one transaction; files are removed from disk only
// after the commit so a failed delete never leaves records without files.
func DeleteTrip(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	db := database.DB
	tx, err := db.Begin()
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}
	defer tx.Rollback()

	var ownedTripID int
	err = tx.QueryRow(`SELECT id FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID).Scan(&ownedTripID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		log.Printf("Error checking trip access: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}

	rows, err := tx.Query(`DELETE FROM photos WHERE trip_id = $1 RETURNING filename`, tripID)
	if err != nil {
		log.Printf("Error deleting trip photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}

	filenames := []string{}
	for rows.Next() {
		var filename string
		if scanErr := rows.Scan(&filename); scanErr != nil {
			rows.Close()
			log.Printf("Error scanning deleted photo: %v", scanErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": scanErr.Error()})
			return
		}
		filenames = append(filenames, filename)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		log.Printf("Error iterating deleted photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID); err != nil {
		log.Printf("Error deleting trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Error committing trip deletion: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip", "details": err.Error()})
		return
	}

	tripDir := tripUploadDir(tripID)
	for _, filename := range filenames {
		filePath := filepath.Join(tripDir, filename)
		if removeErr := os.Remove(filePath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("Error deleting photo file %s: %v", filePath, removeErr)
		}
	}
	// Drop the trip directory; fails harmlessly if orphaned files remain.
	_ = os.Remove(tripDir)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Trip deleted successfully",
		"deleted_photos": len(filenames),
	})
}
