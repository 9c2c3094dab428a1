package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rudra0075-rudi/470pro/internal/database"
	"github.com/Rudra0075-rudi/470pro/internal/models"
	"github.com/Rudra0075-rudi/470pro/internal/monitoring"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const uploadFormField = "photos"

func tripOwnedByUser(db *sql.DB, tripID int, userID int) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM trips WHERE id = $1 AND user_id = $2)`,
		tripID,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}

// sniffMimeType reads the first 512 bytes of an upload and detects its real
// media type, ignoring whatever Content-Type the client declared.
func sniffMimeType(fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	bytesRead, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	if bytesRead == 0 {
		return "", io.EOF
	}

	return normalizeMimeType(mimetype.Detect(buffer[:bytesRead]).String()), nil
}

func isImageMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// generateStoredFilename builds a collision-resistant on-disk name:
// <unix millis>-<random token>-<original base name>.
func generateStoredFilename(originalName string) string {
	token := make([]byte, 4)
	if _, err := rand.Read(token); err != nil {
		return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), time.Now().UnixNano()%100000, filepath.Base(originalName))
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), hex.EncodeToString(token), filepath.Base(originalName))
}

func photoResponse(photo models.Photo) gin.H {
	return gin.H{
		"id":           photo.ID,
		"filename":     photo.Filename,
		"originalName": photo.OriginalName,
		"uploadDate":   photo.CreatedAt,
		"url":          photoURL(photo.TripID, photo.Filename),
	}
}

// GetPhotoCount returns the number of photos on a trip without loading them
func GetPhotoCount(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	db := database.DB
	owned, err := tripOwnedByUser(db, tripID, userID)
	if err != nil {
		log.Printf("Error checking trip access: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get photo count", "details": err.Error()})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM photos WHERE trip_id = $1`, tripID).Scan(&count); err != nil {
		log.Printf("Error counting photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get photo count", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// ListTripPhotos returns all photos for a trip, newest first, with download URLs
func ListTripPhotos(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	db := database.DB
	owned, err := tripOwnedByUser(db, tripID, userID)
	if err != nil {
		log.Printf("Error checking trip access: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch photos", "details": err.Error()})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	rows, err := db.Query(
		`SELECT id, trip_id, filename, original_name, created_at
		 FROM photos
		 WHERE trip_id = $1
		 ORDER BY created_at DESC, id DESC`,
		tripID,
	)
	if err != nil {
		log.Printf("Error fetching photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch photos", "details": err.Error()})
		return
	}
	defer rows.Close()

	photos := []gin.H{}
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(&photo.ID, &photo.TripID, &photo.Filename, &photo.OriginalName, &photo.CreatedAt); err != nil {
			log.Printf("Error scanning photo: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch photos", "details": err.Error()})
			return
		}
		photos = append(photos, photoResponse(photo))
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating photos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch photos", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, photos)
}

// UploadPhotos stores the uploaded image files for a trip and persists one
// photo record per stored file. Validation runs over the whole batch before
// any file is written; a failed record insert removes that file and the rest
// of the batch continues.
func UploadPhotos(c *gin.Context) {
	startedAt := time.Now()
	var uploadedBytes int64
	uploadSuccess := false
	defer func() {
		monitoring.RecordUpload(uploadedBytes, time.Since(startedAt), uploadSuccess)
	}()

	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tripID, err := strconv.Atoi(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	db := database.DB
	owned, err := tripOwnedByUser(db, tripID, userID)
	if err != nil {
		log.Printf("Error checking trip access: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photos", "details": err.Error()})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files := form.File[uploadFormField]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	maxFiles := resolveMaxFilesPerUpload()
	if len(files) > maxFiles {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     fmt.Sprintf("Too many files; at most %d per upload", maxFiles),
			"max_files": maxFiles,
		})
		return
	}

	// Validate the whole batch before anything touches the disk: one bad
	// file rejects the entire request.
	maxUploadBytes := resolveMaxUploadSizeBytes()
	for _, fileHeader := range files {
		if fileHeader.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":            fmt.Sprintf("File %s is too large", fileHeader.Filename),
				"max_upload_bytes": maxUploadBytes,
			})
			return
		}

		mimeType, sniffErr := sniffMimeType(fileHeader)
		if sniffErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Error reading file %s", fileHeader.Filename)})
			return
		}
		if !isImageMimeType(mimeType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":         "Only image files are allowed!",
				"detected_mime": mimeType,
				"original_name": fileHeader.Filename,
			})
			return
		}
	}

	tripDir := tripUploadDir(tripID)
	if err := os.MkdirAll(tripDir, 0o755); err != nil {
		log.Printf("Error creating upload directory %s: %v", tripDir, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photos", "details": err.Error()})
		return
	}

	savedPhotos := []gin.H{}
	failed := 0
	for _, fileHeader := range files {
		storedName := generateStoredFilename(fileHeader.Filename)
		filePath := filepath.Join(tripDir, storedName)

		written, saveErr := saveUploadedFile(fileHeader, filePath)
		if saveErr != nil {
			log.Printf("Error storing file %s: %v", fileHeader.Filename, saveErr)
			failed++
			continue
		}
		uploadedBytes += written

		var photo models.Photo
		photo.TripID = tripID
		photo.Filename = storedName
		photo.OriginalName = fileHeader.Filename

		insertErr := db.QueryRow(
			`INSERT INTO photos (trip_id, filename, original_name) VALUES ($1, $2, $3) RETURNING id, created_at`,
			tripID,
			storedName,
			fileHeader.Filename,
		).Scan(&photo.ID, &photo.CreatedAt)
		if insertErr != nil {
			log.Printf("Error saving photo record for %s: %v", fileHeader.Filename, insertErr)
			// The record write failed, so the just-written file must go too.
			if removeErr := os.Remove(filePath); removeErr != nil && !os.IsNotExist(removeErr) {
				log.Printf("Error cleaning up file %s: %v", filePath, removeErr)
			}
			failed++
			continue
		}

		savedPhotos = append(savedPhotos, photoResponse(photo))
	}

	uploadSuccess = failed == 0
	c.JSON(http.StatusCreated, gin.H{
		"message": "Photos uploaded successfully",
		"photos":  savedPhotos,
		"count":   len(savedPhotos),
		"failed":  failed,
	})
}

func saveUploadedFile(fileHeader *multipart.FileHeader, dst string) (int64, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}

	return written, nil
}

// DeletePhoto removes the file first, then the record. A missing file does
// not block the record deletion.
func DeletePhoto(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	photoID, err := strconv.Atoi(c.Param("photoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo ID"})
		return
	}

	db := database.DB
	var photo models.Photo
	err = db.QueryRow(
		`SELECT p.id, p.trip_id, p.filename
		 FROM photos p
		 JOIN trips t ON t.id = p.trip_id
		 WHERE p.id = $1 AND t.user_id = $2`,
		photoID,
		userID,
	).Scan(&photo.ID, &photo.TripID, &photo.Filename)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
			return
		}
		log.Printf("Error loading photo: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete photo", "details": err.Error()})
		return
	}

	filePath := filepath.Join(tripUploadDir(photo.TripID), photo.Filename)
	if removeErr := os.Remove(filePath); removeErr != nil {
		if os.IsNotExist(removeErr) {
			log.Printf("File %s already gone, deleting record anyway", filePath)
		} else {
			log.Printf("Error deleting photo file %s: %v", filePath, removeErr)
		}
	}

	if _, err := db.Exec(`DELETE FROM photos WHERE id = $1`, photoID); err != nil {
		log.Printf("Error deleting photo record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete photo", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted successfully"})
}

func sanitizeHeaderFilename(name string) string {
	safe := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(name, "\r", ""), "\n", ""))
	safe = strings.ReplaceAll(safe, `"`, "")
	if safe == "" {
		return "file"
	}
	return safe
}

// DownloadPhoto streams the photo file as an attachment named after the
// original upload
func DownloadPhoto(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	photoID, err := strconv.Atoi(c.Param("photoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo ID"})
		return
	}

	db := database.DB
	var photo models.Photo
	err = db.QueryRow(
		`SELECT p.id, p.trip_id, p.filename, p.original_name
		 FROM photos p
		 JOIN trips t ON t.id = p.trip_id
		 WHERE p.id = $1 AND t.user_id = $2`,
		photoID,
		userID,
	).Scan(&photo.ID, &photo.TripID, &photo.Filename, &photo.OriginalName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
			return
		}
		log.Printf("Error loading photo for download: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download photo", "details": err.Error()})
		return
	}

	filePath := filepath.Join(tripUploadDir(photo.TripID), photo.Filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		log.Printf("File does not exist: %s", filePath)
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo file not found"})
		return
	}

	fileName := filepath.Base(photo.OriginalName)
	if fileName == "." || fileName == string(filepath.Separator) || fileName == "" {
		fileName = photo.Filename
	}

	c.Header("X-Content-Type-Options", "nosniff")
	c.FileAttachment(filePath, sanitizeHeaderFilename(fileName))
}
