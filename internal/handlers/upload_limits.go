package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Upload limits live here and nowhere else: the route layer, the upload
// handler and the tests all read the same resolved values.
const (
	defaultMaxUploadSize      int64 = 100 * 1024 * 1024 // 100 MiB per file
	defaultMaxFilesPerUpload        = 10
	defaultUploadsBasePath          = "./uploads"
	defaultPublicBaseURL            = "http://localhost:3000"
)

func resolveMaxUploadSizeBytes() int64 {
	return resolvePositiveInt64Env("TRIPPLAN_MAX_UPLOAD_SIZE_BYTES", defaultMaxUploadSize)
}

func resolveMaxFilesPerUpload() int {
	return resolvePositiveIntEnv("TRIPPLAN_MAX_FILES_PER_UPLOAD", defaultMaxFilesPerUpload)
}

func resolveUploadsBasePath() string {
	value := strings.TrimSpace(os.Getenv("TRIPPLAN_UPLOADS_PATH"))
	if value == "" {
		return defaultUploadsBasePath
	}
	return value
}

func resolvePublicBaseURL() string {
	value := strings.TrimSpace(os.Getenv("TRIPPLAN_PUBLIC_BASE_URL"))
	if value == "" {
		return defaultPublicBaseURL
	}
	return strings.TrimRight(value, "/")
}

// UploadsRoot exposes the resolved uploads base path for static serving.
func UploadsRoot() string {
	return resolveUploadsBasePath()
}

func tripUploadDir(tripID int) string {
	return filepath.Join(resolveUploadsBasePath(), strconv.Itoa(tripID))
}

// photoURL builds the public URL for a stored photo. The /uploads/{tripId}/{filename}
// convention is part of the API contract.
func photoURL(tripID int, filename string) string {
	return fmt.Sprintf("%s/uploads/%d/%s", resolvePublicBaseURL(), tripID, filename)
}

func resolvePositiveInt64Env(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}

func resolvePositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}
