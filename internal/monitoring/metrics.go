package monitoring

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Rudra0075-rudi/470pro/internal/database"
)

var (
	serviceStartedAt = time.Now()
	uploadsDir       string
)

// SetUploadsDir wires in the resolved uploads root so snapshots measure the
// same directory the upload handlers write to. Upload path resolution is
// owned by the handlers package; the value is injected once at startup.
func SetUploadsDir(dir string) {
	uploadsDir = dir
}

// Snapshot is one point-in-time view of server, database and uploads state.
type Snapshot struct {
	TimestampUTC        string      `json:"timestamp_utc"`
	UptimeSeconds       int64       `json:"uptime_seconds"`
	HTTPActiveRequests  int64       `json:"http_active_requests"`
	HTTPTotalRequests   uint64      `json:"http_total_requests"`
	DBOpenConnections   int         `json:"db_open_connections"`
	DBInUseConnections  int         `json:"db_in_use_connections"`
	DBWaitCount         int64       `json:"db_wait_count"`
	Goroutines          int         `json:"goroutines"`
	GoMemoryAllocBytes  uint64      `json:"go_memory_alloc_bytes"`
	GoHeapInUseBytes    uint64      `json:"go_heap_in_use_bytes"`
	GoGCCount           uint32      `json:"go_gc_count"`
	UsersTotal          int64       `json:"users_total"`
	TripsTotal          int64       `json:"trips_total"`
	PhotosTotal         int64       `json:"photos_total"`
	UploadsSizeBytes    int64       `json:"uploads_size_bytes"`
	UploadsFilesCount   int64       `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64      `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64      `json:"uploads_fs_free_bytes"`
	Uploads             UploadStats `json:"uploads"`
}

// TakeSnapshot collects runtime stats, table counts and uploads directory usage.
func TakeSnapshot() Snapshot {
	stats := database.DB.Stats()
	activeHTTP, totalHTTP := getHTTPStats()
	uploadsTotal, uploadsFree := fsUsage(uploadsDir)

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	snap := Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(serviceStartedAt).Seconds()),
		HTTPActiveRequests:  activeHTTP,
		HTTPTotalRequests:   totalHTTP,
		DBOpenConnections:   stats.OpenConnections,
		DBInUseConnections:  stats.InUse,
		DBWaitCount:         int64(stats.WaitCount),
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  memory.Alloc,
		GoHeapInUseBytes:    memory.HeapInuse,
		GoGCCount:           memory.NumGC,
		UploadsSizeBytes:    dirSize(uploadsDir),
		UploadsFilesCount:   dirFileCount(uploadsDir),
		UploadsFSTotalBytes: uploadsTotal,
		UploadsFSFreeBytes:  uploadsFree,
		Uploads:             getUploadStats(),
	}

	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&snap.UsersTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM trips`).Scan(&snap.TripsTotal)
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&snap.PhotosTotal)

	return snap
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(path string) int64 {
	var count int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			count++
		}
		return nil
	})
	return count
}
