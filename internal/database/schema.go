package database

import (
	"fmt"
	"log"
)

// CreateTables creates all required tables in the database
func CreateTables() {
	createUsersTable()
	createTripsTable()
	createPhotosTable()
}

// createUsersTable creates the users table
func createUsersTable() {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create users table:", err)
	}

	fmt.Println("Users table created successfully")
}

func createTripsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS trips (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'upcoming'
			CHECK (status IN ('wishlist', 'upcoming', 'completed')),
		packing_list JSONB NOT NULL DEFAULT '[]',
		budget_total NUMERIC(12,2) NOT NULL DEFAULT 0,
		budget_spent NUMERIC(12,2) NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create trips table:", err)
	}

	ensureTripsSchema()
	fmt.Println("Trips table created successfully")
}

// photos.trip_id deliberately has no foreign key: trip deletion cascades at
// the handler level so orphaned photo rows stay representable and visible.
func createPhotosTable() {
	query := `
	CREATE TABLE IF NOT EXISTS photos (
		id SERIAL PRIMARY KEY,
		trip_id INTEGER NOT NULL,
		filename VARCHAR(255) NOT NULL,
		original_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create photos table:", err)
	}

	ensurePhotosSchema()
	fmt.Println("Photos table created successfully")
}

func ensureTripsSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS trips_user_start_date_idx ON trips(user_id, start_date ASC)`); err != nil {
		log.Fatal("Failed to ensure trips user/start_date index:", err)
	}
}

func ensurePhotosSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS photos_trip_created_idx ON photos(trip_id, created_at DESC)`); err != nil {
		log.Fatal("Failed to ensure photos trip/created index:", err)
	}

	if _, err := DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS photos_trip_filename_unique ON photos(trip_id, filename)`); err != nil {
		log.Fatal("Failed to ensure photos trip/filename uniqueness index:", err)
	}
}
