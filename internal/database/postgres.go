package database

import (
	"fmt"
	"log/slog"

	"pairplan-service/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPostgresConnection(dburi string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dburi), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		AllowGlobalUpdate:                        false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Partnership{},
		&models.Event{},
		&models.EventMessage{},
		&models.ChecklistItem{},
		&models.Task{},
		&models.Proposal{},
		&models.TimeSlot{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to add indexes: %w", err)
	}

	slog.Info("PostgreSQL connection established")
	return db, nil
}

func addIndexes(db *gorm.DB) error {
	// Composite indexes for the hot query paths
	indexes := []struct {
		name string
		stmt string
	}{
		{"idx_partnerships_users", "CREATE INDEX IF NOT EXISTS idx_partnerships_users ON partnerships (user1_id, user2_id, status)"},
		{"idx_events_window", "CREATE INDEX IF NOT EXISTS idx_events_window ON events (start_time, end_time)"},
		{"idx_event_messages_event_created", "CREATE INDEX IF NOT EXISTS idx_event_messages_event_created ON event_messages (event_id, created_at)"},
		{"idx_checklist_items_event_created", "CREATE INDEX IF NOT EXISTS idx_checklist_items_event_created ON checklist_items (event_id, created_at)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.stmt).Error; err != nil {
			return fmt.Errorf("index %s: %w", idx.name, err)
		}
	}
	return nil
}
