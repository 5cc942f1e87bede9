package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the database connection
type DB struct {
	conn *gorm.DB
}

// New opens the sqlite database at dbPath and migrates the schema
func New(dbPath string) (*DB, error) {
	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // SQLite only supports one writer

	if err := conn.AutoMigrate(&TransformLog{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertTransformLog stores a transform log entry
func (db *DB) InsertTransformLog(entry *TransformLog) error {
	return db.conn.Create(entry).Error
}

// ListTransformLogs returns the most recent entries, newest first
func (db *DB) ListTransformLogs(limit, offset int, status string) ([]TransformLog, int64, error) {
	q := db.conn.Model(&TransformLog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []TransformLog
	err := q.Session(&gorm.Session{}).Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// GetTransformLog returns the entry for a request id
func (db *DB) GetTransformLog(requestID string) (*TransformLog, error) {
	var row TransformLog
	err := db.conn.Where("request_id = ?", requestID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetStats returns counts over the whole log
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{ByTransform: map[string]int64{}}
	if err := db.conn.Model(&TransformLog{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.conn.Model(&TransformLog{}).Where("status = ?", StatusSuccess).Count(&stats.SuccessCount).Error; err != nil {
		return nil, err
	}
	if err := db.conn.Model(&TransformLog{}).Where("status = ?", StatusFailed).Count(&stats.FailedCount).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Transformer string
		Count       int64
	}
	if err := db.conn.Model(&TransformLog{}).Select("transformer, count(*) as count").Group("transformer").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByTransform[r.Transformer] = r.Count
	}
	return stats, nil
}

// PruneTransformLogs keeps the newest keep entries and deletes the rest
func (db *DB) PruneTransformLogs(keep int) (int64, error) {
	sub := db.conn.Model(&TransformLog{}).Select("id").Order("created_at desc, id desc").Limit(keep)
	res := db.conn.Where("id NOT IN (?)", sub).Delete(&TransformLog{})
	return res.RowsAffected, res.Error
}
