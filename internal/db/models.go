package db

import (
	"time"
)

// Transform outcome values stored in TransformLog.Status.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// TransformLog records one transform request
type TransformLog struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	RequestID      string    `gorm:"size:36;index" json:"request_id"`
	Origin         string    `gorm:"size:16" json:"origin"` // http, cli, watch
	Transformer    string    `gorm:"size:128;index" json:"transformer"`
	SourceMimetype string    `gorm:"size:255" json:"source_mimetype"`
	TargetMimetype string    `gorm:"size:255" json:"target_mimetype"`
	SourceFile     string    `json:"source_file,omitempty"`
	SourceSize     int64     `json:"source_size"`
	TargetSize     int64     `json:"target_size"`
	Options        string    `json:"options"` // sorted key=value pairs
	Status         string    `gorm:"size:16;index" json:"status"`
	StatusCode     int       `json:"status_code"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// Stats summarises the transform log
type Stats struct {
	Total        int64            `json:"total"`
	SuccessCount int64            `json:"success_count"`
	FailedCount  int64            `json:"failed_count"`
	ByTransform  map[string]int64 `json:"by_transformer"`
}
