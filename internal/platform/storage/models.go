package storage

import "time"

// Preference is a single persisted key/value entry scoped by namespace.
type Preference struct {
	ID        uint      `gorm:"primaryKey"`
	Namespace string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_pref_ns_key"`
	Key       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_pref_ns_key"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Preference) TableName() string {
	return "preferences"
}

// TransactionLog records every coin report the device attempted.
type TransactionLog struct {
	ID         uint      `gorm:"primaryKey"                  json:"id"`
	DeviceID   string    `gorm:"type:varchar(64);index"      json:"device_id"`
	Amount     float64   `gorm:"not null"                    json:"amount"`
	Accepted   bool      `gorm:"not null"                    json:"accepted"`
	RemoteID   string    `gorm:"type:varchar(64)"            json:"remote_id,omitempty"`
	Detail     string    `gorm:"type:text"                   json:"detail,omitempty"`
	OccurredAt time.Time `gorm:"not null;index"              json:"occurred_at"`
}

func (TransactionLog) TableName() string {
	return "transaction_logs"
}
