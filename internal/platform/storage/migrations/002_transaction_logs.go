package migrations

import (
	"gorm.io/gorm"
)

// Migration002TransactionLogs adds the local journal of coin reports.
type Migration002TransactionLogs struct{}

func (m *Migration002TransactionLogs) Version() string {
	return "002_transaction_logs"
}

func (m *Migration002TransactionLogs) Description() string {
	return "Create local transaction journal"
}

func (m *Migration002TransactionLogs) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transaction_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id VARCHAR(64),
			amount REAL NOT NULL,
			accepted BOOLEAN NOT NULL,
			remote_id VARCHAR(64),
			detail TEXT,
			occurred_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_transaction_logs_device_id ON transaction_logs(device_id)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_transaction_logs_occurred_at ON transaction_logs(occurred_at)`).Error
}

func (m *Migration002TransactionLogs) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS transaction_logs`).Error
}
