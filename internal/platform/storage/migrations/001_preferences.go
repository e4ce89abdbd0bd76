package migrations

import (
	"gorm.io/gorm"
)

// Migration001Preferences creates the namespaced key/value table.
type Migration001Preferences struct{}

func (m *Migration001Preferences) Version() string {
	return "001_preferences"
}

func (m *Migration001Preferences) Description() string {
	return "Create namespaced preferences table"
}

func (m *Migration001Preferences) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace VARCHAR(64) NOT NULL,
			key VARCHAR(64) NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_pref_ns_key ON preferences(namespace, key)`).Error
}

func (m *Migration001Preferences) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS preferences`).Error
}
