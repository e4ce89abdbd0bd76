package config

import (
	"time"
)

type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Timing  TimingConfig  `yaml:"timing"`
	Store   StoreConfig   `yaml:"store"`
	Control ControlConfig `yaml:"control"`
	Web     WebConfig     `yaml:"web"`
	HAL     HALConfig     `yaml:"hal"`
	Log     LogConfig     `yaml:"log"`
}

// DeviceConfig holds the identity-independent constants of the kiosk.
type DeviceConfig struct {
	Name                   string        `yaml:"name"`
	DefaultServerURL       string        `yaml:"default_server_url"`
	Secret                 string        `yaml:"secret"`
	TransactionAmount      float64       `yaml:"transaction_amount"`
	TransactionDescription string        `yaml:"transaction_description"`
	Currency               string        `yaml:"currency"`
	RequestTimeout         time.Duration `yaml:"request_timeout"`
}

// TimingConfig collects every interval the device loop depends on.
type TimingConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	CoinDebounce         time.Duration `yaml:"coin_debounce"`
	ResetHold            time.Duration `yaml:"reset_hold"`
	ProvisioningAttempts int           `yaml:"provisioning_attempts"`
	ProvisioningDelay    time.Duration `yaml:"provisioning_delay"`
	StatusInterval       time.Duration `yaml:"status_interval"`
	BatteryInterval      time.Duration `yaml:"battery_interval"`
	SuccessHold          time.Duration `yaml:"success_hold"`
	FailureHold          time.Duration `yaml:"failure_hold"`
	ResetScreenHold      time.Duration `yaml:"reset_screen_hold"`
	BlinkInterval        time.Duration `yaml:"blink_interval"`
	BlinkCount           int           `yaml:"blink_count"`
}

type StoreConfig struct {
	Driver    string            `yaml:"driver"`
	Namespace string            `yaml:"namespace"`
	SQLite    SQLiteStoreConfig `yaml:"sqlite"`
	Redis     RedisStoreConfig  `yaml:"redis"`
}

type SQLiteStoreConfig struct {
	Path string `yaml:"path"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// ControlConfig configures the websocket bridge that stands in for the
// short-range control channel.
type ControlConfig struct {
	Enabled    bool   `yaml:"enabled"`
	IP         string `yaml:"ip"`
	Port       int    `yaml:"port"`
	Path       string `yaml:"path"`
	QueueDepth int    `yaml:"queue_depth"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
}

type HALConfig struct {
	Mode          string `yaml:"mode"`
	WiFiInterface string `yaml:"wifi_interface"`
	CoinPin       string `yaml:"coin_pin"`
	ButtonPin     string `yaml:"button_pin"`
	LEDPin        string `yaml:"led_pin"`
	BatteryPath   string `yaml:"battery_path"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}
