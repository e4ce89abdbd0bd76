package config

import "time"

// DefaultConfig returns the factory configuration of the kiosk.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:                   "KumbaraKontrol",
			DefaultServerURL:       "http://192.168.1.21:3000",
			Secret:                 "esp32-secret-key-2025",
			TransactionAmount:      1.0,
			TransactionDescription: "ESP32-C3 Para Yatırma",
			Currency:               "TL",
			RequestTimeout:         10 * time.Second,
		},
		Timing: TimingConfig{
			PollInterval:         100 * time.Millisecond,
			CoinDebounce:         1000 * time.Millisecond,
			ResetHold:            3000 * time.Millisecond,
			ProvisioningAttempts: 20,
			ProvisioningDelay:    time.Second,
			StatusInterval:       60 * time.Second,
			BatteryInterval:      300 * time.Second,
			SuccessHold:          3 * time.Second,
			FailureHold:          2 * time.Second,
			ResetScreenHold:      2 * time.Second,
			BlinkInterval:        100 * time.Millisecond,
			BlinkCount:           5,
		},
		Store: StoreConfig{
			Driver:    "sqlite",
			Namespace: "kumbara",
			SQLite: SQLiteStoreConfig{
				Path: "data/kumbara.db",
			},
			Redis: RedisStoreConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "kumbara:prefs:",
			},
		},
		Control: ControlConfig{
			Enabled:    true,
			IP:         "0.0.0.0",
			Port:       8000,
			Path:       "/control",
			QueueDepth: 32,
		},
		Web: WebConfig{
			Enabled: true,
			IP:      "127.0.0.1",
			Port:    8080,
		},
		HAL: HALConfig{
			Mode:          "simulated",
			WiFiInterface: "wlan0",
			CoinPin:       "/sys/class/gpio/gpio4/value",
			ButtonPin:     "/sys/class/gpio/gpio9/value",
			LEDPin:        "/sys/class/gpio/gpio8/value",
			BatteryPath:   "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "device.log",
		},
	}
}
