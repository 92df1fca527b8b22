// internal/workers/catalog/assemble-spreadsheet/config.go
package assemblespreadsheet

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
