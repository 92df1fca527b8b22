// internal/workers/catalog/generate-spreadsheet/config.go
package generatespreadsheet

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Minute,
	}
}
