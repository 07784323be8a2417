// internal/logger/config.go
package logger

import (
	"io"

	"github.com/rovshanmuradov/token-launcher/internal/config"
)

type Config struct {
	LogFile     string
	MaxSize     int  // мегабайты
	MaxAge      int  // дни
	MaxBackups  int  // количество файлов
	Compress    bool // сжимать ротированные файлы
	Development bool

	// Console по умолчанию os.Stdout
	Console io.Writer
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:     config.DefaultLogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}

// FromAppConfig берёт файл и уровень из конфигурации приложения.
func FromAppConfig(cfg *config.Config) *Config {
	lc := DefaultConfig()
	if cfg == nil {
		return lc
	}
	if cfg.LogFile != "" {
		lc.LogFile = cfg.LogFile
	}
	lc.Development = cfg.DebugLogging
	return lc
}
