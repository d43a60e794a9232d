// Package appconfig loads env-config for the binaries and reads typed values with defaults
package appconfig

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/wb-go/wbf/config"
)

// Load - конфиг из окружения плюс .env-файлы; отсутствие файла не фатально
func Load(envFiles ...string) *config.Config {
	appConfig := config.New()
	appConfig.EnableEnv("")
	if len(envFiles) > 0 {
		if err := appConfig.LoadEnvFiles(envFiles...); err != nil {
			log.Printf("Failed to load env-files %v: %v. Using process environment only", envFiles, err)
		}
	}
	return appConfig
}

func String(cfg *config.Config, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func Int(cfg *config.Config, key string, def int) int {
	v := strings.TrimSpace(cfg.GetString(key))
	if v == "" {
		return def
	}
	res, err := cast.ToIntE(v)
	if err != nil {
		log.Printf("Invalid value %q for %s, using default %d", v, key, def)
		return def
	}
	return res
}

func Bool(cfg *config.Config, key string, def bool) bool {
	v := strings.TrimSpace(cfg.GetString(key))
	if v == "" {
		return def
	}
	res, err := cast.ToBoolE(v)
	if err != nil {
		log.Printf("Invalid value %q for %s, using default %v", v, key, def)
		return def
	}
	return res
}

// Duration понимает как "30s", так и голое число секунд
func Duration(cfg *config.Config, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(cfg.GetString(key))
	if v == "" {
		return def
	}
	if secs, err := cast.ToIntE(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	res, err := cast.ToDurationE(v)
	if err != nil {
		log.Printf("Invalid value %q for %s, using default %v", v, key, def)
		return def
	}
	return res
}
