// Package config handles service configuration
package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr           string
	TranslatorURL      string
	TranslatorTimeout  float64 // seconds
	TargetLanguage     string
	Mode               string  // standard | immersive
	MaxTracked         int     // 0 keeps the policy default
	PromoteFramesLatin int     // 0 keeps the policy default
	PromoteFramesCJK   int     // 0 keeps the policy default
	BatchDelay         float64 // seconds
	BatchMax           int
	CacheCapacity      int
	ScenePersistence   float64
	SceneHold          float64 // seconds
	LogLevel           string
}

func Load() *Config {
	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8000"),
		TranslatorURL:      getEnv("TRANSLATOR_URL", "http://localhost:8501/translate"),
		TranslatorTimeout:  getEnvFloat("TRANSLATOR_TIMEOUT", 10.0),
		TargetLanguage:     getEnv("TARGET_LANGUAGE", "en"),
		Mode:               getEnv("MODE", "standard"),
		MaxTracked:         getEnvInt("MAX_TRACKED", 0),
		PromoteFramesLatin: getEnvInt("PROMOTE_FRAMES_LATIN", 0),
		PromoteFramesCJK:   getEnvInt("PROMOTE_FRAMES_CJK", 0),
		BatchDelay:         getEnvFloat("BATCH_DELAY", 0.25),
		BatchMax:           getEnvInt("BATCH_MAX", 10),
		CacheCapacity:      getEnvInt("CACHE_CAPACITY", 200),
		ScenePersistence:   getEnvFloat("SCENE_PERSISTENCE", 0.2),
		SceneHold:          getEnvFloat("SCENE_HOLD", 1.0),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
