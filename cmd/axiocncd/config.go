package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded from the environment
// (optionally via a .env file) with flag overrides in main.
type Config struct {
	Addr         string
	SerialPort   string
	BaudRate     int
	SettingsFile string
	LogLevel     string
}

func loadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getEnv("AXIOCNC_ADDR", ":9091"),
		SerialPort:   getEnv("AXIOCNC_SERIAL_PORT", "/dev/ttyUSB0"),
		BaudRate:     getEnvAsInt("AXIOCNC_BAUD_RATE", 115200),
		SettingsFile: getEnv("AXIOCNC_SETTINGS_FILE", "./settings.json"),
		LogLevel:     getEnv("AXIOCNC_LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return def
}
