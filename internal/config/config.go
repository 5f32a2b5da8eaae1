package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"cloudpico-display/internal/buttons"
	"cloudpico-display/internal/epd"
	"cloudpico-display/internal/format"
)

const (
	DisplayWaveshare = "waveshare2in13v4"
	DisplayPNG       = "png"

	SensorBME280 = "bme280"
	SensorNone   = "none"

	ButtonsGPIO = "gpio"
	ButtonsNone = "none"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	Latitude  float64
	Longitude float64
	Timezone  string
	Units     format.Units
	City      string

	ForecastURL         string
	ForecastMinInterval time.Duration

	WeatherInterval    time.Duration
	SensorInterval     time.Duration
	LoopInterval       time.Duration
	ErrorBackoff       time.Duration
	SensorRefreshEvery int
	ResetOnError       bool

	DisplayDriver     string
	DisplayFile       string
	DisplayMinRefresh time.Duration
	IconsLargePath    string
	IconsSmallPath    string

	SensorDriver     string
	BME280Address    uint16
	SensorTempOffset float64

	ButtonDriver string
	ButtonPins   []string

	// MQTT telemetry is off when MQTTBroker is empty.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	DeviceStationID string

	// The reading journal is off when SQLitePath is empty.
	SQLitePath  string
	SQLiteTrace bool
	// The status server is off when HTTPAddr is empty.
	HTTPAddr string
}

// LoadFromEnv reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		Timezone:        envString("TIMEZONE", "America/New_York"),
		City:            envString("CITY", ""),
		ForecastURL:     envString("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		DisplayDriver:   strings.ToLower(envString("DISPLAY_DRIVER", DisplayPNG)),
		DisplayFile:     envString("DISPLAY_FILE", "frame.png"),
		IconsLargePath:  envString("ICONS_LARGE_PATH", ""),
		IconsSmallPath:  envString("ICONS_SMALL_PATH", ""),
		SensorDriver:    strings.ToLower(envString("SENSOR_DRIVER", SensorNone)),
		ButtonDriver:    strings.ToLower(envString("BUTTON_DRIVER", ButtonsNone)),
		MQTTBroker:      envString("MQTT_BROKER", ""),
		MQTTClientID:    envString("MQTT_CLIENT_ID", "cloudpico-display"),
		DeviceStationID: envString("DEVICE_STATION_ID", "home"),
		SQLitePath:      envString("SQLITE_PATH", ""),
		HTTPAddr:        envString("HTTP_ADDR", ""),
	}

	if cfg.Latitude, err = envFloat("LATITUDE", 50); err != nil {
		return Config{}, err
	}
	if cfg.Latitude < -90 || cfg.Latitude > 90 {
		return Config{}, fmt.Errorf("LATITUDE must be within [-90, 90], got %v", cfg.Latitude)
	}
	if cfg.Longitude, err = envFloat("LONGITUDE", -50); err != nil {
		return Config{}, err
	}
	if cfg.Longitude < -180 || cfg.Longitude > 180 {
		return Config{}, fmt.Errorf("LONGITUDE must be within [-180, 180], got %v", cfg.Longitude)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.Units, err = format.ParseUnits(envString("UNITS", "imperial")); err != nil {
		return Config{}, fmt.Errorf("invalid UNITS: %w", err)
	}

	if cfg.ForecastMinInterval, err = envDuration("FORECAST_MIN_INTERVAL", 10*time.Second, true); err != nil {
		return Config{}, err
	}
	if cfg.WeatherInterval, err = envDuration("WEATHER_INTERVAL", 15*time.Minute, false); err != nil {
		return Config{}, err
	}
	if cfg.SensorInterval, err = envDuration("SENSOR_INTERVAL", 5*time.Second, false); err != nil {
		return Config{}, err
	}
	if cfg.LoopInterval, err = envDuration("LOOP_INTERVAL", 50*time.Millisecond, true); err != nil {
		return Config{}, err
	}
	if cfg.ErrorBackoff, err = envDuration("ERROR_BACKOFF", 2*time.Second, true); err != nil {
		return Config{}, err
	}
	if cfg.DisplayMinRefresh, err = envDuration("DISPLAY_MIN_REFRESH", epd.DefaultMinRefresh, true); err != nil {
		return Config{}, err
	}

	if cfg.SensorRefreshEvery, err = envInt("SENSOR_REFRESH_EVERY", 60); err != nil {
		return Config{}, err
	}
	if cfg.SensorRefreshEvery < 1 {
		return Config{}, fmt.Errorf("SENSOR_REFRESH_EVERY must be at least 1, got %d", cfg.SensorRefreshEvery)
	}
	if cfg.ResetOnError, err = envBool("RESET_ON_ERROR", false); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteTrace, err = envBool("SQLITE_TRACE", false); err != nil {
		return Config{}, err
	}

	switch cfg.DisplayDriver {
	case DisplayWaveshare, DisplayPNG:
	default:
		return Config{}, fmt.Errorf("invalid DISPLAY_DRIVER %q (allowed: %s, %s)", cfg.DisplayDriver, DisplayWaveshare, DisplayPNG)
	}
	if cfg.DisplayDriver == DisplayPNG && cfg.DisplayFile == "" {
		return Config{}, fmt.Errorf("DISPLAY_FILE is required for DISPLAY_DRIVER=%s", DisplayPNG)
	}

	switch cfg.SensorDriver {
	case SensorBME280, SensorNone:
	default:
		return Config{}, fmt.Errorf("invalid SENSOR_DRIVER %q (allowed: %s, %s)", cfg.SensorDriver, SensorBME280, SensorNone)
	}
	bme280AddressStr := envString("BME280_ADDRESS", "0x76")
	bme280Address, err := strconv.ParseUint(bme280AddressStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", bme280AddressStr, err)
	}
	cfg.BME280Address = uint16(bme280Address)
	if cfg.SensorTempOffset, err = envFloat("SENSOR_TEMP_OFFSET", -2); err != nil {
		return Config{}, err
	}

	switch cfg.ButtonDriver {
	case ButtonsGPIO, ButtonsNone:
	default:
		return Config{}, fmt.Errorf("invalid BUTTON_DRIVER %q (allowed: %s, %s)", cfg.ButtonDriver, ButtonsGPIO, ButtonsNone)
	}
	cfg.ButtonPins = splitList(envString("BUTTON_PINS", strings.Join(buttons.DefaultPins, ",")))
	if cfg.ButtonDriver == ButtonsGPIO && len(cfg.ButtonPins) == 0 {
		return Config{}, fmt.Errorf("BUTTON_PINS is required for BUTTON_DRIVER=%s", ButtonsGPIO)
	}

	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort < 1 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT must be within [1, 65535], got %d", cfg.MQTTPort)
	}

	return cfg, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

// envDuration parses a Go duration. Zero is accepted only when allowZero is set.
func envDuration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
