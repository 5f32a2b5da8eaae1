package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-display/internal/buttons"
	"cloudpico-display/internal/config"
	"cloudpico-display/internal/db"
	"cloudpico-display/internal/epd"
	"cloudpico-display/internal/forecast"
	"cloudpico-display/internal/format"
	"cloudpico-display/internal/httpapi"
	"cloudpico-display/internal/journal"
	"cloudpico-display/internal/migrate"
	"cloudpico-display/internal/mqtt"
	"cloudpico-display/internal/raster"
	"cloudpico-display/internal/sensor"
	"cloudpico-display/internal/station"
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("initializing station",
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"timezone", cfg.Timezone,
		"units", cfg.Units.String(),
		"display_driver", cfg.DisplayDriver,
		"sensor_driver", cfg.SensorDriver,
		"button_driver", cfg.ButtonDriver,
		"mqtt_broker", cfg.MQTTBroker,
		"sqlite_path", cfg.SQLitePath,
		"http_addr", cfg.HTTPAddr,
	)

	client := forecast.NewClient(
		forecast.Location{Latitude: cfg.Latitude, Longitude: cfg.Longitude, Timezone: cfg.Timezone},
		forecast.WithBaseURL(cfg.ForecastURL),
		forecast.WithMinInterval(cfg.ForecastMinInterval),
		forecast.WithLogger(logger),
	)

	drawer, err := newDrawer(cfg)
	if err != nil {
		return err
	}

	panel, err := openPanel(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := panel.Close(); err != nil {
			logger.Error("panel close", "error", err)
		}
	}()

	sens, err := openSensor(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sens.Close(); err != nil {
			logger.Error("sensor close", "error", err)
		}
	}()

	btns, err := openButtons(cfg)
	if err != nil {
		return err
	}

	var sinks []station.Sink

	var dbConn *sql.DB
	var repo *journal.Repository
	if cfg.SQLitePath != "" {
		dbConn, err = db.Open(db.Options{Path: cfg.SQLitePath, Trace: cfg.SQLiteTrace, Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(dbConn); err != nil {
				logger.Error("db close", "error", err)
			}
		}()
		if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		repo = journal.NewRepository(dbConn, cfg.DeviceStationID, logger)
		sinks = append(sinks, repo)
	}

	if cfg.MQTTBroker != "" {
		mqttClient, err := mqtt.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := mqttClient.Connect(ctx); err != nil {
				logger.Warn("mqtt connect failed; telemetry disabled", "error", err)
				return
			}
			if err := mqttClient.PublishStationHealth(true); err != nil {
				logger.Warn("mqtt health publish failed", "error", err)
			}
		}()
		defer func() {
			if mqttClient.IsConnected() {
				if err := mqttClient.PublishStationHealth(false); err != nil {
					logger.Warn("mqtt health publish failed", "error", err)
				}
			}
			mqttClient.Disconnect()
		}()
		sinks = append(sinks, mqtt.NewTelemetrySink(mqttClient))
	}

	stn, err := station.New(stationConfig(cfg), station.Deps{
		Forecaster: client,
		Sensor:     sens,
		Buttons:    btns,
		Panel:      panel,
		Drawer:     drawer,
		Sinks:      sinks,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if cfg.HTTPAddr == "" {
		return stn.Run(ctx)
	}

	deps := httpapi.Deps{Source: stn, DB: dbConn, StationID: cfg.DeviceStationID, Logger: logger}
	if repo != nil {
		deps.Readings = repo
	}
	srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(deps), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	runErr := stn.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(runErr, err)
	}
	return runErr
}

func stationConfig(cfg config.Config) station.Config {
	sc := station.DefaultConfig()
	sc.Units = cfg.Units
	sc.Location = format.LocationText(cfg.City, cfg.Latitude, cfg.Longitude)
	sc.WeatherInterval = cfg.WeatherInterval
	sc.SensorInterval = cfg.SensorInterval
	sc.LoopInterval = cfg.LoopInterval
	sc.ErrorBackoff = cfg.ErrorBackoff
	sc.SensorRefreshEvery = cfg.SensorRefreshEvery
	sc.TempOffsetC = cfg.SensorTempOffset
	sc.ResetOnError = cfg.ResetOnError
	return sc
}

func newDrawer(cfg config.Config) (*raster.Renderer, error) {
	large, err := raster.LoadSpriteSheet(cfg.IconsLargePath)
	if err != nil {
		return nil, fmt.Errorf("large icons: %w", err)
	}
	small, err := raster.LoadSpriteSheet(cfg.IconsSmallPath)
	if err != nil {
		return nil, fmt.Errorf("small icons: %w", err)
	}
	return raster.New(raster.WithSpriteSheets(large, small)), nil
}

func openPanel(cfg config.Config, logger *slog.Logger) (epd.Panel, error) {
	switch cfg.DisplayDriver {
	case config.DisplayWaveshare:
		return epd.OpenWaveshare("", cfg.DisplayMinRefresh, logger)
	default:
		p, err := epd.NewPNGFile(cfg.DisplayFile, cfg.DisplayMinRefresh)
		if err != nil {
			return nil, err
		}
		logger.Info("rendering frames to file", "path", p.Path())
		return p, nil
	}
}

func openSensor(cfg config.Config) (sensor.Sensor, error) {
	if cfg.SensorDriver == config.SensorBME280 {
		return sensor.OpenBME280("", cfg.BME280Address)
	}
	return sensor.None{}, nil
}

func openButtons(cfg config.Config) (buttons.Poller, error) {
	if cfg.ButtonDriver == config.ButtonsGPIO {
		return buttons.OpenGPIO(cfg.ButtonPins)
	}
	return buttons.None{}, nil
}
