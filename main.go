package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v2"

	"exoserve/db"
	qhttp "exoserve/http"
	"exoserve/logging"
	"exoserve/ml"
	"exoserve/monitoring"
)

type Config struct {
	Http struct {
		Port           int `yaml:"port"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
		MaxBodyMB      int `yaml:"max_body_mb"`
	} `yaml:"http"`
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Static struct {
		Dir string `yaml:"dir"`
	} `yaml:"static"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Log logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	qhttp.SetLogger(logger)

	metrics := monitoring.NewMetrics()
	qhttp.SetMetrics(metrics)

	// The prediction log is supporting infrastructure; a broken DB
	// degrades history, not predictions.
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Warnw("prediction log disabled", "path", config.Database.Path, "err", err)
	} else {
		logger.Infow("prediction log ready", "path", config.Database.Path)
		qhttp.EnablePredictionLog(true)
		defer db.Close()
	}

	// Model load failure is a degraded state, not a crash: health
	// keeps answering and /predict reports the missing model.
	if pipeline, err := ml.LoadPipeline(config.Model.Path); err != nil {
		logger.Warnw("model not loaded, serving degraded", "path", config.Model.Path, "err", err)
	} else {
		qhttp.SetPipeline(pipeline)
		info := pipeline.Info()
		logger.Infow("model loaded",
			"path", config.Model.Path,
			"type", info.ModelType,
			"trees", info.TreeCount,
			"features", len(info.FeatureNames),
		)
	}

	if config.Cache.Size > 0 {
		cache, err := ml.NewPredictionCache(config.Cache.Size)
		if err != nil {
			logger.Warnw("prediction cache disabled", "err", err)
		} else {
			qhttp.SetCache(cache)
		}
	}

	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()
	qhttp.SetStreamHub(hub)

	// The artifact is never hot-reloaded; the watcher only flags that
	// a restart would pick up a different file.
	metrics.SetGauge("model_artifact_stale", 0)
	watcher, err := ml.WatchArtifact(config.Model.Path, func(event string) {
		logger.Warnw("model artifact changed on disk, restart to pick it up", "event", event)
		metrics.SetGauge("model_artifact_stale", 1)
	})
	if err != nil {
		logger.Warnw("artifact watcher disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:         config.Http.Port,
		Timeout:      time.Duration(config.Http.TimeoutSeconds) * time.Second,
		MaxBodyBytes: int64(config.Http.MaxBodyMB) << 20,
		StaticDir:    config.Static.Dir,
	})
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("HTTP server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warnw("server forced to shutdown", "err", err)
	}
	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
