/*
Purpose:
- trail terrain service

Description:
- Service for multi-source trail elevation fusion and rolling-hills terrain analysis.

Releases:
- v1.0.0 - 2026-08-30: initial release

Remarks:
- Elevation profiles are sampled independently from the trail recording, LiDAR
  point clouds and DTM raster tiles, then fused into one consensus profile.
- Point cloud indexes are built lazily on first use and cached for the process
  lifetime; large LAS files make the first request against them noticeably slower.

Links:
- https://pkg.go.dev/github.com/airbusgeo/godal
- https://pkg.go.dev/github.com/dhconnelly/rtreego
- https://pkg.go.dev/github.com/tkrajina/gpxgo/gpx
- https://pkg.go.dev/gopkg.in/yaml.v3
- https://pkg.go.dev/gopkg.in/natefinch/lumberjack.v2
- https://pkg.go.dev/modernc.org/sqlite
*/

// main package
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/airbusgeo/godal"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// general program info
var (
	progName    = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(filepath.Base(os.Args[0])))
	progVersion = "v1.0.0"
	progDate    = "2026-08-30"
	progPurpose = "trail terrain service"
	progInfo    = "Service for multi-source trail elevation fusion and rolling-hills terrain analysis."
)

// ProgConfig defines program configuration
type ProgConfig struct {
	ListenAddress          string   `yaml:"ListenAddress"`
	ServerCertificate      string   `yaml:"ServerCertificate"`
	ServerKey              string   `yaml:"ServerKey"`
	ShutdownGracePeriod    int      `yaml:"ShutdownGracePeriod"`
	LogDirectory           string   `yaml:"LogDirectory"`
	LogLevel               string   `yaml:"LogLevel"`
	RasterRepositories     []string `yaml:"RasterRepositories"`
	PointCloudDirectory    string   `yaml:"PointCloudDirectory"`
	DatabaseFile           string   `yaml:"DatabaseFile"`
	ProjectedEPSG          int      `yaml:"ProjectedEPSG"`
	PointCloudSearchRadius float64  `yaml:"PointCloudSearchRadius"`
	MinPointCloudCoverage  float64  `yaml:"MinPointCloudCoverage"`
}

// progConfig represents program configuration
var progConfig ProgConfig

// shared request resources, initialized once at startup
var (
	analyzer   *Analyzer
	trailStore *TrailStore
)

// statistics
var (
	AnalyzeRequests      uint64
	TrailRequests        uint64
	SimilarRequests      uint64
	TrailInfoRequests    uint64
	TrailListRequests    uint64
	TrailDeleteRequests  uint64
	TrailPointsProcessed uint64
	UnsupportedRequests  uint64
)

/*
main starts this program.
*/
func main() {
	// load program configuration
	progConfigFile := progName + ".yaml"
	source, err := os.ReadFile(progConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration file not found, file = [%s]\n", progConfigFile)
		fmt.Fprintf(os.Stderr, "error [%v] at os.ReadFile()\n", err)
		os.Exit(1)
	}
	err = yaml.Unmarshal(source, &progConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration file invalid, file = [%s]\n", progConfigFile)
		fmt.Fprintf(os.Stderr, "error [%v] at yaml.Unmarshal()\n", err)
		os.Exit(1)
	}

	// logging: replacer for logging objects
	replacer := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source := a.Value.Any().(*slog.Source)   // get source object
			source.File = filepath.Base(source.File) // basepath only
		}
		if a.Key == slog.TimeKey {
			return slog.String("time", a.Value.Time().Format(time.RFC3339Nano)) // local time -> RFC3339Nano
		}
		return a
	}

	// logging: log file output and rotate (with lumberjack package)
	logrotateStartYearDay := time.Now().UTC().YearDay()
	logfile := filepath.Join(progConfig.LogDirectory, progName+".log")
	lumberjackLogger := &lumberjack.Logger{
		Filename: logfile,
		MaxSize:  128,  // megabytes
		MaxAge:   28,   // days
		Compress: true, // gzip rotated log
	}

	// log level
	logLevel := new(slog.LevelVar)
	logLevel.Set(parseLogLevel(progConfig.LogLevel))

	// define logger
	logger := slog.New(slog.NewJSONHandler(lumberjackLogger, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true, ReplaceAttr: replacer}).WithAttrs([]slog.Attr{slog.String("prog", progName)}))
	slog.SetDefault(logger)

	// log program start
	slog.Info(progPurpose+" started", "name", progName, "version", progVersion, "date", progDate, "info", progInfo, "command line", os.Args)
	jsonData, _ := json.MarshalIndent(progConfig, "", "  ") // encode to JSON for readability
	slog.Info("content of configuration file", "configuration file", progConfigFile, "content", string(jsonData))

	// initialize GDAL, register all known GDAL drivers
	godal.RegisterAll()

	// build tile catalog from the raster repositories
	catalog, err := buildTileCatalog(progConfig.RasterRepositories)
	if err != nil {
		slog.Error("error building tile catalog", "error", err)
		os.Exit(1)
	}

	// save tile catalog
	err = saveTileCatalog(catalog)
	if err != nil {
		slog.Error("error saving tile catalog", "error", err)
		os.Exit(1)
	}

	// open trail store
	trailStore, err = OpenTrailStore(progConfig.DatabaseFile)
	if err != nil {
		slog.Error("error opening trail store", "error", err)
		os.Exit(1)
	}

	analyzer = &Analyzer{
		Catalog:               catalog,
		PointClouds:           NewPointCloudCache(),
		PointCloudDirectory:   progConfig.PointCloudDirectory,
		ProjectedEPSG:         progConfig.ProjectedEPSG,
		SearchRadius:          progConfig.PointCloudSearchRadius,
		MinPointCloudCoverage: progConfig.MinPointCloudCoverage,
	}

	// define routes
	http.HandleFunc("POST /v1/analyze", analyzeTrailRequest)
	http.HandleFunc("OPTIONS /v1/analyze", corsOptionsHandler)

	http.HandleFunc("POST /v1/trail", trailRequest)
	http.HandleFunc("OPTIONS /v1/trail", corsOptionsHandler)

	http.HandleFunc("POST /v1/similar", similarRequest)
	http.HandleFunc("OPTIONS /v1/similar", corsOptionsHandler)

	http.HandleFunc("POST /v1/trailinfo", trailInfoRequest)
	http.HandleFunc("OPTIONS /v1/trailinfo", corsOptionsHandler)

	http.HandleFunc("POST /v1/traillist", trailListRequest)
	http.HandleFunc("OPTIONS /v1/traillist", corsOptionsHandler)

	http.HandleFunc("POST /v1/traildelete", trailDeleteRequest)
	http.HandleFunc("OPTIONS /v1/traildelete", corsOptionsHandler)

	// handle unsupported routes or methods
	http.HandleFunc("/", unsupportedRequest)

	// define service
	TrailTerrainService := &http.Server{
		Addr:              progConfig.ListenAddress,
		Handler:           nil,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	// get hostname
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	// create service
	go func() {
		slog.Info("trail terrain service listening for requests", "ListenAddress", progConfig.ListenAddress, "hostname", hostname)
		var err error
		if progConfig.ServerCertificate != "" && progConfig.ServerKey != "" {
			err = TrailTerrainService.ListenAndServeTLS(progConfig.ServerCertificate, progConfig.ServerKey)
		} else {
			err = TrailTerrainService.ListenAndServe()
		}
		if err != nil {
			if err != http.ErrServerClosed {
				slog.Error("error at TrailTerrainService.ListenAndServe()", "error", err)
				os.Exit(1)
			}
		}
	}()

	// start rotate trigger (checks, if log rotate is required)
	rotateTrigger := time.Tick(time.Second * 60)

	// start shutdown trigger and subscribe to shutdown signals
	shutdownTrigger := make(chan os.Signal, 1)
	signal.Notify(shutdownTrigger, syscall.SIGINT)  // kill -SIGINT pid -> interrupt
	signal.Notify(shutdownTrigger, syscall.SIGTERM) // kill -SIGTERM pid -> terminated

ForeverLoop:
	for {
		// wait for log rotate or shutdown trigger
		select {
		case <-rotateTrigger:
			logrotateCurrentYearDay := time.Now().UTC().YearDay()
			if logrotateCurrentYearDay != logrotateStartYearDay {
				slog.Info("new day detected, log rotate triggered")
				err := lumberjackLogger.Rotate()
				if err != nil {
					slog.Error("error at lumberjackLogger.Rotate()", "error", err)
				}
				logrotateStartYearDay = logrotateCurrentYearDay
				logStatistics()
			}
		case sig := <-shutdownTrigger:
			// initiate shutdown
			slog.Info("signal received, shutting down trail terrain service", "signal", sig)
			break ForeverLoop
		}
	}

	// shutdown grace period (wait max n seconds before halting)
	gracePeriod := time.Duration(progConfig.ShutdownGracePeriod) * time.Second

	// shutdown service
	ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()
	err = TrailTerrainService.Shutdown(ctx)
	if err != nil {
		slog.Error("fatal error at TrailTerrainService.Shutdown()", "error", err)
	}

	// close trail store
	err = trailStore.Close()
	if err != nil {
		slog.Error("error at trailStore.Close()", "error", err)
	}

	// log program end
	logStatistics()
	slog.Info("service gracefully shut down")
}

/*
logStatistics logs statistics.
*/
func logStatistics() {
	// read statistics
	currentAnalyzeRequests := atomic.LoadUint64(&AnalyzeRequests)
	currentTrailRequests := atomic.LoadUint64(&TrailRequests)
	currentSimilarRequests := atomic.LoadUint64(&SimilarRequests)
	currentTrailInfoRequests := atomic.LoadUint64(&TrailInfoRequests)
	currentTrailListRequests := atomic.LoadUint64(&TrailListRequests)
	currentTrailDeleteRequests := atomic.LoadUint64(&TrailDeleteRequests)
	currentTrailPointsProcessed := atomic.LoadUint64(&TrailPointsProcessed)
	currentUnsupportedRequests := atomic.LoadUint64(&UnsupportedRequests)

	// reset statistics
	atomic.StoreUint64(&AnalyzeRequests, 0)
	atomic.StoreUint64(&TrailRequests, 0)
	atomic.StoreUint64(&SimilarRequests, 0)
	atomic.StoreUint64(&TrailInfoRequests, 0)
	atomic.StoreUint64(&TrailListRequests, 0)
	atomic.StoreUint64(&TrailDeleteRequests, 0)
	atomic.StoreUint64(&TrailPointsProcessed, 0)
	atomic.StoreUint64(&UnsupportedRequests, 0)

	// log statistics
	slog.Info("load statistics",
		"AnalyzeRequests", currentAnalyzeRequests,
		"TrailRequests", currentTrailRequests,
		"SimilarRequests", currentSimilarRequests,
		"TrailInfoRequests", currentTrailInfoRequests,
		"TrailListRequests", currentTrailListRequests,
		"TrailDeleteRequests", currentTrailDeleteRequests,
		"TrailPointsProcessed", currentTrailPointsProcessed,
		"UnsupportedRequests", currentUnsupportedRequests,
	)
}

/*
parseLogLevel parses log level setting from configuration.
*/
func parseLogLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
