package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fpvtools/blackbox-analysis/internal/analysis"
	"github.com/fpvtools/blackbox-analysis/internal/flight"
	"github.com/fpvtools/blackbox-analysis/internal/storage"
)

const (
	storageDir = "data"
	dbName     = "bbanalyze.sqlite"
)

// Run analyzes every given log file and stores the results. Logs that fail
// are reported and skipped; the run as a whole fails only when nothing could
// be analyzed.
func Run(ctx context.Context, config *Config, logger *slog.Logger, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no log files to analyze")
	}

	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	var failed int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := analyzeLog(ctx, config, logger, store, path); err != nil {
			logger.Error("log analysis failed", slog.String("log", path), slog.String("error", err.Error()))
			failed++
		}
	}

	if failed == len(paths) {
		return fmt.Errorf("all %d logs failed to analyze", failed)
	}
	return nil
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wd, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	// One stable database file: run identity is keyed by log contents, so
	// repeated invocations share the cache.
	return storage.NewSqliteStore(filepath.Join(dir, dbName)), nil
}

func analyzeLog(ctx context.Context, config *Config, logger *slog.Logger, store storage.Store, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	hash, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("hashing log: %w", err)
	}

	logger.Info("analyzing log",
		slog.String("log", path),
		slog.String("size", humanize.Bytes(uint64(fi.Size()))))

	run, err := store.FindRun(ctx, hash, fi.Size())
	if err != nil {
		return fmt.Errorf("looking up run: %w", err)
	}

	l, err := loadLog(ctx, config, path)
	if err != nil {
		return err
	}

	var runID int64
	if run != nil {
		runID = run.ID
	} else {
		runID, err = store.CreateRun(ctx, &storage.Run{
			LogPath:    path,
			LogSize:    fi.Size(),
			LogHash:    hash,
			Firmware:   l.Header.Firmware,
			SampleRate: l.Clock.FS,
			Samples:    int64(l.Samples()),
			Duration:   l.Duration(),
		})
		if err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
	}

	jobs := buildJobs(logger, l, config)
	if len(jobs) == 0 {
		return fmt.Errorf("log has no analyzable channels")
	}

	// The cache is keyed per result, so changing one estimator's settings
	// recomputes only what that change invalidates.
	pending, cached, err := missingJobs(ctx, store, runID, jobs)
	if err != nil {
		return err
	}
	if cached > 0 {
		logger.Info("reusing cached results",
			slog.Int64("run", runID),
			slog.Int("cached", cached),
			slog.Int("pending", len(pending)))
	}
	if len(pending) == 0 {
		return nil
	}

	results := runJobs(ctx, logger, pending)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.StoreResults(ctx, runID, results); err != nil {
		return fmt.Errorf("storing results: %w", err)
	}

	logger.Info("log analyzed",
		slog.Int64("run", runID),
		slog.String("samples", humanize.Comma(int64(l.Samples()))),
		slog.String("duration", fmt.Sprintf("%.1fs", l.Duration())),
		slog.Float64("sampleRate", l.Clock.FS),
		slog.Int("results", len(results)))
	return nil
}

// missingJobs drops the jobs whose (kind, axis, channel, params) output is
// already stored for this run.
func missingJobs(ctx context.Context, store storage.Store, runID int64, jobs []job) (pending []job, cached int, err error) {
	for _, j := range jobs {
		key, err := paramsKey(j)
		if err != nil {
			return nil, 0, err
		}
		res, err := store.Result(ctx, runID, j.kind, j.axis, j.channel, key)
		if err != nil {
			return nil, 0, fmt.Errorf("looking up cached result: %w", err)
		}
		if res != nil {
			cached++
			continue
		}
		pending = append(pending, j)
	}
	return pending, cached, nil
}

// loadLog reads a decoded CSV directly, or runs the external decoder for a
// raw log.
func loadLog(ctx context.Context, config *Config, path string) (*flight.Log, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return flight.LoadCSV(path)
	}

	dec, err := flight.NewDecoder(config.Decoder.Binary)
	if err != nil {
		return nil, err
	}
	return dec.Load(ctx, path)
}

// buildJobs enumerates every estimator applicable to the channels the log
// actually carries. Missing channels simply produce no job.
func buildJobs(logger *slog.Logger, l *flight.Log, config *Config) []job {
	stepCfg := config.Analysis.StepConfig()
	welchCfg := config.Analysis.WelchConfig()
	noiseCfg := config.Analysis.NoiseConfig()
	sgramCfg := config.Analysis.SpectrogramConfig()

	throttle, hasThrottle := l.ThrottlePercent()

	var jobs []job
	addSpectral := func(axis flight.Axis, channel string, values []float64) {
		jobs = append(jobs, job{
			kind: "psd", axis: axis.String(), channel: channel, params: welchCfg,
			run: func() (any, error) {
				return analysis.EstimatePSD(values, l.Clock.FS, welchCfg)
			},
		})
		jobs = append(jobs, job{
			kind: "spectrogram", axis: axis.String(), channel: channel, params: sgramCfg,
			run: func() (any, error) {
				return analysis.EstimateSpectrogram(l.Time, values, sgramCfg)
			},
		})
		if hasThrottle {
			jobs = append(jobs, job{
				kind: "noise", axis: axis.String(), channel: channel, params: noiseCfg,
				run: func() (any, error) {
					return analysis.EstimateNoise(l.Time, values, throttle, noiseCfg)
				},
			})
		}
	}

	for _, axis := range flight.Axes() {
		axis := axis

		gyro, hasGyro := l.Gyro(axis)
		if hasGyro {
			addSpectral(axis, "gyro", gyro)
		}
		if raw, ok := l.GyroRaw(axis); ok {
			addSpectral(axis, "gyroUnfilt", raw)
		}
		if dterm, ok := l.DTerm(axis); ok {
			addSpectral(axis, "dterm", dterm)
		}

		if _, ok := l.Setpoint(axis); ok && hasGyro {
			jobs = append(jobs, job{
				kind: "error", axis: axis.String(), channel: "gyro", params: errorParams{MaxPoints: errorMaxPoints},
				run: func() (any, error) {
					return buildErrorAnalysis(l, axis)
				},
			})
		}

		pErr, hasP := l.PTerm(axis)
		pGain := l.Header.PIDFor(axis).P
		if hasGyro && hasP && pGain > 0 {
			jobs = append(jobs, job{
				kind: "step", axis: axis.String(), channel: "gyro", params: stepCfg,
				run: func() (any, error) {
					resp, err := analysis.EstimateStepResponse(l.Time, gyro, pErr, pGain, stepCfg)
					if err != nil {
						return nil, err
					}
					peak, t50 := stepMetrics(resp)
					logger.Info("step response",
						slog.String("axis", axis.String()),
						slog.Float64("peak", peak),
						slog.Float64("t50ms", t50*1000),
						slog.Int("usefulFrames", resp.UsefulFrames),
						slog.Bool("reliable", resp.Reliable))
					return resp, nil
				},
			})
		} else if hasGyro && hasP {
			logger.Warn("skipping step response, no P gain in headers",
				slog.String("axis", axis.String()))
		}
	}
	return jobs
}

// errorMaxPoints caps the stored error-analysis series; a full log at 8kHz
// would otherwise dwarf every spectral result.
const errorMaxPoints = 2048

type errorParams struct {
	MaxPoints int `json:"maxPoints"`
}

// errorAnalysis is the payload of the "error" result kind: how well the PID
// loop tracked its setpoint over the flight, decimated for plotting.
type errorAnalysis struct {
	Time       []float64 `json:"time"`
	Error      []float64 `json:"error"`      // setpoint minus gyro
	Cumulative []float64 `json:"cumulative"` // integrated error, exposes drift
	PIDOutput  []float64 `json:"pidOutput,omitempty"`
	Histogram  []float64 `json:"histogram"` // outlier-trimmed error samples
}

func buildErrorAnalysis(l *flight.Log, a flight.Axis) (*errorAnalysis, error) {
	e, err := l.TrackingError(a)
	if err != nil {
		return nil, err
	}
	cum, err := l.CumulativeError(a)
	if err != nil {
		return nil, err
	}

	ea := &errorAnalysis{
		Time:       flight.Decimate(l.Time[:len(e)], errorMaxPoints),
		Error:      flight.Decimate(e, errorMaxPoints),
		Cumulative: flight.Decimate(cum, errorMaxPoints),
		Histogram:  flight.Decimate(flight.TrimOutliers(e), errorMaxPoints),
	}
	// The summed controller output needs at least the P term; logs without
	// per-term columns still get the error curves.
	if out, err := l.PIDOutput(a); err == nil {
		ea.PIDOutput = flight.Decimate(out, errorMaxPoints)
	}
	return ea, nil
}

// stepMetrics summarizes a step response: the curve peak (overshoot when
// above 1) and the time of the first crossing of one half.
func stepMetrics(r *analysis.StepResponse) (peak, t50 float64) {
	for i, v := range r.Mean {
		if v > peak {
			peak = v
		}
		if t50 == 0 && v >= 0.5 {
			t50 = r.Time[i]
		}
	}
	return peak, t50
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
