package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/stability"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/training"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	recordLabel := flag.String("record", "", "record samples for the given gesture label and exit")
	recordCount := flag.Int("count", 50, "number of samples to record with -record")
	trainFlag := flag.Bool("train", false, "train a model from recorded samples and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dataDir, err := ensureDataDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "mudra.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	switch {
	case *recordLabel != "":
		if err := runRecord(cfg, st, *recordLabel, *recordCount); err != nil {
			log.Fatalf("Recording failed: %v", err)
		}
	case *trainFlag:
		if err := runTrain(cfg, st); err != nil {
			log.Fatalf("Training failed: %v", err)
		}
	default:
		if err := runLive(cfg, st); err != nil {
			log.Fatalf("Mudra failed: %v", err)
		}
	}
}

func ensureDataDir(configured string) (string, error) {
	dataDir := configured
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(homeDir, ".mudra")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

func newCamera(cfg *config.Config) *capture.Manager {
	return capture.NewManager(capture.ManagerConfig{
		Candidates: cfg.Camera.Devices,
		Spec: capture.StreamSpec{
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		},
		FailureThreshold:    cfg.Camera.FailureThreshold,
		MaxRecoveryAttempts: cfg.Camera.MaxRecoveryAttempts,
		BackoffInitial:      cfg.Camera.BackoffInitial(),
		BackoffMax:          cfg.Camera.BackoffMax(),
	}, capture.GoCVOpener())
}

func stabilityConfig(cfg *config.Config) stability.Config {
	return stability.Config{
		MinStreak:     cfg.Stability.MinStreak,
		ReleaseAfter:  cfg.Stability.ReleaseAfter,
		MinConfidence: cfg.Stability.MinConfidence,
	}
}

func detectionConfig(cfg *config.Config) detector.Config {
	return detector.Config{
		MaxHands:        cfg.Detection.MaxHands,
		MinConfidence:   cfg.Detection.MinConfidence,
		MinTrackingConf: cfg.Detection.MinTrackingConf,
	}
}

// newDetector prefers the MediaPipe subprocess and falls back to the mock
// so headless setups can still exercise the rest of the pipeline.
func newDetector(cfg *config.Config) detector.Detector {
	d, err := detector.NewMediaPipeDetector(detectionConfig(cfg))
	if err != nil {
		log.Printf("MediaPipe unavailable, using mock detector: %v", err)
		return detector.NewMockDetector()
	}
	return d
}

func runRecord(cfg *config.Config, st *store.Store, label string, count int) error {
	det := newDetector(cfg)
	defer det.Close()

	a := app.New(app.Config{
		Camera:    newCamera(cfg),
		Detector:  det,
		Detection: detectionConfig(cfg),
	})

	fmt.Printf("Recording %d samples for %q. Hold the gesture in view.\n", count, label)
	samples, err := a.RecordSession(context.Background(), classify.Label(label), count)
	if err != nil && !errors.Is(err, training.ErrSessionIncomplete) {
		return err
	}
	if err := st.Samples().Append(samples); err != nil {
		return err
	}
	fmt.Printf("Stored %d samples for %q.\n", len(samples), label)
	return nil
}

// trainOnStore fits a model on every recorded sample and persists it.
func trainOnStore(cfg *config.Config, st *store.Store) (*classify.Artifact, *training.Report, error) {
	ds, err := st.Samples().Dataset()
	if err != nil {
		return nil, nil, err
	}

	kind, err := classify.ParseKind(cfg.Classifier.Kind)
	if err != nil {
		return nil, nil, err
	}

	artifact, report, err := training.Train(ds, kind, cfg.Classifier.TestFraction, cfg.Classifier.MinSamplesPerLabel)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Models().Save(artifact); err != nil {
		return nil, nil, err
	}
	return artifact, report, nil
}

func runTrain(cfg *config.Config, st *store.Store) error {
	artifact, report, err := trainOnStore(cfg, st)
	if err != nil {
		return err
	}

	fmt.Printf("Trained %s model %s.\n", artifact.Kind, artifact.ID)
	fmt.Printf("Held-out accuracy: %.1f%% (%d test samples)\n", report.Accuracy*100, report.TestSamples)
	return nil
}

func runLive(cfg *config.Config, st *store.Store) error {
	classifier := classify.NewClassifier()
	artifact, err := st.Models().Latest()
	switch {
	case err == nil:
		if artifact.FeatureLen != feature.VectorLen {
			return fmt.Errorf("model %s expects %d features, layout v%d produces %d; retrain with -train",
				artifact.ID, artifact.FeatureLen, feature.LayoutVersion, feature.VectorLen)
		}
		if err := classifier.Load(artifact); err != nil {
			return err
		}
		log.Printf("Loaded %s model %s (labels: %v)", artifact.Kind, artifact.ID, artifact.Labels)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no trained model found; record samples with -record and train with -train")
	default:
		return err
	}

	det := newDetector(cfg)
	defer det.Close()

	dispatcher := action.NewDispatcher(cfg.Mapping(), &action.SystemBackend{})
	defer dispatcher.Close()

	appCfg := app.Config{
		Camera:     newCamera(cfg),
		Detector:   det,
		Detection:  detectionConfig(cfg),
		Classifier: classifier,
		Stability:  stabilityConfig(cfg),
		Dispatcher: dispatcher,
	}
	if cfg.Motion.Enabled {
		motion := capture.NewMotionGate(cfg.Motion.Threshold)
		defer motion.Close()
		appCfg.Motion = motion
	}
	a := app.New(appCfg)

	srv := server.New(server.Config{
		App:     a,
		Store:   st,
		Classes: classifier,
		// Retrain on demand and hot-swap the live model.
		Train: func() (*classify.Artifact, *training.Report, error) {
			artifact, report, err := trainOnStore(cfg, st)
			if err != nil {
				return nil, nil, err
			}
			if err := classifier.Load(artifact); err != nil {
				return nil, nil, err
			}
			return artifact, report, nil
		},
	})
	go func() {
		log.Printf("Serving on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnQuit(func() {
		a.Stop()
	})
	a.OnEvent(func(ev stability.Event) {
		t.SetLastGesture(string(ev.Label))
	})

	if err := a.Start(); err != nil {
		return err
	}

	// Blocks until Quit is selected from the menu.
	t.Run()

	if err := a.Err(); err != nil {
		return err
	}
	return nil
}
