package service

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// SettingsProvider supplies the live detection thresholds. The engine calls
// Current on every ping rather than caching values itself, so threshold
// changes apply without a restart. Invalidate forces a synchronous re-read;
// file-watching providers also refresh on their own.
type SettingsProvider interface {
	Current() domain.DetectionSettings
	Invalidate() error
}

// StaticSettings is a SettingsProvider that always returns the same values.
// Useful for tests and for running without a settings file.
type StaticSettings struct {
	Settings domain.DetectionSettings
}

// Current returns the fixed settings.
func (s StaticSettings) Current() domain.DetectionSettings { return s.Settings }

// Invalidate is a no-op for static settings.
func (s StaticSettings) Invalidate() error { return nil }

// FileSettings is a viper-backed SettingsProvider reading a YAML file with
// hot reload: the file is watched and re-read on change, and Invalidate
// re-reads it on demand. A reload that fails to parse or validate is logged
// and discarded; the last good settings stay in effect.
type FileSettings struct {
	v   *viper.Viper
	log *slog.Logger

	mu      sync.RWMutex
	current domain.DetectionSettings
}

// NewFileSettings builds a FileSettings for the YAML file at path. A missing
// file is not an error — defaults apply until the file appears and a reload
// is triggered. An unparseable or invalid file at startup is an error, since
// silently ignoring a broken config at boot hides operator mistakes.
func NewFileSettings(path string, log *slog.Logger) (*FileSettings, error) {
	v := viper.New()
	setSettingsDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Warn("settings file not found, using defaults", "path", path)
		} else {
			return nil, fmt.Errorf("service.NewFileSettings: read %s: %w", path, err)
		}
	}

	s := &FileSettings{v: v, log: log}
	settings, err := readSettings(v)
	if err != nil {
		return nil, fmt.Errorf("service.NewFileSettings: %w", err)
	}
	s.current = settings

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := s.reload(); err != nil {
			log.Warn("settings reload failed, keeping previous values", "error", err)
		} else {
			log.Info("detection settings reloaded", "path", path)
		}
	})
	v.WatchConfig()

	return s, nil
}

// Current returns a copy of the active settings.
func (s *FileSettings) Current() domain.DetectionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Invalidate re-reads the settings file immediately. On failure the previous
// settings remain in effect and the error is returned.
func (s *FileSettings) Invalidate() error {
	if err := s.v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("service.FileSettings.Invalidate: %w", err)
	}
	if err := s.reload(); err != nil {
		return fmt.Errorf("service.FileSettings.Invalidate: %w", err)
	}
	return nil
}

// reload parses and validates the current viper state and swaps it in.
func (s *FileSettings) reload() error {
	settings, err := readSettings(s.v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}

// setSettingsDefaults registers the default thresholds so a sparse or absent
// settings file still yields a complete configuration.
func setSettingsDefaults(v *viper.Viper) {
	d := domain.DefaultDetectionSettings()
	v.SetDefault("detection.required_hits", d.RequiredHits)
	v.SetDefault("detection.hit_window", d.HitWindow)
	v.SetDefault("detection.min_radius_meters", d.MinRadiusMeters)
	v.SetDefault("detection.max_radius_meters", d.MaxRadiusMeters)
	v.SetDefault("detection.accuracy_multiplier", d.AccuracyMultiplier)
	v.SetDefault("detection.accuracy_reject_meters", d.AccuracyRejectMeters)
	v.SetDefault("detection.max_search_radius_meters", d.MaxSearchRadiusMeters)
	v.SetDefault("detection.candidate_stale", d.CandidateStale)
	v.SetDefault("detection.end_visit_after", d.EndVisitAfter)
	v.SetDefault("detection.notes_snapshot_max_chars", d.NotesSnapshotMaxChars)
}

// readSettings extracts and validates a DetectionSettings from viper state.
func readSettings(v *viper.Viper) (domain.DetectionSettings, error) {
	s := domain.DetectionSettings{
		RequiredHits:          v.GetInt("detection.required_hits"),
		HitWindow:             v.GetDuration("detection.hit_window"),
		MinRadiusMeters:       v.GetFloat64("detection.min_radius_meters"),
		MaxRadiusMeters:       v.GetFloat64("detection.max_radius_meters"),
		AccuracyMultiplier:    v.GetFloat64("detection.accuracy_multiplier"),
		AccuracyRejectMeters:  v.GetFloat64("detection.accuracy_reject_meters"),
		MaxSearchRadiusMeters: v.GetFloat64("detection.max_search_radius_meters"),
		CandidateStale:        v.GetDuration("detection.candidate_stale"),
		EndVisitAfter:         v.GetDuration("detection.end_visit_after"),
		NotesSnapshotMaxChars: v.GetInt("detection.notes_snapshot_max_chars"),
	}
	if err := s.Validate(); err != nil {
		return domain.DetectionSettings{}, err
	}
	return s, nil
}
