package config

import (
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
)

// Settings keys for Fyne preferences
const (
	KeyLastDirectory = "last_directory"
	KeyRunningStatus = "running_status"
	KeyMergedSuffix  = "merged_suffix"
)

// Default values
const (
	DefaultRunningStatus = false
	DefaultMergedSuffix  = "_merged"
)

// Settings persists the GUI preferences
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetLastDirectory returns the directory of the last opened file, or an
// empty string if nothing was opened yet
func (s *Settings) GetLastDirectory() string {
	return s.app.Preferences().String(KeyLastDirectory)
}

// SetLastDirectory remembers the directory files are opened from
func (s *Settings) SetLastDirectory(dir string) {
	s.app.Preferences().SetString(KeyLastDirectory, dir)
}

// GetRunningStatus returns whether merged files are written with running status
func (s *Settings) GetRunningStatus() bool {
	return s.app.Preferences().BoolWithFallback(KeyRunningStatus, DefaultRunningStatus)
}

// SetRunningStatus sets whether merged files are written with running status
func (s *Settings) SetRunningStatus(enabled bool) {
	s.app.Preferences().SetBool(KeyRunningStatus, enabled)
}

// GetMergedSuffix returns the suffix added to the input name to suggest an
// output name
func (s *Settings) GetMergedSuffix() string {
	suffix := s.app.Preferences().String(KeyMergedSuffix)
	if suffix == "" {
		s.SetMergedSuffix(DefaultMergedSuffix)
		return DefaultMergedSuffix
	}
	return suffix
}

// SetMergedSuffix sets the output name suffix
func (s *Settings) SetMergedSuffix(suffix string) {
	if strings.ContainsAny(suffix, `/\`) {
		suffix = ""
	}
	if suffix == "" {
		suffix = DefaultMergedSuffix
	}
	s.app.Preferences().SetString(KeyMergedSuffix, suffix)
}

// MergedFileName suggests the output file name for inputPath, always with a
// .mid extension
func (s *Settings) MergedFileName(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return name + s.GetMergedSuffix() + ".mid"
}
