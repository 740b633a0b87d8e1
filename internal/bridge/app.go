package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/danielgtaylor/qtfaststart/internal/analyzer"
	"github.com/danielgtaylor/qtfaststart/internal/config"
	"github.com/danielgtaylor/qtfaststart/internal/optimizer"
	"github.com/danielgtaylor/qtfaststart/internal/updater"
)

// ProgressEvent is emitted to the frontend while a file is being converted.
type ProgressEvent struct {
	Path     string  `json:"path"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// App is the wails-bound application state.
type App struct {
	ctx     context.Context
	version string
	cfg     *config.Config
	log     zerolog.Logger

	convertingCount int
	convertingMu    sync.Mutex
	forceClose      bool

	visitedFolders   map[string]bool
	visitedFoldersMu sync.Mutex
}

// NewApp creates the application state for the given build version.
func NewApp(version string) *App {
	cfg, err := config.Load("")
	log := newFileLogger(cfg)
	if err != nil {
		cfg = config.Default()
		log.Warn().Err(err).Msg("could not load config, using defaults")
	}
	return &App{
		version:        version,
		cfg:            cfg,
		log:            log,
		visitedFolders: make(map[string]bool),
	}
}

// logFilePath places the log next to the executable: GUI launches have an
// arbitrary working directory, often the filesystem root.
func logFilePath() string {
	exe, err := os.Executable()
	if err != nil {
		return "qtfaststart.log"
	}
	return filepath.Join(filepath.Dir(exe), "qtfaststart.log")
}

// newFileLogger logs next to the executable; falls back to stderr when the
// log file cannot be opened.
func newFileLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg != nil {
		if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
			level = parsed
		}
	}

	f, err := os.OpenFile(logFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger()
}

// Startup is called by wails once the runtime is ready.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.log.Info().Str("version", a.version).Msg("app startup")

	FixWindowsDropPermissions(a.log)
	a.setupFileDrop(ctx)
}

func (a *App) startConverting() {
	a.convertingMu.Lock()
	a.convertingCount++
	a.convertingMu.Unlock()
}

func (a *App) stopConverting() {
	a.convertingMu.Lock()
	if a.convertingCount > 0 {
		a.convertingCount--
	}
	a.convertingMu.Unlock()
}

// options builds engine options from the user config.
func (a *App) options() optimizer.Options {
	layout := optimizer.MoovFirst
	if a.cfg.MoovToEnd {
		layout = optimizer.MoovLast
	}
	return optimizer.Options{
		Layout:   layout,
		KeepFree: a.cfg.KeepFree,
		Limit:    a.cfg.Limit,
		Log:      &a.log,
	}
}

// CheckFile reports whether the MP4 file is already fast-start optimized.
func (a *App) CheckFile(path string) (bool, error) {
	return analyzer.CheckFastStart(path)
}

// ValidateFile reports whether the MP4 file is complete and not truncated.
func (a *App) ValidateFile(path string) (bool, error) {
	return analyzer.ValidateFile(path)
}

// ConvertFile optimizes the file in place, emitting progress events to the
// frontend as the run advances. The converted copy is written to a
// recognizable temp file first and renamed over the original only on
// success, so an interrupted run leaves the original untouched and the
// orphaned temp file is swept up by the folder cleanup.
func (a *App) ConvertFile(path string) error {
	a.startConverting()
	defer a.stopConverting()

	a.trackFolder(filepath.Dir(path))

	opts := a.options()
	opts.Progress = func(progress float64, message string) {
		runtime.EventsEmit(a.ctx, "optimize-progress", ProgressEvent{
			Path:     path,
			Progress: progress,
			Message:  message,
		})
	}

	temp := TempName(path)
	if err := optimizer.Process(path, temp, opts); err != nil {
		os.Remove(temp)
		a.log.Error().Err(err).Str("path", path).Msg("conversion failed")
		return err
	}
	if err := os.Rename(temp, path); err != nil {
		os.Remove(temp)
		a.log.Error().Err(err).Str("path", path).Msg("replacing original failed")
		return err
	}
	a.log.Info().Str("path", path).Msg("conversion complete")
	return nil
}

// IsConverting reports whether any conversion is in progress.
func (a *App) IsConverting() bool {
	a.convertingMu.Lock()
	defer a.convertingMu.Unlock()
	return a.convertingCount > 0
}

// RequestClose closes the app, prompting the user first when a conversion
// is still running.
func (a *App) RequestClose() bool {
	if a.IsConverting() {
		runtime.EventsEmit(a.ctx, "request-close-confirm")
		return false
	}
	runtime.Quit(a.ctx)
	return true
}

// IsForceClosing reports whether a forced shutdown is underway.
func (a *App) IsForceClosing() bool {
	return a.forceClose
}

// ForceClose shuts down immediately, cleaning up temp files first.
func (a *App) ForceClose() {
	a.log.Info().Msg("force close requested, cleaning up temp files")
	a.forceClose = true
	a.cleanupAllVisitedFolders()
	runtime.Quit(a.ctx)
}

// GetFileMetadata returns the metadata summary for the given file.
func (a *App) GetFileMetadata(path string) (*analyzer.Metadata, error) {
	return analyzer.GetMetadata(path)
}

// SelectFiles opens a file dialog for choosing MP4 files.
func (a *App) SelectFiles() ([]string, error) {
	selection, err := runtime.OpenMultipleFilesDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select MP4 Files",
		Filters: []runtime.FileFilter{
			{DisplayName: "MP4 Video", Pattern: "*.mp4"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dialog error: %w", err)
	}
	return selection, nil
}

// SelectDirectory opens a directory chooser.
func (a *App) SelectDirectory() (string, error) {
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Folder",
	})
	if err != nil {
		return "", fmt.Errorf("dialog error: %w", err)
	}
	return selection, nil
}

// ExpandPaths flattens dropped files and folders into the list of MP4 files
// they contain, recursing into directories.
func (a *App) ExpandPaths(paths []string) ([]string, error) {
	var result []string
	seen := make(map[string]bool)
	folders := make(map[string]bool)

	addFile := func(path string) {
		if !isMP4(path) || isTempFile(path) {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if !seen[abs] {
			seen[abs] = true
			result = append(result, abs)
		}
	}

	for _, p := range paths {
		clean := filepath.Clean(p)
		info, err := os.Stat(clean)
		if err != nil {
			a.log.Warn().Err(err).Str("path", clean).Msg("skipping inaccessible path")
			continue
		}

		if !info.IsDir() {
			if abs, err := filepath.Abs(filepath.Dir(clean)); err == nil {
				folders[abs] = true
			}
			addFile(clean)
			continue
		}

		err = filepath.WalkDir(clean, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				a.log.Warn().Err(err).Str("path", path).Msg("walk error")
				return nil
			}
			if d.IsDir() {
				if abs, aerr := filepath.Abs(path); aerr == nil {
					folders[abs] = true
				}
				return nil
			}
			addFile(path)
			return nil
		})
		if err != nil {
			a.log.Warn().Err(err).Str("dir", clean).Msg("walk failed")
		}
	}

	for folder := range folders {
		a.trackFolder(folder)
	}

	a.log.Debug().Int("count", len(result)).Msg("expanded dropped paths")
	return result, nil
}

// GetAppVersion returns the build version.
func (a *App) GetAppVersion() string {
	return a.version
}

// CheckForUpdates queries the configured release manifest.
func (a *App) CheckForUpdates() (*updater.CheckResult, error) {
	return updater.CheckUpdate(a.version, a.cfg.UpdateURL)
}

// InstallUpdate downloads and installs the update at the given URL.
func (a *App) InstallUpdate(url string) error {
	return updater.ApplyUpdate(url)
}

// TempName returns a sibling temp path for path, recognizable by
// isTempFile so stale ones can be swept up.
func TempName(path string) string {
	dir, name := filepath.Split(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, fmt.Sprintf("%s_tmp_%s.mp4", base, uuid.NewString()))
}

// isTempFile recognizes temp files produced by TempName.
func isTempFile(path string) bool {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".mp4") {
		return false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".mp4"), "_tmp_")
	if len(parts) != 2 {
		return false
	}
	_, err := uuid.Parse(parts[1])
	return err == nil
}

func isMP4(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp4")
}

// trackFolder remembers a folder for shutdown cleanup and sweeps any stale
// temp files already in it.
func (a *App) trackFolder(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	a.visitedFoldersMu.Lock()
	a.visitedFolders[abs] = true
	a.visitedFoldersMu.Unlock()

	a.cleanupTempFilesInDir(abs)
}

func (a *App) cleanupTempFilesInDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", dir).Msg("cleanup: cannot read dir")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if !isTempFile(full) {
			continue
		}
		if err := os.Remove(full); err != nil {
			a.log.Warn().Err(err).Str("path", full).Msg("cleanup: remove failed")
		} else {
			a.log.Debug().Str("path", full).Msg("cleanup: removed temp file")
		}
	}
}

func (a *App) cleanupAllVisitedFolders() {
	a.visitedFoldersMu.Lock()
	defer a.visitedFoldersMu.Unlock()

	for folder := range a.visitedFolders {
		a.cleanupTempFilesInDir(folder)
	}
}
