//go:build windows

package bridge

import (
	"context"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// setupFileDrop registers the drop handler on Windows. OnFileDrop must not be
// registered until the window is fully up, and the UIPI fix needs a head
// start, so both wait behind the same delay.
func (a *App) setupFileDrop(ctx context.Context) {
	go func() {
		time.Sleep(3 * time.Second)

		runtime.OnFileDrop(ctx, func(x, y int, paths []string) {
			a.log.Debug().Int("x", x).Int("y", y).Strs("paths", paths).Msg("files dropped")
			if len(paths) == 0 {
				a.log.Warn().Msg("drop event carried no paths")
				return
			}
			runtime.EventsEmit(ctx, "files-dropped", paths)
		})

		a.log.Info().Msg("file drop handler registered")
	}()
}
