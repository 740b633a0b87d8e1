//go:build !windows

package bridge

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func (a *App) setupFileDrop(ctx context.Context) {
	runtime.OnFileDrop(ctx, func(x, y int, paths []string) {
		a.log.Debug().Strs("paths", paths).Msg("files dropped")
		runtime.EventsEmit(ctx, "files-dropped", paths)
	})
}
