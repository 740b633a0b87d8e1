package main

import (
	"embed"
	"net/http"
	"net/url"
	"strings"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/danielgtaylor/qtfaststart/internal/bridge"
)

//go:embed all:frontend/out
var assets embed.FS

// Version is injected at build time.
var Version = "0.0.0"

func main() {
	if Version == "" {
		Version = "0.0.0"
	}
	app := bridge.NewApp(Version)

	err := wails.Run(&options.App{
		Title:  "QuickTime FastStart",
		Width:  1024,
		Height: 768,
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     true,
			DisableWebViewDrop: false,
		},
		AssetServer: &assetserver.Options{
			Assets: assets,
			// Serves local video files for in-app preview. Anything else
			// falls through to the embedded assets on 404.
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path := r.URL.Path
				if strings.HasPrefix(path, "/video/") {
					filePath := strings.TrimPrefix(path, "/video/")
					if decoded, err := url.PathUnescape(filePath); err == nil {
						filePath = decoded
					}
					http.ServeFile(w, r, filePath)
					return
				}
				w.WriteHeader(http.StatusNotFound)
			}),
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        app.Startup,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
