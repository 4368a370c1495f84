package main

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"github.com/quantrig/quantrig/pkg/store"
)

//go:embed all:frontend/dist
var assets embed.FS

// defaultStrategiesDir returns ~/.quantrig/strategies, falling back to the
// working directory when the home directory is unknown.
func defaultStrategiesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "strategies"
	}
	return filepath.Join(home, ".quantrig", "strategies")
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	st, err := store.New(defaultStrategiesDir(), log)
	if err != nil {
		log.Fatal("strategy store init failed", zap.Error(err))
	}

	app := NewApp(st, log)

	// The library watcher lets the frontend refresh when another process
	// (rigctl, a sync tool) touches the strategies directory.
	watcher, err := st.Watch(func(name string) {
		log.Debug("library changed", zap.String("name", name))
	})
	if err != nil {
		log.Warn("library watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	err = wails.Run(&options.App{
		Title:  "quantrig",
		Width:  1440,
		Height: 900,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatal("wails run failed", zap.Error(err))
	}
}
