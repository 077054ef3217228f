package main

import (
	"context"
	"flag"
	"log"

	"github.com/mogaika/scene_browser/config"
	"github.com/mogaika/scene_browser/fetch"
	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/status"
	"github.com/mogaika/scene_browser/web"
	"github.com/mogaika/scene_browser/webutils"
)

func main() {
	var addr, sceneURL, configPath, texturePath, encoding, logMode, webPath string
	var watch bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&sceneURL, "scene", "", "Path or url of the scene json")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&texturePath, "texturepath", "", "Prefix for relative media urls, derived from the scene url when empty")
	flag.StringVar(&encoding, "encoding", "", "Text encoding of scene documents")
	flag.StringVar(&logMode, "log", "dev", "Log mode: dev, debug or prod")
	flag.BoolVar(&watch, "watch", false, "Reload the scene when the file changes")
	flag.StringVar(&webPath, "web", "", "Directory with static frontend files")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	}
	// explicit flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.Addr = addr
		case "scene":
			cfg.Scene = sceneURL
		case "texturepath":
			cfg.TexturePath = texturePath
		case "encoding":
			cfg.Encoding = encoding
		case "log":
			cfg.LogMode = logMode
		case "watch":
			cfg.Watch = watch
		}
	})

	if err := config.SetEncoding(cfg.Encoding); err != nil {
		log.Fatal(err)
	}

	l, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Sync()

	status.SetLogger(l)
	webutils.SetLogger(l)

	f := fetch.New(cfg.Media, l)
	loader := scene.NewLoader(
		scene.WithFetcher(f),
		scene.WithMediaFetcher(f),
		scene.WithLogger(l.Component("loader")),
		scene.WithTexturePath(cfg.TexturePath),
		scene.WithCrossOrigin(cfg.CrossOrigin),
		scene.WithSubscriber(status.MediaEvent),
		scene.WithDeferredHandler(func(ctx context.Context, req object.DeferredRequest) {
			l.Info("deferred block", "uuid", req.Record.UUID, "parent", req.Parent.Object().UUID)
		}),
	)

	b := web.NewBrowser(loader, cfg.Scene, l)
	ctx := context.Background()
	if cfg.Scene != "" {
		if err := b.Reload(ctx); err != nil {
			l.Error("initial load failed", "err", err)
		}
		if cfg.Watch {
			if err := b.Watch(ctx); err != nil {
				l.Warn("watch disabled", "err", err)
			}
		}
	}

	if err := web.StartServer(cfg.Addr, b, webPath); err != nil {
		l.Fatal("server stopped", "err", err)
	}
}
