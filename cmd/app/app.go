package main

import (
	"fmt"
	"os"

	"github.com/DRSN-tech/storefront-backend/internal/app"
	config "github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
)

// @title			Storefront API
// @version		1.0
// @description	Оформление заказов и приём уведомлений об оплате.
// @BasePath		/api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Service, cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		_ = log.Sync()
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		_ = log.Sync()
		os.Exit(1)
	}
}
