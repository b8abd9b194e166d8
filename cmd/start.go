package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"guild-backup/core/loader"
	"guild-backup/core/logger"
	"guild-backup/core/metrics"
	"guild-backup/core/middleware/auth"
	"guild-backup/core/middleware/rayid"
	"guild-backup/feature/backup"
	"guild-backup/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "guild-backup/docs/swagger"
)

// @title Guild Backup API
// @version 1.0
// @description API for creating, previewing and loading guild backups.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the backup HTTP server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := bootstrap(context.Background(), false)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		logg := rt.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager()
		if rt.service != nil {
			mgr.Register(backup.NewFeature(rt.service))
			mgr.Register(integrity.NewFeature(rt.audit))
		}

		// RayID first so every later log line carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)

		public := []string{}
		if path := rt.cfg.Server.MetricsPath; path != "" {
			handler := metrics.Handler(rt.registry)
			app.Get(path, func(c *fiber.Ctx) error {
				handler(c.Context())
				return nil
			})
			public = append(public, path)
		}

		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey, Skip: public}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("addr", rt.cfg.Server.Addr()))
			if err := app.Listen(rt.cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
