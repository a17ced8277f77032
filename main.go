package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refurb-app/config"
	"refurb-app/controllers/idgen"
	"refurb-app/database"
	"refurb-app/logger"
	"refurb-app/middleware"
	"refurb-app/processor"
	"refurb-app/repositories"
	"refurb-app/routes"
	"refurb-app/services/catalog"
	"refurb-app/services/events"
	"refurb-app/services/intake"
	"refurb-app/services/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var unit string

	root := &cobra.Command{
		Use:           "refurb-app",
		Short:         "Goods-in backend for refurbished device purchase orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			logger.NewZapLogger(logger.ForEnv(config.IsDevelopment(), config.LogLevel))
			if unit == "" {
				unit = config.DBUnit
			}
			return idgen.Init(config.SnowflakeNode)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			database.CloseAll()
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().StringVar(&unit, "unit", "", "unit database name (defaults to DB_UNIT)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate the unit database and start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(unit)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create and migrate the unit database",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := database.SetupUnit(unit, false)
				return err
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Migrate and seed reference data into the unit database",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := database.SetupUnit(unit, true)
				return err
			},
		},
		newImportTacCommand(&unit),
	)
	return root
}

func newImportTacCommand(unit *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import-tac",
		Short: "Import pending TAC catalogue CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = config.TacImportDir
			}
			db, err := database.SetupUnit(*unit, false)
			if err != nil {
				return err
			}

			p := processor.New(db, *unit, dir)
			if mailer := newMailer(); mailer != nil {
				p.WithNotifier(mailer)
			}
			results, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			zap.L().Info("tac import finished", zap.String("dir", dir), zap.Int("files", len(results)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "folder holding the CSV drops (defaults to TAC_IMPORT_DIR)")
	return cmd
}

func newMailer() *notify.Mailer {
	return notify.NewSMTPMailer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword, config.SMTPFrom, config.NotifyEmails)
}

func serve(unit string) error {
	log := zap.L()

	if _, err := database.SetupUnit(unit, true); err != nil {
		return err
	}

	policy, err := intake.ParsePolicy(config.OverReceiptPolicy)
	if err != nil {
		return err
	}
	mode, err := intake.ParseMode(config.IntakeDefaultMode)
	if err != nil {
		return err
	}

	models, err := catalog.NewModelCache(config.CatalogCacheSize)
	if err != nil {
		return err
	}
	broker := events.NewBroker()

	hooks := intake.Hooks{OnDeviceAdded: broker.Publish}
	if mailer := newMailer(); mailer != nil {
		hooks.OnFulfilled = mailer.Hook()
	}

	manager := intake.NewManager(
		func(unit string) (intake.Gateway, error) {
			db, err := database.GetDBConnection(unit)
			if err != nil {
				return nil, err
			}
			return repositories.NewIntakeGateway(db), nil
		},
		intake.ManagerConfig{DefaultMode: mode, Policy: policy, TTL: config.IntakeSessionTTL},
		intake.WithHooks(hooks),
		intake.WithCache(models),
		intake.WithLogger(log.Named("intake")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go manager.Run(ctx, sweepInterval)

	app := fiber.New(fiber.Config{AppName: "refurb-app"})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log.Named("http")))
	config.SetupCORS(app)

	routes.SetupRoutes(app, routes.Dependencies{
		Intake: manager,
		Models: models,
		Events: broker,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", config.APP_PORT), zap.String("unit", unit), zap.String("policy", string(policy)))
	return app.Listen(":" + config.APP_PORT)
}
