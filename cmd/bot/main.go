// Package main is the entry point for the VPS bot.
// It initializes all systems, re-arms every pending deadline and starts the
// Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjfrm085feather/vps-bot/internal/commands"
	"github.com/kjfrm085feather/vps-bot/internal/events"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/database"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/lifecycle"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/mqtt"
	"github.com/kjfrm085feather/vps-bot/pkg/provision"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/kjfrm085feather/vps-bot/pkg/scheduler"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
	"github.com/kjfrm085feather/vps-bot/pkg/web"
)

func main() {
	started := time.Now()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(logger.Options{
		Dir:          cfg.LogsDir,
		ErrorWebhook: cfg.ErrorWebhook,
		LogsWebhook:  cfg.LogsWebhook,
	})
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando VPS bot %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})

	// State documents, optionally mirrored to MongoDB
	backend, err := store.NewFileBackend(cfg.DataDir)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error abriendo el directorio de datos: %v", err), "Main")
		os.Exit(1)
	}

	var storeOpts []store.Option
	var mirror *database.SnapshotMirror
	if cfg.MirrorEnabled() {
		db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
		if err != nil {
			// The database reconnects on its own; writes queue until then.
			logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		}
		if db != nil {
			mirror = database.NewMongoMirror(db)
			storeOpts = append(storeOpts, store.WithMirror(mirror))
			defer func() {
				mirror.Close()
				_ = db.Disconnect()
			}()
		}
	}
	st := store.Open(backend, storeOpts...)

	// Registry and deadline scheduler
	sched := scheduler.New(scheduler.Options{})
	defer sched.Stop()

	regOpts := registry.DefaultOptions()
	regOpts.TrialCredits = cfg.TrialCredits
	regOpts.DailyReward = cfg.DailyReward
	regOpts.WeeklyReward = cfg.WeeklyReward
	reg := registry.New(st, nil, regOpts)
	reg.SetDeadlines(sched)

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}
	discordClient.OwnerID = cfg.OwnerID
	discordClient.IsAdmin = reg.IsAdmin

	// MQTT event bus
	engineOpts := lifecycle.Options{
		GiveawayMarker: cfg.GiveawayEmoji,
		PurgeChannelID: cfg.PurgeChannelID,
	}
	var bus *mqtt.Bus
	if cfg.MQTTEnabled() {
		clientID := "vpsbot"
		if !cfg.IsProd() {
			clientID = "vpsbot_canary"
		}
		bus = mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, clientID)
		defer bus.Destroy()
		engineOpts.Events = bus
	}

	// Resolution routines
	engine := lifecycle.New(reg, discord.NewMessenger(discordClient), engineOpts)
	engine.Register(sched)

	// Provisioning workers
	var provisioner provision.Backend = provision.MetadataBackend{}
	if cfg.DockerImage != "" {
		provisioner = provision.NewDockerBackend(cfg.DockerImage)
	}
	pool := provision.NewPool(provisioner, reg, provision.Options{Workers: cfg.ProvisionWorkers})
	reg.SetProvisioner(pool)
	pool.Start()

	svc := &services.Services{
		Config:    cfg,
		Store:     st,
		Registry:  reg,
		Scheduler: sched,
		Engine:    engine,
	}

	// Register commands and events
	commands.RegisterAll(discordClient, svc)
	events.RegisterAll(discordClient, svc)

	// Deadlines persisted before this run. Anything a command arms once the
	// session is open is armed by the registry itself, never by Recover.
	pending := reg.ListPending()

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	// Re-arm everything that was pending when the process stopped
	n := sched.Recover(pending)
	logger.Success(fmt.Sprintf("%d deadlines recuperados", n), "Main")

	// Status API
	webServer := web.Init(web.Options{
		WebhookURL: cfg.LogsWebServerHook,
		RateLimit:  web.DefaultOptions().RateLimit,
	})
	deps := web.Deps{
		Registry: reg,
		Pending:  sched.Pending,
		Bot:      discordClient.IsReady,
		Started:  started,
	}
	if mirror != nil {
		deps.MirrorSync = mirror.LastSync
	}
	if bus != nil {
		deps.MQTT = bus
		bus.On("stats", func(map[string]interface{}) (interface{}, error) {
			return reg.Stats(), nil
		})
		bus.On("purge", func(map[string]interface{}) (interface{}, error) {
			return reg.PurgeInfo(), nil
		})
	}
	web.SetupAPIRoutes(webServer, deps)
	webServer.StartAsync(cfg.Port)

	logger.Success("VPS bot iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando VPS bot...", "Main")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webServer.Shutdown(ctx); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
	}
	if err := discordClient.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión: %v", err), "Main")
	}
	pool.Stop(ctx)
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
