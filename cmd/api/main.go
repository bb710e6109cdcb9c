package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fivesquad/pickup-planner-api/internal/adapters/discord"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/httpapi"
	memavailabilityrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/availabilityrepo"
	memcallrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/callrepo"
	memidempotency "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/idempotency"
	memplayerrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/playerrepo"
	memresponserepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/responserepo"
	memrunstaterepo "github.com/fivesquad/pickup-planner-api/internal/adapters/memory/runstaterepo"
	"github.com/fivesquad/pickup-planner-api/internal/adapters/postgres"
	pgavailabilityrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/availabilityrepo"
	pgcallrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/callrepo"
	pgidempotency "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/idempotency"
	pgplayerrepo "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/playerrepo"
	pgresponserepo "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/responserepo"
	pgrunstaterepo "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres/runstaterepo"
	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/app/notify"
	"github.com/fivesquad/pickup-planner-api/internal/app/players"
	"github.com/fivesquad/pickup-planner-api/internal/app/reminder"
	"github.com/fivesquad/pickup-planner-api/internal/app/schedule"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/platform/auth/tokenverifier"
	platformclock "github.com/fivesquad/pickup-planner-api/internal/platform/clock"
	"github.com/fivesquad/pickup-planner-api/internal/platform/config"
	availabilityrepoport "github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
	callrepoport "github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
	idempotencyport "github.com/fivesquad/pickup-planner-api/internal/ports/out/idempotency"
	playerrepoport "github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
	responserepoport "github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
	runstaterepoport "github.com/fivesquad/pickup-planner-api/internal/ports/out/runstaterepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()

	var (
		slotRepo     availabilityrepoport.Repository
		playerRepo   playerrepoport.Repository
		runRepo      runstaterepoport.Repository
		callRepo     callrepoport.Repository
		responseRepo responserepoport.Repository
		idemStore    idempotencyport.Store
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
			log.Fatalf("apply schema: %v", err)
		}

		slotRepo = pgavailabilityrepo.NewRepo(pool)
		playerRepo = pgplayerrepo.NewRepo(pool)
		runRepo = pgrunstaterepo.NewRepo(pool)
		callRepo = pgcallrepo.NewRepo(pool)
		responseRepo = pgresponserepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		slotRepo = memavailabilityrepo.NewRepo()
		playerRepo = memplayerrepo.NewRepo()
		runRepo = memrunstaterepo.NewRepo()
		callRepo = memcallrepo.NewRepo()
		responseRepo = memresponserepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cfg.DiscordBotToken == "" && cfg.DiscordWebhookURL == "" {
		log.Printf("discord delivery not configured, notifications will be dropped")
	}
	dispatcher := notify.NewDispatcher(discord.NewNotifier(discord.Config{
		BotToken:   cfg.DiscordBotToken,
		ChannelID:  cfg.DiscordChannelID,
		WebhookURL: cfg.DiscordWebhookURL,
	}, nil), 0)
	defer dispatcher.Close()

	isAdminID := func(id domain.PlayerID) bool {
		rec, err := playerRepo.GetByID(context.Background(), id)
		if err != nil {
			return false
		}
		return cfg.IsAdminAccount(rec.ProviderAccount)
	}

	schedSvc := schedule.NewService(slotRepo, playerRepo, runRepo, dispatcher, clk, schedule.Config{
		Quorum:    cfg.Quorum,
		RunLength: cfg.RunLength,
		FirstHour: cfg.FirstHour,
		LastHour:  cfg.LastHour,
		AppURL:    cfg.AppURL,
	})
	callsSvc := calls.NewService(callRepo, responseRepo, slotRepo, playerRepo, schedSvc, dispatcher, clk, calls.Config{
		FirstHour: cfg.FirstHour,
		LastHour:  cfg.LastHour,
		AppURL:    cfg.AppURL,
	}, isAdminID)
	playersSvc := players.NewService(playerRepo, clk, isAdminID)
	reminderSvc := reminder.NewService(slotRepo, playerRepo, dispatcher, clk, reminder.Config{
		Quorum:      cfg.Quorum,
		RunLength:   cfg.ReminderRunLength,
		FirstHour:   cfg.FirstHour,
		LastHour:    cfg.LastHour,
		HorizonDays: cfg.HorizonDays,
		AppURL:      cfg.AppURL,
	})

	resolve := func(ctx context.Context, id tokenverifier.Identity) (domain.Player, error) {
		rec, err := playersSvc.Provision(ctx, cfg.Provider, domain.ProviderAccountID(id.Subject), id.Name, id.AvatarURL)
		if err != nil {
			return domain.Player{}, err
		}
		return rec.Domain(), nil
	}

	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		log.Printf("auth in dev mode, identities come from X-Debug-Account")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevAccount, resolve)
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			log.Fatalf("invalid auth config: %v", err)
		}
		authMW = httpapi.NewAuthMiddleware(tokenverifier.New(jwtCfg), resolve)
	}

	api := httpapi.NewServer(schedSvc, callsSvc, playersSvc, reminderSvc,
		func(p domain.Player) bool { return cfg.IsAdminAccount(p.ProviderAccount) },
		idemStore, cfg.InternalSecret)

	opts := httpapi.RouterOptions{Auth: authMW}
	if cfg.DiscordPublicKey != "" {
		key, err := httpapi.DecodeInteractionKey(cfg.DiscordPublicKey)
		if err != nil {
			log.Fatalf("invalid DISCORD_PUBLIC_KEY: %v", err)
		}
		opts.Interactions = httpapi.NewInteractionsHandler(key, cfg.Provider, callsSvc)
	}
	handler := httpapi.NewRouter(api, opts)

	if cfg.ReminderCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.ReminderCron, func() {
			res, err := reminderSvc.Sweep(context.Background())
			if err != nil {
				log.Printf("reminder sweep: %v", err)
				return
			}
			log.Printf("reminder sweep: outcome=%s", res.Outcome)
		}); err != nil {
			log.Fatalf("invalid REMINDER_CRON: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
