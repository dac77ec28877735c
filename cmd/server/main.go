package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"construct-chat/internal/api"
	"construct-chat/internal/config"
	"construct-chat/internal/db"
	"construct-chat/internal/discord"
	"construct-chat/internal/imagegen"
	"construct-chat/internal/llm"
	"construct-chat/internal/orchestrator"
	"construct-chat/internal/session"
)

func main() {
	var (
		configFile string
		port       string
	)

	root := &cobra.Command{
		Use:   "construct-chat",
		Short: "Multi-persona chat bot for Discord and the web",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, port)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	root.Flags().StringVar(&port, "port", "", "HTTP port, overrides PORT")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, configFile, port string) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Failed to load .env: %v", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	log.Println("Database migrated successfully")

	store := db.NewStore(database)
	seedConstructs(store, cfg.SettingsDir)

	sess, err := session.Load(database)
	if err != nil {
		return err
	}
	if sess.Discord().Token == "" && cfg.Discord.Token != "" {
		if err := sess.SetDiscord(session.DiscordCredentials{Token: cfg.Discord.Token, AppID: cfg.Discord.AppID}); err != nil {
			log.Printf("Warning: Failed to store Discord credentials: %v", err)
		}
	}

	dispatcher := llm.NewDispatcher(sess,
		llm.WithHordeURL(cfg.HordeURL),
		llm.WithPollInterval(cfg.HordePollInterval),
		llm.WithPollTimeout(cfg.HordePollTimeout),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)

	broadcaster := api.NewEventBroadcaster()
	orch := orchestrator.New(sess, store, dispatcher,
		orchestrator.WithMessageHook(broadcaster.PublishMessage),
	)

	var bot *discord.Bot
	var primary api.PrimarySetter
	if creds := sess.Discord(); creds.Token != "" {
		bot, err = discord.New(creds.Token, creds.AppID, sess, store, orch)
		if err != nil {
			return err
		}
		primary = bot
	} else {
		log.Println("Warning: Discord token not configured, bot disabled")
	}

	router := api.NewRouter(api.Services{
		Store:        store,
		Session:      sess,
		Orchestrator: orch,
		Broadcaster:  broadcaster,
		Status:       dispatcher,
		Images:       imagegen.NewClient(),
		Primary:      primary,
		StaticDir:    cfg.StaticDir,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.Port)
		log.Printf("Static files served from: %s", cfg.StaticDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			if err := bot.Open(gctx); err != nil {
				return err
			}
			log.Println("Discord bot connected")
			<-gctx.Done()
			return bot.Close()
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Server is shutting down...")

		// Shutdown HTTP server with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server stopped gracefully")
	return nil
}

// seedConstructs stores the personas found in the settings directory. Ids
// already present are left alone so edits made through the API survive.
func seedConstructs(store *db.Store, settingsDir string) {
	seeds, err := config.LoadConstructSeeds(filepath.Join(settingsDir, "constructs"))
	if err != nil {
		log.Printf("Warning: Failed to load construct seeds: %v", err)
		return
	}
	added := 0
	for _, c := range seeds {
		if _, err := store.Constructs.Put(c.ID, c); err != nil {
			if !errors.Is(err, db.ErrConflict) {
				log.Printf("Warning: Failed to seed construct id=%s err=%v", c.ID, err)
			}
			continue
		}
		added++
	}
	log.Printf("Construct seeds loaded total=%d added=%d", len(seeds), added)
}
