package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/user"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"construct-chat/internal/config"
	"construct-chat/internal/db"
	"construct-chat/internal/llm"
	"construct-chat/internal/orchestrator"
	"construct-chat/internal/session"
)

func main() {
	var (
		configFile string
		name       string
		logFile    string
	)

	root := &cobra.Command{
		Use:   "construct-tui",
		Short: "Chat with the active personas from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, name, logFile)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	root.Flags().StringVar(&name, "name", defaultUserName(), "name the personas address you by")
	root.Flags().StringVar(&logFile, "log", "construct-tui.log", "file that receives log output")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "construct-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, name, logFile string) error {
	// Logging would corrupt the terminal UI
	f, err := tea.LogToFile(logFile, "construct-tui")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Failed to load .env: %v", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return err
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	store := db.NewStore(database)
	sess, err := session.Load(database)
	if err != nil {
		return err
	}
	if err := sess.RegisterChannel(localSurfaceID, ""); err != nil {
		return err
	}

	dispatcher := llm.NewDispatcher(sess,
		llm.WithHordeURL(cfg.HordeURL),
		llm.WithPollInterval(cfg.HordePollInterval),
		llm.WithPollTimeout(cfg.HordePollTimeout),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	orch := orchestrator.New(sess, store, dispatcher)

	var program *tea.Program
	surface := teaSurface{send: func(msg tea.Msg) { program.Send(msg) }}
	program = tea.NewProgram(newModel(ctx, orch, surface, name), tea.WithAltScreen())

	log.Printf("[TUI] Starting user=%s active=%d", name, len(sess.ActiveConstructs()))
	_, err = program.Run()
	return err
}

func defaultUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "You"
}
