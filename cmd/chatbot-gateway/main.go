// ABOUTME: Entry point for chatbot-gateway, the realtime chatbot server
// ABOUTME: Subcommands serve the gateway, write a config, and query a running instance

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/PAVANISAGAR17/student-bot/internal/config"
	"github.com/PAVANISAGAR17/student-bot/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _           _   _           _
   ___| |__   __ _| |_| |__   ___ | |_
  / __| '_ \ / _' | __| '_ \ / _ \| __|
 | (__| | | | (_| | |_| |_) | (_) | |_
  \___|_| |_|\__,_|\__|_.__/ \___/ \__|
`

// getConfigPath returns the path to the gateway config file.
// Priority: CHATBOT_CONFIG env var > XDG_CONFIG_HOME/chatbot/gateway.yaml > ~/.config/chatbot/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHATBOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chatbot", "gateway.yaml")
}

func usage() {
	fmt.Println("Usage: chatbot-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve              Start the gateway server")
	fmt.Println("  init               Write a config file with default values")
	fmt.Println("  health             Check gateway health")
	fmt.Println("  sessions           List sessions with a live stream")
	fmt.Println("  history <session>  Show the logged messages of a session")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env is normal
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "sessions":
		err = runSessions(ctx)
	case "history":
		err = runHistory(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, or the environment alone when no file exists.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
		configPath = "(environment)"
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s", cfg.Database.Driver)
	if cfg.Database.Path != "" {
		gray.Printf(" (%s)", cfg.Database.Path)
	}
	fmt.Println()
	fmt.Println()

	logger.Info("starting chatbot-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"db_driver", cfg.Database.Driver,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("chatbot-gateway configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := strings.ToLower(prompt(reader, "File exists. Overwrite?", "no"))
		if overwrite != "yes" && overwrite != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.Default()
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", cfg.Server.HTTPAddr)
	cfg.Database.Driver = prompt(reader, "Database driver (sqlite/sqlite3/badger/memory)", cfg.Database.Driver)
	if cfg.Database.Driver != "memory" {
		cfg.Database.Path = prompt(reader, "Database path", cfg.Database.Path)
	}
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := config.Encode(outputFile, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Println("  chatbot-gateway serve")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
