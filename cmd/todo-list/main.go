// ABOUTME: Entry point for the todo-list web application
// ABOUTME: Subcommands to serve the UI, write a config, add accounts and check health

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/config"
	"github.com/2389/todo-list/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _            _             _ _     _
| |_ ___   __| | ___       | (_)___| |_
| __/ _ \ / _' |/ _ \ _____| | / __| __|
| || (_) | (_| | (_) |_____| | \__ \ |_
 \__\___/ \__,_|\___/      |_|_|___/\__|
`

// getConfigPath returns the path to the config file.
// Priority: TODO_CONFIG env var > XDG_CONFIG_HOME/todo-list/config.yaml > ~/.config/todo-list/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TODO_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "todo-list", "config.yaml")
}

// getDataPath returns the path to the data directory.
// Priority: XDG_DATA_HOME/todo-list > ~/.local/share/todo-list
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "todo-list")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: todo-list <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                      Start the web server")
		fmt.Println("  init                       Create a new config file interactively")
		fmt.Println("  useradd --username NAME    Create an account")
		fmt.Println("  health                     Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "useradd":
		err = runUserAdd(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	printStep("Config", configPath)
	printStep("Database", cfg.Database.Driver)
	printStep("Sessions", cfg.Sessions.Backend)
	if cfg.Tailscale.Enabled {
		printStep("Tailscale", cfg.Tailscale.Hostname)
	} else {
		printStep("HTTP", "http://"+cfg.Server.HTTPAddr+cfg.Server.BasePath+"/")
	}
	fmt.Println()

	logger.Info("starting todo-list",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"base_path", cfg.Server.BasePath,
	)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

// runUserAdd creates an account with the same rules as the sign-up page.
// Supports both "--username value" and "--username=value".
func runUserAdd(ctx context.Context, args []string) error {
	var username string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--username" || arg == "-u":
			if i+1 >= len(args) {
				return fmt.Errorf("--username requires a value")
			}
			username = args[i+1]
			i++
		case strings.HasPrefix(arg, "--username="):
			username = strings.TrimPrefix(arg, "--username=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	if username == "" {
		return fmt.Errorf("--username flag is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}))

	reader := bufio.NewReader(os.Stdin)
	password, err := readPassword(reader, "Password")
	if err != nil {
		return err
	}
	confirm, err := readPassword(reader, "Password (again)")
	if err != nil {
		return err
	}

	s, err := server.OpenStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	account, err := auth.NewAccounts(s, cfg.Accounts.BcryptCost).CreateAccount(ctx, username, password, confirm)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			return errors.New("passwords do not match")
		case errors.Is(err, auth.ErrUsernameTaken):
			return fmt.Errorf("login %q is already taken", username)
		default:
			return err
		}
	}

	color.New(color.FgGreen).Printf("  ✓ Created account %s (%s)\n", account.Username, account.ID)
	return nil
}

// readPassword reads a password without echo from a terminal, or a line
// from reader when stdin is piped.
func readPassword(reader *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Printf("%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("todo-list configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	defaultDbPath := filepath.Join(getDataPath(), "todo.db")

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8000")
	basePath := prompt(reader, "Base path", config.DefaultBasePath)

	fmt.Println("\n--- Database Configuration ---")
	driver := prompt(reader, "Driver (sqlite/sqlite3/pgx/mongo)", config.DefaultDriver)
	dsnDefault := defaultDbPath
	switch driver {
	case "pgx":
		dsnDefault = "postgres://localhost:5432/todo_list?sslmode=disable"
	case "mongo":
		dsnDefault = "mongodb://localhost:27017"
	}
	dsn := prompt(reader, "DSN", dsnDefault)

	fmt.Println("\n--- Session Configuration ---")
	backend := prompt(reader, "Session backend (database/redis)", config.DefaultSessionBackend)
	var redisAddr string
	if backend == "redis" {
		redisAddr = prompt(reader, "Redis address", "localhost:6379")
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating session secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(secretBytes)

	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := isYes(prompt(reader, "Enable Tailscale?", "no"))
	var tsHostname, tsAuthKey string
	var tsEphemeral bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "todo")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		tsEphemeral = isYes(prompt(reader, "Ephemeral node?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", config.DefaultLogLevel)
	logFormat := prompt(reader, "Log format (text/json)", config.DefaultLogFormat)

	var cfg strings.Builder
	cfg.WriteString("# todo-list configuration\n")
	cfg.WriteString("# Generated by todo-list init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  base_path: %q\n", basePath))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", driver))
	cfg.WriteString(fmt.Sprintf("  dsn: %q\n", dsn))
	cfg.WriteString("\n")

	cfg.WriteString("sessions:\n")
	cfg.WriteString(fmt.Sprintf("  backend: %q\n", backend))
	cfg.WriteString(fmt.Sprintf("  secret: %q\n", secret))
	cfg.WriteString("  duration: \"336h\"\n")
	if backend == "redis" {
		cfg.WriteString("  redis:\n")
		cfg.WriteString(fmt.Sprintf("    addr: %q\n", redisAddr))
	}
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The file holds the session secret
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if driver == "sqlite" || driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  todo-list serve\n")

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
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}
