// ABOUTME: Entry point for the courier proactive messaging relay
// ABOUTME: Hosts the webhook server and offers store maintenance subcommands

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/courierbot/courier/internal/adapter"
	"github.com/courierbot/courier/internal/bot"
	"github.com/courierbot/courier/internal/config"
	"github.com/courierbot/courier/internal/dispatch"
	"github.com/courierbot/courier/internal/refstore"
	"github.com/courierbot/courier/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      _
  ___ ___  _   _ _ __(_) ___ _ __
 / __/ _ \| | | | '__| |/ _ \ '__|
| (_| (_) | |_| | |  | |  __/ |
 \___\___/ \__,_|_|  |_|\___|_|
`

// getConfigPath returns the path to the courier config file.
// Priority: COURIER_CONFIG env var > XDG_CONFIG_HOME/courier/courier.yaml > ~/.config/courier/courier.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COURIER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "courier.yaml" // fallback
		}
		configDir = homeDir + "/.config"
	}

	return configDir + "/courier/courier.yaml"
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "conversations":
		err = runConversations(ctx)
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "migrate":
		err = runMigrate(ctx, os.Args[2:])
	case "status":
		err = runStatus(ctx)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: courier <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  serve            Start the webhook and admin server")
	fmt.Println("  conversations    List stored conversation references")
	fmt.Println("  export [path]    Export references to a legacy JSON file")
	fmt.Println("  migrate [path]   Import references from a legacy JSON file")
	fmt.Println("  status           Show storage engine diagnostics")
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

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Storage: %s\n", cfg.Storage.Backend)
	fmt.Println()

	logger.Info("starting courier",
		"config", configPath,
		"addr", cfg.Server.Addr,
		"backend", cfg.Storage.Backend,
	)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	connector := adapter.NewConnector(cfg.Bot.AppID, cfg.Bot.AppPassword)
	d := dispatch.New(store, connector, cfg.Broadcast.Workers)
	b := bot.New(store, connector)

	return server.New(cfg, store, d, b).Run(ctx)
}

func runConversations(ctx context.Context) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	refs, err := store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if len(refs) == 0 {
		fmt.Println("No conversation references stored.")
		return nil
	}

	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONVERSATION\tUSER\tCHANNEL\tSERVICE URL")
	for _, id := range ids {
		ref := refs[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, ref.User.Name, ref.ChannelID, ref.ServiceURL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("\n%d reference(s) in %s storage\n", len(refs), cfg.Storage.Backend)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	path := "conversation_references.json"
	if len(args) > 0 {
		path = args[0]
	}

	_, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := refstore.ExportToFile(ctx, store, path)
	if err != nil {
		return fmt.Errorf("exporting references: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Exported %d reference(s) to %s\n", count, path)
	return nil
}

func runMigrate(ctx context.Context, args []string) error {
	path := "conversation_references.json"
	if len(args) > 0 {
		path = args[0]
	}

	_, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := refstore.MigrateFromFile(ctx, store, path)
	if err != nil {
		return fmt.Errorf("migrating references: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Migrated %d reference(s) from %s\n", count, path)
	return nil
}

func runStatus(ctx context.Context) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.Diagnostics(ctx)
	if err != nil {
		return fmt.Errorf("querying diagnostics: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("  Storage Status")
	cyan.Println("  --------------")
	fmt.Printf("  Backend:  %s\n", cfg.Storage.Backend)
	fmt.Printf("  Engine:   %s\n", status.Engine)
	if status.Version != "" {
		fmt.Printf("  Version:  %s\n", status.Version)
	}
	if status.UsedMemory != "" {
		fmt.Printf("  Memory:   %s\n", status.UsedMemory)
	}
	if status.ConnectedClients > 0 {
		fmt.Printf("  Clients:  %d\n", status.ConnectedClients)
	}
	fmt.Printf("  Records:  %d\n", status.TotalRecords)
	return nil
}

// loadStore loads the config and opens the configured store backend.
func loadStore() (*config.Config, refstore.Store, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return cfg, store, nil
}

// openStore creates the reference store named by storage.backend.
func openStore(cfg *config.Config) (refstore.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		return refstore.NewRedisStore(refstore.RedisOptions{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
			Timeout:   cfg.Storage.Redis.Timeout,
		})
	case config.BackendFile:
		return refstore.NewFileStore(cfg.Storage.File.Path)
	case config.BackendSQLite:
		return refstore.NewSQLiteStore(cfg.Storage.SQLite.Path)
	case config.BackendMemory:
		return refstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
