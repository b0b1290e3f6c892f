// Inventory Core - hardware inventory database
//
// A command-line tool for tracking device types and physical devices with
// transactional serial-number allocation and an append-only history. Command
// output is JSON on stdout; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/ferrolab/inventory-core/migrations"

	"github.com/ferrolab/inventory-core/internal/infrastructure/config"
	"github.com/ferrolab/inventory-core/internal/infrastructure/database"
	"github.com/ferrolab/inventory-core/internal/infrastructure/logging"
	"github.com/ferrolab/inventory-core/internal/infrastructure/mqtt"
	"github.com/ferrolab/inventory-core/internal/inventory"
	"github.com/ferrolab/inventory-core/internal/secrets"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const usage = `Usage: inventory <command> [flags]

Commands:
  add-device-type  Register a device type (part number, manufacturer, serial spec)
  create-device    Create one or more devices of a registered type
  find-device      Search devices by substring filters
  list-history     List the append-only operation history
  gen-secrets      Derive provisioning secrets from the KeePass vault
  version          Print version information

Run 'inventory <command> -h' for command flags.
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		// Machine-readable error surface, mirroring the stdout output shape.
		msg, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(msg))
		os.Exit(1)
	}
}

// run dispatches the subcommand. Separated from main for testability; out
// receives the command's JSON (or text, for gen-secrets) output.
func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add-device-type":
		return runAddDeviceType(ctx, rest, out)
	case "create-device":
		return runCreateDevice(ctx, rest, out)
	case "find-device":
		return runFindDevice(ctx, rest, out)
	case "list-history":
		return runListHistory(ctx, rest, out)
	case "gen-secrets":
		return runGenSecrets(rest, out)
	case "version":
		fmt.Fprintf(out, "inventory %s (commit %s, built %s)\n", version, commit, date)
		return nil
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// commonFlags are shared by every database-backed subcommand.
type commonFlags struct {
	configPath string
	dbPath     string
}

func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", getConfigPath(), "path to config file")
	fs.StringVar(&c.dbPath, "db", "", "database file (overrides config)")
	return c
}

// getConfigPath returns the configuration file path.
// Uses the INVENTORY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INVENTORY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openService loads config, opens and migrates the database, and wires the
// optional event feed. The returned cleanup closes everything in reverse
// order.
func openService(ctx context.Context, c *commonFlags) (*inventory.Service, *config.Config, func(), error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}

	log := logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	svc := inventory.New(db)
	svc.SetLogger(log)

	var events *mqtt.Client
	if cfg.Events.Enabled {
		events, err = mqtt.Connect(cfg.Events)
		if err != nil {
			// The mutation matters more than its notification.
			log.Warn("event feed unavailable", "error", err)
		} else {
			svc.SetEventPublisher(events)
		}
	}

	cleanup := func() {
		if events != nil {
			if err := events.Close(); err != nil {
				log.Error("closing event feed", "error", err)
			}
		}
		if err := db.Close(); err != nil {
			log.Error("closing database", "error", err)
		}
	}
	return svc, cfg, cleanup, nil
}

// attrFlags collects repeated --attribute flags of the form
// "name" or "name:multiplicity".
type attrFlags []inventory.AttributeDecl

func (a *attrFlags) String() string {
	names := make([]string, len(*a))
	for i, d := range *a {
		names[i] = d.Name
	}
	return strings.Join(names, ",")
}

func (a *attrFlags) Set(value string) error {
	name, multiplicity, _ := strings.Cut(value, ":")
	if name == "" {
		return fmt.Errorf("attribute name is required")
	}
	if multiplicity == "" {
		multiplicity = "one"
	}
	*a = append(*a, inventory.AttributeDecl{Name: name, Multiplicity: multiplicity})
	return nil
}

func runAddDeviceType(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add-device-type", flag.ContinueOnError)
	common := registerCommonFlags(fs)
	partNumber := fs.String("part-number", "", "part number (required, unique)")
	manufacturer := fs.String("manufacturer", "", "manufacturer name (required)")
	model := fs.String("model", "", "model name")
	descriptor := fs.String("descriptor", "", "free-form description")
	serialSpec := fs.String("serial-spec", "", "serial template, e.g. SN-{4}")
	var attrs attrFlags
	fs.Var(&attrs, "attribute", "attribute declaration name[:multiplicity], repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, _, cleanup, err := openService(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	dt, err := svc.RegisterDeviceType(ctx, inventory.RegisterDeviceTypeInput{
		PartNumber:       *partNumber,
		ManufacturerName: *manufacturer,
		Model:            *model,
		Descriptor:       *descriptor,
		SerialNumberSpec: *serialSpec,
		Attributes:       attrs,
	})
	if err != nil {
		return err
	}

	return writeJSON(out, map[string]string{"device_type_ulid": dt.ULID})
}

func runCreateDevice(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-device", flag.ContinueOnError)
	common := registerCommonFlags(fs)
	partNumber := fs.String("part-number", "", "device type part number (required)")
	serial := fs.String("serial", "", "explicit serial number")
	nextSerial := fs.Bool("next-serial", false, "allocate serials from the type's spec")
	count := fs.Int("count", 1, "number of devices to create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*serial == "") == !*nextSerial {
		return fmt.Errorf("exactly one of --serial or --next-serial is required")
	}

	svc, _, cleanup, err := openService(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	created, err := svc.CreateDevices(ctx, inventory.CreateDevicesInput{
		PartNumber:   *partNumber,
		SerialNumber: *serial,
		Count:        *count,
	})
	if err != nil {
		return err
	}

	return writeJSON(out, map[string]any{"created": created})
}

func runFindDevice(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("find-device", flag.ContinueOnError)
	common := registerCommonFlags(fs)
	serial := fs.String("serial", "", "substring of the serial number")
	partNumber := fs.String("part-number", "", "substring of the part number")
	model := fs.String("model", "", "substring of the type's model")
	manufacturer := fs.String("manufacturer", "", "substring of the manufacturer name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, _, cleanup, err := openService(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	devices, err := svc.FindDevices(ctx, inventory.DeviceFilter{
		SerialNumber:     *serial,
		PartNumber:       *partNumber,
		Model:            *model,
		ManufacturerName: *manufacturer,
	})
	if err != nil {
		return err
	}

	return writeJSON(out, map[string]any{"devices": devices})
}

func runListHistory(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list-history", flag.ContinueOnError)
	common := registerCommonFlags(fs)
	entity := fs.String("entity", "", "filter by entity ULID")
	operation := fs.String("operation", "", "filter by operation tag")
	limit := fs.Int("limit", 50, "maximum entries to return")
	offset := fs.Int("offset", 0, "pagination offset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, _, cleanup, err := openService(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := svc.ListHistory(ctx, inventory.HistoryFilter{
		EntityULID: *entity,
		Operation:  *operation,
		Limit:      *limit,
		Offset:     *offset,
	})
	if err != nil {
		return err
	}

	return writeJSON(out, map[string]any{"entries": entries})
}

func runGenSecrets(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("gen-secrets", flag.ContinueOnError)
	common := registerCommonFlags(fs)
	product := fs.String("product", os.Getenv("PRODUCT"), "product name (or PRODUCT env var)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *product == "" {
		return fmt.Errorf("missing --product")
	}

	vaultPath := os.Getenv("KEEPASS_DATABASE")
	vaultPassword := os.Getenv("KEEPASS_PASSWORD")
	if vaultPath == "" || vaultPassword == "" {
		return fmt.Errorf("missing KEEPASS_DATABASE or KEEPASS_PASSWORD")
	}

	cfg, err := config.Load(common.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	vault, err := secrets.Open(vaultPath, vaultPassword)
	if err != nil {
		return err
	}

	kvs, err := secrets.Compile(vault, cfg.Vault.DeviceGroup, cfg.Vault.NetworkGroup, *product, cfg.Vault.Networks)
	if err != nil {
		return err
	}
	if err := vault.Save(); err != nil {
		return err
	}

	return secrets.Render(out, *product, vaultPath, kvs)
}

// writeJSON emits one JSON document on the command's output stream.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
