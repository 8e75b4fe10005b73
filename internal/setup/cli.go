package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// DryRun performs one full load without publishing it anywhere.
type DryRun func(ctx context.Context) (*domain.Snapshot, error)

// CLI provides command-line interface for setup operations.
type CLI struct {
	configManager domain.ConfigManager
	dryRun        DryRun
	out           io.Writer
}

// NewCLI creates a new setup CLI instance.
func NewCLI(configManager domain.ConfigManager, dryRun DryRun, out io.Writer) *CLI {
	return &CLI{
		configManager: configManager,
		dryRun:        dryRun,
		out:           out,
	}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate(ctx)
	case "init":
		return c.initDataDir()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

// showHelp displays usage information.
func (c *CLI) showHelp() error {
	help := `
Provider Quality Engine Setup

Usage:
  <binary> check <command>

Commands:
  status    Show configured input files and whether they exist
  validate  Validate configuration and run one load without serving it
  init      Create the data directory for the export database
`
	fmt.Fprintln(c.out, help)
	return nil
}

// showStatus displays the current setup status.
func (c *CLI) showStatus() error {
	status := Inspect(c.configManager.GetConfig())

	fmt.Fprintln(c.out, "Provider Quality Engine Status")
	fmt.Fprintln(c.out, "==============================")
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Inputs:")
	for _, in := range status.Inputs {
		mark := "✗ missing"
		if in.Exists {
			mark = "✓ found"
		}
		kind := "optional"
		if in.Required {
			kind = "required"
		}
		fmt.Fprintf(c.out, "  %s (%s): %s [%s]\n", in.Name, kind, in.Path, mark)
	}
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Export database:")
	fmt.Fprintf(c.out, "  Path: %s\n", status.ExportDBPath)
	if status.ExportDBExists {
		fmt.Fprintln(c.out, "  Status: ✓ Present")
	} else {
		fmt.Fprintln(c.out, "  Status: - Not created yet")
	}
	fmt.Fprintln(c.out)

	c.printList("Warnings", status.Warnings)
	c.printList("Issues", status.Issues)
	return nil
}

// validate checks the configuration and, when inputs are present, loads them once.
func (c *CLI) validate(ctx context.Context) error {
	fmt.Fprintln(c.out, "Validating configuration...")

	if err := c.configManager.Validate(); err != nil {
		fmt.Fprintf(c.out, "✗ Configuration is invalid: %v\n", err)
		return err
	}

	status := Inspect(c.configManager.GetConfig())
	c.printList("Warnings", status.Warnings)
	if !status.Ready() {
		c.printList("Issues", status.Issues)
		return fmt.Errorf("setup has %d issue(s)", len(status.Issues))
	}

	if c.dryRun == nil {
		fmt.Fprintln(c.out, "✓ Configuration is valid!")
		return nil
	}

	snap, err := c.dryRun(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "✗ Load failed: %v\n", err)
		return err
	}
	fmt.Fprintf(c.out, "✓ Loaded %d records, quality score %.2f\n", snap.Total(), snap.Score.Score)
	return nil
}

// initDataDir creates the data directory.
func (c *CLI) initDataDir() error {
	cfg := c.configManager.GetConfig()
	if err := EnsureDataDir(cfg); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Data directory ready for %s\n", cfg.Export.DBPath)
	return nil
}

func (c *CLI) printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(c.out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(c.out, "  ⚠ %s\n", item)
	}
	fmt.Fprintln(c.out)
}
