package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/chrissnell/remoteweather-lightning/internal/managers"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
)

func main() {
	var (
		yamlFile     = flag.String("config", "", "Path to YAML configuration file")
		checkStorage = flag.Bool("check-storage", false, "Open the configured data-binding and verify the strike table schema")
	)
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config <config.yaml> [-check-storage]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Test")
	fmt.Println("==================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	provider := config.NewYAMLProvider(*yamlFile)
	cfg, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration is valid")

	l := cfg.Lightning
	fmt.Println("\nLightning sensor:")
	fmt.Printf("  name:         %s\n", l.Name)
	fmt.Printf("  i2c:          bus %d, address 0x%02x\n", l.Bus, l.Address)
	fmt.Printf("  indoors:      %v\n", l.Indoors)
	fmt.Printf("  noise floor:  %d\n", l.NoiseFloor)
	fmt.Printf("  calibration:  0x%02x\n", l.Calibration)
	fmt.Printf("  irq pin:      GPIO%d\n", l.Pin)
	fmt.Printf("  binding:      %s\n", l.Binding)
	if l.DataBinding == "" {
		fmt.Println("  data-binding: (none, strikes are not archived)")
	} else {
		fmt.Printf("  data-binding: %s\n", l.DataBinding)
	}

	e := cfg.Engine
	fmt.Println("\nEngine:")
	fmt.Printf("  station:      %s\n", e.StationName)
	fmt.Printf("  unit system:  %s\n", e.UnitSystem)
	fmt.Printf("  loop:         %v\n", e.LoopInterval)
	fmt.Printf("  archive:      %v\n", e.ArchiveInterval)

	names := make([]string, 0, len(cfg.Storage.Bindings))
	for name := range cfg.Storage.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("\nStorage bindings: %d\n", len(names))
	for _, name := range names {
		b := cfg.Storage.Bindings[name]
		fmt.Printf("  %s: %s (table %s)\n", name, b.Backend, b.Table)
	}

	fmt.Printf("\nControllers: %d\n", len(cfg.Controllers))
	for _, c := range cfg.Controllers {
		if c.RESTServer != nil && c.RESTServer.Port != 0 {
			fmt.Printf("  %s on %s:%d\n", c.Type, c.RESTServer.ListenAddr, c.RESTServer.Port)
		} else {
			fmt.Printf("  %s (disabled)\n", c.Type)
		}
	}

	if !*checkStorage {
		return
	}

	fmt.Println("\nChecking storage:")
	rec, err := managers.NewRecorder(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	if rec == nil {
		fmt.Println("  nothing to check")
		return
	}
	if err := rec.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ error closing storage: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Strike table schema matches")
}
