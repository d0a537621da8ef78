// cmd/discover/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/discovery/serial"
	"escpos-bridge/internal/discovery/snmp"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/utils"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "configuration file")
	window := pflag.DurationP("window", "w", 0, "how long to collect broadcast replies")
	broadcast := pflag.StringP("broadcast", "b", "", "broadcast address, host:port")
	targets := pflag.StringSliceP("tcp", "t", nil, "also probe these hosts or CIDR ranges on port 9100")
	asJSON := pflag.Bool("json", false, "print the discovery report as JSON")
	listSerial := pflag.Bool("serial", false, "list local serial ports instead of scanning the network")
	verbose := pflag.BoolP("verbose", "v", false, "log scanner activity")
	pflag.Parse()

	if err := run(*configPath, *window, *broadcast, *targets, *asJSON, *listSerial, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, window time.Duration, broadcast string, targets []string, asJSON, listSerial, verbose bool) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	cfg.Logging.Output = "stderr"
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "warn"
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer utils.CloseLogger(logger)

	if listSerial {
		ports, err := serial.NewLister(nil, logger).ListPorts()
		if err != nil {
			return err
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return nil
	}

	cfg.Discovery.Enabled = true
	if window > 0 {
		cfg.Discovery.Window = window
	}
	if broadcast != "" {
		cfg.Discovery.BroadcastAddress = broadcast
	}
	if len(targets) > 0 {
		cfg.Discovery.TCPTargets = targets
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identifier := snmp.NewIdentifier(service.SNMPConfig(cfg), logger)
	reg := registry.New(logger)
	ds := service.NewDiscoveryService(
		cfg,
		service.NewScannerManager(cfg, identifier, logger),
		identifier,
		reg,
		profile.NewDatabase(),
		protocol.NewFactory(service.TransportOptions(cfg), logger),
		nil,
		nil,
		logger,
	)

	report, err := ds.DiscoverOnce(ctx)
	if err != nil {
		return err
	}
	for _, msg := range report.Errors {
		logger.Warn("Scanner error", zap.String("error", msg))
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printers := reg.List()
	if len(printers) == 0 {
		fmt.Println("no printers found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENDPOINT\tMODEL\tNAME\tDESCRIPTION")
	for _, p := range printers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Endpoint(), p.Model, p.Name, p.Description)
	}
	return w.Flush()
}
