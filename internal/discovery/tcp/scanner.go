// 📁 internal/discovery/tcp/scanner.go - TCP Probe Scanner Implementation
package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/model"
)

// ScannerType is the name the scanner registers under
const ScannerType = "tcp"

// maxRangeHosts bounds how many addresses a single CIDR range may expand to
const maxRangeHosts = 1024

// Config for TCP scanner
type Config struct {
	Targets     []string      `mapstructure:"targets"` // hosts, host:port or CIDR ranges
	Port        int           `mapstructure:"port"`
	ConnTimeout time.Duration `mapstructure:"connection_timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// Scanner probes configured hosts for an open raw printing port. It finds
// printers on networks where broadcast does not reach.
type Scanner struct {
	logger     *zap.Logger
	config     Config
	identifier discovery.Identifier
}

// NewScanner creates a new TCP scanner
func NewScanner(config Config, identifier discovery.Identifier, logger *zap.Logger) *Scanner {
	if config.Port == 0 {
		config.Port = model.DefaultRawPort
	}
	if config.ConnTimeout <= 0 {
		config.ConnTimeout = time.Second
	}
	if config.Concurrency < 1 {
		config.Concurrency = 16
	}

	return &Scanner{
		logger:     logger.With(zap.String("scanner", ScannerType)),
		config:     config,
		identifier: identifier,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return ScannerType
}

// IsAvailable reports whether any targets are configured
func (s *Scanner) IsAvailable() bool {
	return len(s.config.Targets) > 0
}

// Scan performs TCP network device discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	endpoints, err := expandTargets(s.config.Targets, s.config.Port)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting TCP probe scan", zap.Int("endpoints", len(endpoints)))

	var (
		mu         sync.Mutex
		discovered []*discovery.DiscoveredDevice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, ep := range endpoints {
		g.Go(func() error {
			elapsed, ok := s.probe(gctx, ep)
			if !ok {
				return nil
			}
			mu.Lock()
			discovered = append(discovered, &discovery.DiscoveredDevice{
				Host:         ep.host,
				Port:         ep.port,
				Responses:    1,
				ResponseTime: elapsed,
				Scanner:      ScannerType,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	discovered = discovery.Deduplicate(discovered)
	discovery.IdentifyAll(ctx, s.identifier, discovered, s.config.Concurrency, s.config.ConnTimeout, s.logger)

	s.logger.Info("TCP scan completed", zap.Int("devices_found", len(discovered)))
	return discovered, ctx.Err()
}

func (s *Scanner) probe(ctx context.Context, ep endpoint) (time.Duration, bool) {
	dialer := net.Dialer{Timeout: s.config.ConnTimeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ep.host, strconv.Itoa(ep.port)))
	if err != nil {
		return 0, false
	}
	conn.Close()
	return time.Since(start), true
}

type endpoint struct {
	host string
	port int
}

// expandTargets turns hosts, host:port pairs and CIDR ranges into probe
// endpoints. Network and broadcast addresses of IPv4 ranges are skipped.
func expandTargets(targets []string, defaultPort int) ([]endpoint, error) {
	var out []endpoint
	for _, target := range targets {
		if prefix, err := netip.ParsePrefix(target); err == nil {
			hosts, err := expandPrefix(prefix)
			if err != nil {
				return nil, err
			}
			for _, h := range hosts {
				out = append(out, endpoint{host: h, port: defaultPort})
			}
			continue
		}

		host, portStr, err := net.SplitHostPort(target)
		if err != nil {
			out = append(out, endpoint{host: target, port: defaultPort})
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port in target %q", target)
		}
		out = append(out, endpoint{host: host, port: port})
	}
	return out, nil
}

func expandPrefix(prefix netip.Prefix) ([]string, error) {
	prefix = prefix.Masked()
	bits := prefix.Addr().BitLen() - prefix.Bits()
	if bits > 10 {
		return nil, fmt.Errorf("range %s exceeds %d hosts", prefix, maxRangeHosts)
	}

	var hosts []string
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		hosts = append(hosts, addr.String())
	}

	if prefix.Addr().Is4() && len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}
