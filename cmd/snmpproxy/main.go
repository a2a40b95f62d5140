package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bkochergin/snmp-proxy/internal/config"
	"github.com/bkochergin/snmp-proxy/internal/proxy"
	"github.com/bkochergin/snmp-proxy/internal/routing"
	"github.com/bkochergin/snmp-proxy/internal/stats"
)

func main() {
	// Configuration flags
	port := flag.Int("port", config.DefaultPort, "Ingress UDP port")
	listenAddr := flag.String("listen", config.DefaultListen, "Listen address")
	backendCommunity := flag.String("backend-community", "", "Real SNMP community used toward backends (required)")
	backendTimeout := flag.Int("backend-timeout", config.DefaultBackendTimeoutSec, "Per-attempt backend receive deadline in seconds")
	backendRetries := flag.Int("backend-retries", config.DefaultBackendRetries, "Backend retries after the first attempt")
	cacheTTL := flag.Int("cache-ttl", config.DefaultCacheTTLSec, "Cache entry lifetime and evictor sweep period in seconds")
	routeFile := flag.String("route-file", "", "Path to routes.yaml with static backend routes")
	webPort := flag.String("web-port", config.DefaultWebPort, "Port for the metrics HTTP server (empty disables)")
	statsCron := flag.String("stats-cron", "", "Cron spec for periodic cache stats reports (empty disables)")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg := &config.Config{
		Port:              *port,
		Listen:            *listenAddr,
		BackendCommunity:  *backendCommunity,
		BackendTimeoutSec: *backendTimeout,
		BackendRetries:    *backendRetries,
		CacheTTLSec:       *cacheTTL,
		RouteFile:         *routeFile,
		WebPort:           *webPort,
		StatsCron:         *statsCron,
	}

	if *configFile != "" {
		fileCfg, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Could not load config file: %v", err)
		}
		// Flags given explicitly on the command line override the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "port":
				fileCfg.Port = *port
			case "listen":
				fileCfg.Listen = *listenAddr
			case "backend-community":
				fileCfg.BackendCommunity = *backendCommunity
			case "backend-timeout":
				fileCfg.BackendTimeoutSec = *backendTimeout
			case "backend-retries":
				fileCfg.BackendRetries = *backendRetries
			case "cache-ttl":
				fileCfg.CacheTTLSec = *cacheTTL
			case "route-file":
				fileCfg.RouteFile = *routeFile
			case "web-port":
				fileCfg.WebPort = *webPort
			case "stats-cron":
				fileCfg.StatsCron = *statsCron
			}
		})
		cfg = fileCfg
	}

	if err := cfg.Normalize(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var resolver *routing.Resolver
	if cfg.RouteFile != "" {
		var err error
		resolver, err = routing.LoadFromFile(cfg.RouteFile)
		if err != nil {
			log.Fatalf("Could not load route file: %v", err)
		}
	}

	log.Printf("Starting SNMP proxy")
	log.Printf("Ingress: %s:%d", cfg.Listen, cfg.Port)
	log.Printf("Backend timeout: %ds, retries: %d", cfg.BackendTimeoutSec, cfg.BackendRetries)
	log.Printf("Cache TTL: %ds", cfg.CacheTTLSec)
	if resolver.StaticRoutes() > 0 {
		log.Printf("Static routes: %d", resolver.StaticRoutes())
	}

	p := proxy.New(proxy.Config{
		ListenAddr:       cfg.Listen,
		Port:             cfg.Port,
		BackendCommunity: cfg.BackendCommunity,
		BackendTimeout:   cfg.BackendTimeout(),
		BackendRetries:   cfg.BackendRetries,
		CacheTTL:         cfg.CacheTTL(),
	}, resolver)

	statsManager, err := stats.NewManager(cfg.StatsCron, p.StatsSnapshot)
	if err != nil {
		log.Fatalf("Invalid stats configuration: %v", err)
	}

	proxy.RegisterMetrics()
	if cfg.WebPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})
		go func() {
			log.Printf("Metrics server on http://localhost:%s/metrics", cfg.WebPort)
			if err := http.ListenAndServe(":"+cfg.WebPort, mux); err != nil {
				log.Printf("Warning: metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()

	if err := p.Start(ctx); err != nil {
		log.Fatalf("Failed to start proxy: %v", err)
	}
	statsManager.Start()

	<-ctx.Done()

	log.Printf("Shutting down...")
	statsManager.Stop()
	p.Stop()
	log.Printf("Graceful shutdown complete")
}
