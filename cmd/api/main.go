package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailprobe/internal/cache"
	"mailprobe/internal/lookup"
	"mailprobe/internal/proxy"
	"mailprobe/internal/validator"
)

func main() {
	// 1. Log to stdout and a file so systemd and humans both get a copy.
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "mailprobe.log"
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("❌ Failed to open log file %s: %v", logFile, err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	// 2. Pick the verdict cache backend: Postgres when DB_URL is set, Redis
	// when REDIS_ADDR is set, in-process memory otherwise.
	var store cache.Store
	switch {
	case os.Getenv("DB_URL") != "":
		fmt.Println("🔌 Connecting to Database...")
		pg, err := cache.NewPostgres(context.Background(), os.Getenv("DB_URL"))
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		store = pg
		fmt.Println("✅ Connected to PostgreSQL & Migrations Applied")
	case os.Getenv("REDIS_ADDR") != "":
		fmt.Printf("🔌 Connecting to Redis at %s...\n", os.Getenv("REDIS_ADDR"))
		rd, err := cache.NewRedis(os.Getenv("REDIS_ADDR"))
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		store = rd
		fmt.Println("✅ Connected to Redis Cache")
	default:
		store = cache.NewMemory()
		fmt.Println("⚠️  No DB_URL or REDIS_ADDR set; verdicts are cached in memory only")
	}
	defer store.Close()

	// 3. Initialize the proxy pool for probe egress.
	proxyListRaw := os.Getenv("PROXY_LIST")
	if proxyListRaw != "" {
		proxies := strings.Split(proxyListRaw, ",")

		proxyLimit, err := strconv.Atoi(os.Getenv("PROXY_CONCURRENCY"))
		if err != nil || proxyLimit <= 0 {
			proxyLimit = 0 // proxy.Init applies its own default
		}

		if err := proxy.Init(proxies, proxyLimit); err != nil {
			log.Fatalf("❌ Failed to initialize proxy manager: %v", err)
		}
		fmt.Printf("🛡️  Proxy rotation enabled (%d proxies loaded, max %d concurrent probes)\n",
			len(proxies), cap(proxy.Semaphore))
	} else {
		fmt.Println("✅ Probes route direct from this host (no PROXY_LIST set)")
	}

	// 4. Build the verification pipeline.
	resolver := lookup.NewMXResolver()
	prober := lookup.NewSMTPProber()
	if helo := os.Getenv("HELO_HOST"); helo != "" {
		prober.HeloHost = helo
	}
	if proxy.Enabled() {
		prober.Dial = proxy.Dialer(prober.Timeout)
	}
	svc = validator.NewService(resolver, prober, store)

	apiKey = os.Getenv("API_SECRET_KEY")
	if apiKey == "" {
		fmt.Println("⚠️  API_SECRET_KEY not set; /verify and /bulk-verify are open")
	}

	// 5. Root context for background goroutines. Cancelling it on shutdown
	// stops the cache janitor cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache.StartJanitor(ctx, store, 5*time.Minute)
	fmt.Println("✅ Cache janitor started (interval: 5m)")

	// 6. Define Handlers
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", enableCORS(rateLimit("verify", requireAPIKey(verifyHandler), globalLimiter, verifyLimiter)))
	mux.HandleFunc("/bulk-verify", enableCORS(rateLimit("bulk-verify", requireAPIKey(bulkVerifyHandler), globalLimiter, bulkLimiter)))
	mux.HandleFunc("/info", enableCORS(rateLimit("info", infoHandler, globalLimiter)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", http.FileServer(http.Dir("./static")))

	// 7. Server Configuration. WriteTimeout has to cover a worst-case bulk
	// batch, which holds the connection open while the pool drains.
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful shutdown on SIGTERM / SIGINT.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		fmt.Printf("🚀 Mailprobe API running on :%s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	<-quit
	fmt.Println("⏳ Shutdown signal received, draining in-flight requests...")

	// Stops the cache janitor and any other background work tied to ctx.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	fmt.Println("✅ Server shut down cleanly.")
}
