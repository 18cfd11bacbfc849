// go_apply — personal job-application tracker MCP server.
//
// Watches a mailbox for application confirmations, status updates, and
// employer responses, keeps them as tracked records in SQLite, and
// enriches records with data scraped from the original job postings.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/enrich"
	"github.com/anatolykoptev/go_apply/internal/pipeline/ingest"
	"github.com/anatolykoptev/go_apply/internal/pipeline/mailbox"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
	"github.com/anatolykoptev/go_apply/internal/pipeline/tasks"
	"github.com/anatolykoptev/go_apply/internal/pipeline/vault"
	"github.com/anatolykoptev/go_apply/internal/trackserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	c := pipeline.Config{
		MailHost:       env.Str("MAIL_HOST", ""),
		MailPort:       env.Int("MAIL_PORT", 993),
		MailTLS:        envBool("MAIL_TLS", true),
		MailSkipVerify: envBool("MAIL_SKIP_VERIFY", false),
		MailUsername:   env.Str("MAIL_USERNAME", ""),
		MailFolders:    env.List("MAIL_FOLDERS", "INBOX"),
		LookbackWindow: env.Duration("LOOKBACK_WINDOW", 90*24*time.Hour),
		FetchBatchSize: env.Int("FETCH_BATCH_SIZE", 25),

		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 10*time.Second),
		MaxContentChars: env.Int("MAX_CONTENT_CHARS", 6000),

		EnrichDelay:       env.Duration("ENRICH_DELAY", 700*time.Millisecond),
		EnrichHostDelays:  parseHostDelays(env.Str("ENRICH_HOST_DELAYS", "")),
		EnrichBackoffBase: env.Duration("ENRICH_BACKOFF_BASE", 2*time.Second),
		EnrichMaxFailures: env.Int("ENRICH_MAX_FAILURES", 5),

		JobRetention:         env.Duration("JOB_RETENTION", time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	pipeline.Init(c)
	pipeline.InitCache(env.Str("REDIS_URL", ""),
		env.Duration("CACHE_TTL", 15*time.Minute),
		c.CacheMaxEntries, c.CacheCleanupInterval)

	slog.Info("starting go_apply",
		slog.String("port", mcpPort),
		slog.String("mail_host", c.MailHost),
	)

	records, err := store.Open(env.Str("APPLY_DB_PATH", defaultDBPath()))
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer records.Close()

	creds := mailbox.Credentials{
		Host:       c.MailHost,
		Port:       c.MailPort,
		TLS:        c.MailTLS,
		SkipVerify: c.MailSkipVerify,
		Username:   c.MailUsername,
		Password:   mailPassword(),
	}

	driver := mailbox.NewDriver(nil, c.MailFolders, c.FetchBatchSize)
	enricher := enrich.NewService(records)
	tracker := tasks.NewTracker(c.JobRetention)
	tracker.StartCleanupLoop(5 * time.Minute)

	svc := ingest.NewService(records, driver, enricher, tracker, creds)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_apply",
		Version: version,
	}, nil)

	trackserver.RegisterTools(server, trackserver.Deps{
		Ingest:  svc,
		Records: records,
	})
	slog.Info("tools registered", slog.Int("count", 9))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_apply",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      pipeline.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

// mailPassword resolves the mailbox password: sealed + key takes
// priority, plaintext env is the fallback for local runs.
func mailPassword() string {
	sealed := env.Str("MAIL_PASSWORD_SEALED", "")
	key := env.Str("VAULT_KEY", "")
	if sealed != "" && key != "" {
		v, err := vault.New(key)
		if err != nil {
			slog.Error("vault init failed", slog.Any("error", err))
			os.Exit(1)
		}
		password, err := v.Open(sealed)
		if err != nil {
			slog.Error("mail password unseal failed", slog.Any("error", err))
			os.Exit(1)
		}
		return password
	}
	return env.Str("MAIL_PASSWORD", "")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "go_apply.db"
	}
	return home + "/.go_apply/tracker.db"
}

func envBool(key string, def bool) bool {
	v := env.Str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseHostDelays parses "host=duration,host=duration" overrides, e.g.
// "www.linkedin.com=2s,.indeed.com=1500ms".
func parseHostDelays(s string) map[string]time.Duration {
	if s == "" {
		return nil
	}
	out := make(map[string]time.Duration)
	for _, pair := range strings.Split(s, ",") {
		host, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid host delay, skipped", slog.String("pair", pair))
			continue
		}
		out[host] = d
	}
	return out
}
