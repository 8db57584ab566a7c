package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/compliance"
	"github.com/mktplane/tradecore/internal/alert"
	"github.com/mktplane/tradecore/internal/config"
	"github.com/mktplane/tradecore/internal/metrics"
	"github.com/mktplane/tradecore/registry"
	"github.com/mktplane/tradecore/risk"
	"github.com/mktplane/tradecore/store"
	"github.com/mktplane/tradecore/subscription"
)

// staticDirectory answers compliance ancestor lookups from a fixed table,
// the simplest DirectoryService that satisfies the interface without a
// real directory backend.
type staticDirectory struct {
	parents map[string][]string
}

func (d staticDirectory) LoadParents(account string) ([]string, error) {
	return d.parents[account], nil
}

// logReporter logs every compliance rejection and forwards it to Telegram
// if a notifier is configured.
type logReporter struct {
	notifier *alert.Notifier
	rejects  *prometheus.CounterVec
}

func (r *logReporter) Report(report compliance.ComplianceReport) {
	log.Warn().
		Str("account", report.SubmissionAccount).
		Str("order", string(report.OrderId)).
		Str("rule", report.RuleId).
		Str("schema", report.SchemaName).
		Str("message", report.Message).
		Msg("compliance rejection")
	r.rejects.WithLabelValues(report.SchemaName).Inc()
	if r.notifier != nil {
		r.notifier.NotifyComplianceRejection(report)
	}
}

// riskTrackers guards a per-account map of risk.RiskTransitionTracker and
// implements alert.StatusProvider: RiskStates reports those trackers, while
// TrackedSecurities does not consult the registry and always reports 0.
type riskTrackers struct {
	mu        sync.RWMutex
	byAccount map[string]*risk.RiskTransitionTracker
	registry  *registry.Registry
	gauge     *prometheus.GaugeVec
}

func newRiskTrackers(reg *registry.Registry, gauge *prometheus.GaugeVec) *riskTrackers {
	return &riskTrackers{byAccount: make(map[string]*risk.RiskTransitionTracker), registry: reg, gauge: gauge}
}

func (t *riskTrackers) TrackedSecurities() int {
	return 0
}

func (t *riskTrackers) RiskStates() map[string]risk.RiskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	states := make(map[string]risk.RiskState, len(t.byAccount))
	for account, tracker := range t.byAccount {
		states[account] = risk.RiskState{Type: risk.StateType(tracker.State())}
		t.gauge.WithLabelValues(account).Set(float64(tracker.State()))
	}
	return states
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	reg := registry.NewRegistry(nil)
	historicalStore := store.NewMemoryStore()
	_ = historicalStore

	collectors := metrics.New()
	promRegistry := prometheus.NewRegistry()
	for _, c := range collectors.Collectors() {
		if err := promRegistry.Register(c); err != nil {
			log.Fatal().Err(err).Msg("failed to register metrics collector")
		}
	}

	var notifier *alert.Notifier
	trackers := newRiskTrackers(reg, collectors.RiskState)
	if cfg.TelegramToken != "" {
		n, err := alert.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, trackers)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier unavailable")
		} else {
			notifier = n
			notifier.Start()
		}
	}

	reporter := &logReporter{notifier: notifier, rejects: collectors.ComplianceRejections}
	directory := staticDirectory{parents: map[string][]string{}}
	ruleSet := compliance.NewComplianceRuleSet(directory, reporter)
	_ = ruleSet

	servlet := subscription.NewMarketDataServlet(reg, subscription.EntitlementDatabase{})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	upgrader := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		account := r.URL.Query().Get("account")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		session := subscription.NewSession(conn, account, nil)
		servlet.HandleSessionAccepted(session, nil)
		session.Run()
		servlet.HandleSessionClosed(session)
	})

	server := &http.Server{Addr: fmt.Sprintf(":%s", envOr("HTTP_ADDR", "8080")), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("addr", server.Addr).Msg("tradecore started")

	if notifier != nil {
		notifier.NotifyStartup("live")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Warn().Msg("shutdown signal received")
	if notifier != nil {
		notifier.Stop()
	}
	_ = server.Close()
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
