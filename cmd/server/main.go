package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"ledgergate/internal/audit"
	"ledgergate/internal/compliance"
	"ledgergate/internal/compliance/adapters"
	"ledgergate/internal/investor"
	"ledgergate/internal/ledger"
	"ledgergate/internal/locks"
	"ledgergate/internal/platform/config"
	"ledgergate/internal/platform/httpserver"
	"ledgergate/internal/platform/logger"
	"ledgergate/internal/platform/metrics"
	platformredis "ledgergate/internal/platform/redis"
	"ledgergate/internal/relay"
	"ledgergate/internal/storage"
	transport "ledgergate/internal/transport/http"
	"ledgergate/internal/trust"
	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	}

	// Audit: memory store in dev, transactional outbox + Kafka in prod.
	var (
		auditStore audit.Store = audit.NewInMemoryStore()
		outbox     *audit.PostgresStore
	)
	if db != nil {
		outbox = audit.NewPostgresStore(db)
		auditStore = outbox
	}
	publisher := audit.NewPublisher(auditStore, audit.WithLogger(log))

	procMetrics := metrics.New()
	verdictMetrics := compliance.NewMetrics(prometheus.DefaultRegisterer)

	// Stores.
	trustStore := newTrustStore(db)
	investorStore := newInvestorStore(db)
	configStore := compliance.NewInMemoryConfigStore()
	countersStore := compliance.NewInMemoryCountersStore()
	walletStore := newWalletStore(db)
	lockStore := newLockStore(db)
	ledgerStore := newLedgerStore(db)

	// Services, leaf to root.
	var master id.Address
	if cfg.MasterAccount != "" {
		var err error
		master, err = id.ParseAddress(cfg.MasterAccount)
		if err != nil {
			return err
		}
	}
	trustSvc := trust.New(trustStore, trust.WithLogger(log), trust.WithAuditPublisher(publisher))
	if cfg.MasterAccount != "" {
		if err := trustSvc.Bootstrap(ctx, master); err != nil {
			return err
		}
	}

	investorSvc := investor.New(investorStore, trustSvc,
		investor.WithLogger(log), investor.WithAuditPublisher(publisher))
	configSvc := compliance.NewConfigService(configStore, trustSvc,
		compliance.WithConfigLogger(log), compliance.WithConfigAuditPublisher(publisher))
	walletSvc := wallet.New(walletStore, trustSvc,
		wallet.WithLogger(log), wallet.WithAuditPublisher(publisher))

	// The ledger reads locks and the compliance engine, and both of those
	// read balances back from the ledger. The holdings adapter is bound to
	// the ledger service once it exists, before any request is served.
	holdings := &ledgerHoldings{}
	lockSvc := locks.New(lockStore, trustSvc, holdings, investorSvc,
		locks.WithLogger(log), locks.WithAuditPublisher(publisher))

	facts := adapters.NewInvestorFacts(investorSvc, configStore)
	tracker := compliance.NewTracker(countersStore, facts)

	var engine compliance.Engine
	switch cfg.RegulationMode {
	case "notregulated":
		engine = compliance.NewNotRegulatedEngine(lockSvc)
	case "whitelisted":
		engine = compliance.NewGlobalWhitelistedEngine(facts, walletSvc, lockSvc)
	default:
		engine = compliance.NewRegulatedEngine(configStore, countersStore, facts, walletSvc, lockSvc, holdings,
			compliance.WithEngineLogger(log), compliance.WithEngineMetrics(verdictMetrics))
	}

	ledgerSvc := ledger.New(ledgerStore, trustSvc, engine, lockSvc, investorSvc, walletSvc,
		ledger.WithLogger(log),
		ledger.WithMetrics(procMetrics),
		ledger.WithAuditPublisher(publisher),
		ledger.WithHolderTracker(tracker),
		ledger.WithIssuanceLockPolicy(adapters.NewIssuanceLockPolicy(facts, configStore)),
	)
	holdings.svc = ledgerSvc

	exporter := storage.NewExporter(trustStore, investorStore, configStore, countersStore,
		walletStore, lockStore, ledgerStore)

	// Relay: redis nonce store when configured, memory otherwise.
	var nonceStore relay.NonceStore = relay.NewInMemoryNonceStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		nonceStore = relay.NewRedisNonceStore(redisClient)
	}

	// Relayed messages may only target the gateway's own address, which is
	// the master account.
	gateway := master

	// The relay forwards through the operation router, so the router is
	// built first and the relay routes are mounted onto it afterwards.
	handlers := []transport.Registrar{
		transport.NewTrustHandler(trustSvc, log),
		transport.NewInvestorHandler(investorSvc, log),
		transport.NewComplianceHandler(configSvc, engine, tracker, log),
		transport.NewWalletHandler(walletSvc, log),
		transport.NewLocksHandler(lockSvc, log),
		transport.NewLedgerHandler(ledgerSvc, log),
		transport.NewAdminHandler(exporter, trustSvc, log),
	}
	var health []transport.HealthCheck
	if db != nil {
		health = append(health, db.PingContext)
	}
	if redisClient != nil {
		health = append(health, redisClient.Health)
	}
	router := transport.NewRouter([]byte(cfg.JWTSigningKey), health, handlers...)

	relaySvc := relay.New(
		newRelayKeyStore(db),
		nonceStore,
		investorSvc,
		transport.NewRouterForwarder(router),
		trustSvc,
		gateway,
		relay.WithLogger(log),
		relay.WithAuditPublisher(publisher),
	)
	transport.NewRelayHandler(relaySvc, log).Register(router)

	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "server listening", "addr", cfg.Addr, "mode", cfg.RegulationMode)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	// Outbox worker ships audit events to Kafka.
	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		worker := audit.NewWorker(outbox, sink, log)
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// ledgerHoldings adapts the ledger service to the balance-reading ports of
// the lock manager and the compliance engine. svc is assigned right after
// the ledger service is constructed.
type ledgerHoldings struct {
	svc *ledger.Service
}

func (h *ledgerHoldings) BalanceOf(ctx context.Context, wallet id.Address) (uint64, error) {
	return h.svc.BalanceOf(ctx, wallet)
}

func (h *ledgerHoldings) InvestorHoldings(ctx context.Context, investorID id.InvestorID) (uint64, error) {
	return h.svc.InvestorHoldings(ctx, investorID)
}

func newTrustStore(db *sql.DB) trust.Store {
	if db != nil {
		return trust.NewPostgresStore(db)
	}
	return trust.NewInMemoryStore()
}

func newRelayKeyStore(db *sql.DB) relay.KeyStore {
	if db != nil {
		return relay.NewPostgresKeyStore(db)
	}
	return relay.NewInMemoryKeyStore()
}

func newInvestorStore(db *sql.DB) investor.Store {
	if db != nil {
		return investor.NewPostgresStore(db)
	}
	return investor.NewInMemoryStore()
}

func newWalletStore(db *sql.DB) wallet.Store {
	if db != nil {
		return wallet.NewPostgresStore(db)
	}
	return wallet.NewInMemoryStore()
}

func newLockStore(db *sql.DB) locks.Store {
	if db != nil {
		return locks.NewPostgresStore(db)
	}
	return locks.NewInMemoryStore()
}

func newLedgerStore(db *sql.DB) ledger.Store {
	if db != nil {
		return ledger.NewPostgresStore(db)
	}
	return ledger.NewInMemoryStore()
}
