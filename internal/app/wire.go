package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alphavault/fundd/internal/blob/s3"
	"github.com/alphavault/fundd/internal/cache/redis"
	"github.com/alphavault/fundd/internal/config"
	"github.com/alphavault/fundd/internal/crypto"
	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/exchange"
	"github.com/alphavault/fundd/internal/fund"
	"github.com/alphavault/fundd/internal/notify"
	"github.com/alphavault/fundd/internal/oracle"
	"github.com/alphavault/fundd/internal/service"
	"github.com/alphavault/fundd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Engine and services
	Engine  *fund.Fund
	FundSvc *service.FundService

	// Stores
	FundStore     domain.FundStore
	ActivityStore domain.ActivityStore
	AuditStore    domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter  domain.BlobWriter
	BlobReader  domain.BlobReader
	BlobDeleter domain.BlobDeleter
	Archiver    domain.Archiver

	// Operator identity
	Signer   *crypto.Signer
	Operator common.Address

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that run the keeper and therefore archive
// activity to object storage.
func needsS3(mode string) bool {
	switch mode {
	case "keeper", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Operator key ---
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Operator.PrivateKey,
		EncryptedKeyPath: cfg.Operator.EncryptedKeyPath,
		KeyPassword:      cfg.Operator.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: operator key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: operator signer: %w", err)
	}
	deps.Signer = signer
	deps.Operator = signer.Address()
	if cfg.Operator.Address != "" {
		declared := common.HexToAddress(cfg.Operator.Address)
		if declared != deps.Operator {
			return nil, nil, fmt.Errorf("wire: operator.address %s does not match key-derived address %s",
				declared.Hex(), deps.Operator.Hex())
		}
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.FundStore = postgres.NewFundStore(pool)
	deps.ActivityStore = postgres.NewActivityStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.BlobDeleter = reader
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			postgres.NewActivityStore(pool),
			postgres.NewAuditStore(pool),
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Engine ---
	engine, err := buildEngine(cfg, deps, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine: %w", err)
	}
	deps.Engine = engine

	if err := registerConfiguredAssets(cfg, deps); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: assets: %w", err)
	}

	if err := ensureFundRecord(ctx, cfg, deps); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fund record: %w", err)
	}

	deps.FundSvc = service.NewFundService(
		engine, deps.ActivityStore, deps.AuditStore, deps.SignalBus, deps.Notifier, logger,
	)

	return deps, cleanup, nil
}

// buildEngine constructs the fund engine from config: the oracle reads the
// Redis-backed feed cache, and the exchange adapter is either the simulated
// venue or absent.
func buildEngine(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*fund.Fund, error) {
	minDeposit, err := cfg.Fund.MinDepositWei()
	if err != nil {
		return nil, err
	}

	orc := oracle.NewFeedCache(deps.PriceCache)

	engineCfg := fund.Config{
		Operator:              deps.Operator,
		FeeRecipient:          common.HexToAddress(cfg.Fund.FeeRecipient),
		ManagementFeeBps:      cfg.Fund.ManagementFeeBps,
		PerformanceFeeBps:     cfg.Fund.PerformanceFeeBps,
		RebalanceThresholdBps: cfg.Fund.RebalanceThresholdBps,
		MinDeposit:            minDeposit,
		MaxSlippageBps:        cfg.Fund.MaxSlippageBps,
		SwapDeadline:          cfg.Fund.SwapDeadline.Duration,
	}

	var opts []fund.Option
	if cfg.Fund.Exchange == "simulated" {
		feeds := make(map[common.Address]common.Address, len(cfg.Fund.Assets))
		for _, a := range cfg.Fund.Assets {
			feeds[common.HexToAddress(a.Token)] = common.HexToAddress(a.PriceFeed)
		}
		opts = append(opts, fund.WithExchange(exchange.NewSimulated(orc, feeds, cfg.Fund.MaxSlippageBps)))
	}

	return fund.New(engineCfg, orc, logger, opts...)
}

// registerConfiguredAssets seeds the engine's asset registry from the TOML
// asset declarations.
func registerConfiguredAssets(cfg *config.Config, deps *Dependencies) error {
	for _, a := range cfg.Fund.Assets {
		asset := domain.Asset{
			Token:        common.HexToAddress(a.Token),
			PriceFeed:    common.HexToAddress(a.PriceFeed),
			TargetWeight: a.TargetWeight,
			MinWeight:    a.MinWeight,
			MaxWeight:    a.MaxWeight,
		}
		if err := deps.Engine.AddAsset(deps.Operator, asset); err != nil {
			return fmt.Errorf("register asset %s: %w", a.Token, err)
		}
	}
	return nil
}

// ensureFundRecord upserts the registry row describing this fund. The
// symbol doubles as the registry ID so restarts are idempotent.
func ensureFundRecord(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	rec := domain.FundRecord{
		ID:                cfg.Fund.Symbol,
		Name:              cfg.Fund.Name,
		Symbol:            cfg.Fund.Symbol,
		Creator:           deps.Operator,
		Operator:          deps.Operator,
		FeeRecipient:      common.HexToAddress(cfg.Fund.FeeRecipient),
		ManagementFeeBps:  cfg.Fund.ManagementFeeBps,
		PerformanceFeeBps: cfg.Fund.PerformanceFeeBps,
		CreatedAt:         time.Now().UTC(),
	}
	err := deps.FundStore.Create(ctx, rec)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	if err == nil {
		_ = deps.AuditStore.Log(ctx, "fund_registered", map[string]any{
			"id":       rec.ID,
			"name":     rec.Name,
			"operator": rec.Operator.Hex(),
		})
	}
	return nil
}
