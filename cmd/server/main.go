package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paygate-ir/payment-service/internal/adapters/mellat"
	"github.com/paygate-ir/payment-service/internal/adapters/postgres"
	"github.com/paygate-ir/payment-service/internal/adapters/secrets"
	"github.com/paygate-ir/payment-service/internal/adapters/zarinpal"
	"github.com/paygate-ir/payment-service/internal/config"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	callbackHandler "github.com/paygate-ir/payment-service/internal/handlers/callback"
	paymentHandler "github.com/paygate-ir/payment-service/internal/handlers/payment"
	"github.com/paygate-ir/payment-service/internal/services/reconciliation"
	pkghttp "github.com/paygate-ir/payment-service/pkg/http"
	"github.com/paygate-ir/payment-service/pkg/middleware"
	"github.com/paygate-ir/payment-service/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting payment gateway service",
		zap.String("version", "0.1.0"),
		zap.String("mellat_environment", cfg.Mellat.Environment),
	)

	ctx := context.Background()

	// Database connection pool
	poolCfg := postgres.DefaultConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	dbPool, err := postgres.NewPool(ctx, poolCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	// Secret manager and gateway credentials
	secretManager, err := initSecretManager(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secret manager", zap.Error(err))
	}

	bankGateway, err := initMellat(ctx, cfg, secretManager, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Mellat gateway", zap.Error(err))
	}

	aggregatorGateway, err := initZarinpal(ctx, cfg, secretManager, logger)
	if err != nil {
		logger.Fatal("Failed to initialize ZarinPal gateway", zap.Error(err))
	}

	// Core wiring
	repo := postgres.NewTransactionRepository(dbPool)
	service := reconciliation.NewService(repo, bankGateway, aggregatorGateway, logger)

	callbacks := callbackHandler.NewCallbackHandler(service, cfg.Server.ProcessingURL, logger)
	payments := paymentHandler.NewPaymentHandler(repo, service, logger)

	// The callback endpoints face the public internet; everything else is
	// reachable only inside the host deployment.
	rateLimiter := middleware.NewRateLimiter(cfg.Server.CallbackRatePerSecond, cfg.Server.CallbackBurst)
	defer rateLimiter.Shutdown()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payment/mellat/accept", rateLimiter.HTTPHandlerFunc(callbacks.HandleMellat))
	mux.HandleFunc("GET /payment/zarinpal/redirect", rateLimiter.HTTPHandlerFunc(callbacks.HandleZarinpal))

	mux.HandleFunc("POST /api/v1/payments", payments.HandleInitiate)
	mux.HandleFunc("GET /api/v1/payments/{reference}", payments.HandleGet)
	mux.HandleFunc("POST /api/v1/payments/{reference}/inquiry", payments.HandleInquiry)
	mux.HandleFunc("POST /api/v1/payments/{reference}/reversal", payments.HandleReversal)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics and health server
	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

// initLogger builds the zap logger from configuration
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// initSecretManager selects the secret backend from configuration
func initSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Secrets.Provider {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Profile = cfg.Secrets.AWSProfile
		awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress)
		vaultCfg.Token = cfg.Secrets.VaultToken
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	default:
		logger.Warn("Using local filesystem secrets; not suitable for production",
			zap.String("base_path", cfg.Secrets.LocalBasePath),
		)
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalBasePath, logger), nil
	}
}

// initMellat resolves terminal credentials and builds the bank gateway adapter
func initMellat(ctx context.Context, cfg *config.Config, manager ports.SecretManagerAdapter, logger *zap.Logger) (ports.BankGateway, error) {
	creds, err := secrets.ResolveMellatCredentials(ctx, manager, cfg.Mellat.CredentialPath)
	if err != nil {
		return nil, err
	}

	terminalID, err := strconv.ParseInt(creds.TerminalID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mellat terminal id is not numeric: %w", err)
	}

	gatewayCfg := mellat.DefaultConfig(cfg.Mellat.Environment)
	gatewayCfg.TerminalID = terminalID
	gatewayCfg.Username = creds.Username
	gatewayCfg.Password = creds.Password
	gatewayCfg.Timeout = time.Duration(cfg.Mellat.Timeout) * time.Second

	httpClient := pkghttp.NewClient(pkghttp.GatewayClientConfig(), gatewayCfg.Timeout)
	return mellat.NewGateway(gatewayCfg, httpClient, logger)
}

// initZarinpal resolves the merchant id and builds the aggregator adapter
func initZarinpal(ctx context.Context, cfg *config.Config, manager ports.SecretManagerAdapter, logger *zap.Logger) (ports.AggregatorGateway, error) {
	creds, err := secrets.ResolveZarinpalCredentials(ctx, manager, cfg.Zarinpal.CredentialPath)
	if err != nil {
		return nil, err
	}

	gatewayCfg := zarinpal.DefaultConfig()
	gatewayCfg.MerchantID = creds.MerchantID
	gatewayCfg.Timeout = time.Duration(cfg.Zarinpal.Timeout) * time.Second
	gatewayCfg.Fee = zarinpal.FeePolicy{
		Active:     cfg.Zarinpal.FeeActive,
		Percentage: decimal.NewFromFloat(cfg.Zarinpal.FeePercent),
		UpperLimit: decimal.NewFromInt(cfg.Zarinpal.FeeUpperLimit),
	}

	httpClient := pkghttp.NewClient(pkghttp.GatewayClientConfig(), gatewayCfg.Timeout)
	return zarinpal.NewGateway(gatewayCfg, httpClient, logger)
}
