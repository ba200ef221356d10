// Package di builds the dependency graph: repositories over the
// database, domain services over the repositories, and handlers over
// the services.
package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	adminhandlers "github.com/aurum-service/aurum_service/internal/api/handlers/admin"
	kychandlers "github.com/aurum-service/aurum_service/internal/api/handlers/kyc"
	wallethandlers "github.com/aurum-service/aurum_service/internal/api/handlers/wallet"
	"github.com/aurum-service/aurum_service/internal/api/middleware"
	"github.com/aurum-service/aurum_service/internal/domain/services/audit"
	kycsvc "github.com/aurum-service/aurum_service/internal/domain/services/kyc"
	"github.com/aurum-service/aurum_service/internal/domain/services/pricing"
	settingssvc "github.com/aurum-service/aurum_service/internal/domain/services/settings"
	walletsvc "github.com/aurum-service/aurum_service/internal/domain/services/wallet"
	"github.com/aurum-service/aurum_service/internal/infrastructure/adapters"
	"github.com/aurum-service/aurum_service/internal/infrastructure/adapters/goldprice"
	"github.com/aurum-service/aurum_service/internal/infrastructure/config"
	infrarepos "github.com/aurum-service/aurum_service/internal/infrastructure/repositories"
	"github.com/aurum-service/aurum_service/pkg/logger"
)

// Container holds every wired component
type Container struct {
	DB    *sqlx.DB
	Redis *redis.Client

	// Repositories
	WalletRepo      *infrarepos.WalletRepository
	TransactionRepo *infrarepos.TransactionRepository
	AuditRepo       *infrarepos.AuditRepository
	KYCRepo         *infrarepos.KYCRepository
	SettingsRepo    *infrarepos.SettingsRepository

	// Services
	WalletService   *walletsvc.Service
	KYCService      *kycsvc.Service
	SettingsService *settingssvc.Service
	AuditService    *audit.Service
	PricingService  *pricing.Service

	// Handlers
	WalletHandlers *wallethandlers.Handlers
	KYCHandlers    *kychandlers.Handlers
	AdminHandlers  *adminhandlers.Handlers

	// Middleware
	Auth *middleware.AuthMiddleware
}

// NewContainer wires the full dependency graph
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	c := &Container{DB: db}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.WalletRepo = infrarepos.NewWalletRepository(db)
	c.TransactionRepo = infrarepos.NewTransactionRepository(db)
	c.AuditRepo = infrarepos.NewAuditRepository(db)
	c.KYCRepo = infrarepos.NewKYCRepository(db)
	c.SettingsRepo = infrarepos.NewSettingsRepository(db)

	c.SettingsService = settingssvc.NewService(c.SettingsRepo, log.Zap())
	c.AuditService = audit.NewService(c.AuditRepo, log.Zap())

	priceFeed := goldprice.NewClient(goldprice.Config{
		BaseURL: cfg.GoldPrice.BaseURL,
		APIKey:  cfg.GoldPrice.APIKey,
		Timeout: 10 * time.Second,
	}, log.Zap())
	c.PricingService = pricing.NewService(priceFeed, c.Redis, log.Zap())

	documentStore, err := adapters.NewFileDocumentStore(cfg.KYC.DocumentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store: %w", err)
	}
	c.KYCService = kycsvc.NewService(c.KYCRepo, documentStore, log.Zap())

	c.WalletService = walletsvc.NewService(
		c.WalletRepo,
		c.TransactionRepo,
		c.SettingsService,
		c.PricingService,
		c.KYCService,
		log,
	)

	if cfg.Email.Enabled {
		emails, err := adapters.NewEmailService(log.Zap(), adapters.EmailServiceConfig{
			Provider:     cfg.Email.Provider,
			APIKey:       cfg.Email.APIKey,
			FromEmail:    cfg.Email.FromEmail,
			FromName:     cfg.Email.FromName,
			ReplyTo:      cfg.Email.ReplyTo,
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUsername,
			SMTPPassword: cfg.Email.SMTPPassword,
			SMTPUseTLS:   cfg.Email.SMTPUseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create email service: %w", err)
		}
		notifier := adapters.NewNotifier(emails, c.KYCRepo, log.Zap())
		c.WalletService.SetNotifier(notifier)
		c.KYCService.SetNotifier(notifier)
	}

	c.Auth = middleware.NewAuthMiddleware(cfg.JWT)

	c.WalletHandlers = wallethandlers.NewHandlers(c.WalletService, c.AuditService, log.Zap())
	c.KYCHandlers = kychandlers.NewHandlers(c.KYCService, c.AuditService, log.Zap())
	c.AdminHandlers = adminhandlers.NewHandlers(
		c.WalletService,
		c.KYCService,
		c.SettingsService,
		c.AuditService,
		log.Zap(),
	)

	return c, nil
}

// Close releases held connections
func (c *Container) Close() error {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			return err
		}
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
