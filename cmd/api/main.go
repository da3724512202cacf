package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/config"
	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/handlers"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/phone"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/queue"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/recipient"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/repository"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/scheduler"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/services"
	xhttp "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/http"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	dispatchQueue, err := queue.New(redisAdap, queue.Config{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	whatsappClient, err := gateway.NewClient(&gateway.Config{
		BaseURL:        config.Get().GatewayBaseURL,
		SendTimeout:    config.Get().GatewaySendTimeout,
		ControlTimeout: config.Get().GatewayControlTimeout,
		StatusTimeout:  config.Get().GatewayStatusTimeout,
	})
	if err != nil {
		logger.Error("failed creating whatsapp gateway client", "error", err)
		return
	}

	assistClient, err := gateway.NewAssistClient(&gateway.AssistConfig{
		BaseURL: config.Get().AssistBaseURL,
		Model:   config.Get().AssistModel,
		APIKey:  config.Get().AssistAPIKey,
	})
	if err != nil {
		logger.Error("failed creating assist client", "error", err)
		return
	}

	campaignRepo := repository.NewCampaignRepository(db)
	contactRepo := repository.NewContactRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	normalizer := phone.NewNormalizer(config.Get().PhoneCountryCode, config.Get().PhoneMobilePrefix)
	resolver := recipient.NewResolver(contactRepo, normalizer)

	// The API only routes campaigns; the reconciler loop that claims
	// due ones lives in the dispatcher process.
	campaignScheduler := scheduler.New(campaignRepo, dispatchQueue, scheduler.Config{
		Interval:   config.Get().SchedulerInterval,
		StaleAfter: config.Get().SchedulerStaleAfter,
		ClaimLimit: config.Get().SchedulerClaimLimit,
	})

	// services
	campaignService := services.NewCampaignService(campaignRepo, templateRepo, accountRepo, resolver, campaignScheduler)
	directoryService := services.NewDirectoryService(templateRepo, contactRepo)
	healthService := services.NewHealthService(db)

	// v1 handlers
	campaignHandler := handlers.NewCampaignHandler(campaignService, directoryService)
	sessionHandler := handlers.NewSessionHandler(whatsappClient)
	draftHandler := handlers.NewDraftHandler(assistClient)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterCampaignRoutes(g, campaignHandler)
	handlers.RegisterSessionRoutes(g, sessionHandler)
	handlers.RegisterDraftRoutes(g, draftHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
