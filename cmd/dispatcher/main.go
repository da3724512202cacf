package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/config"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/dispatcher"
	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/queue"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/repository"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/scheduler"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/prom"
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

	campaignRepo := repository.NewCampaignRepository(db)

	// The reconciler claims due campaigns and re-publishes stale ones.
	// It runs here, next to the consumers, so one deployment covers
	// both sides of the queue.
	campaignScheduler := scheduler.New(campaignRepo, dispatchQueue, scheduler.Config{
		Interval:   config.Get().SchedulerInterval,
		StaleAfter: config.Get().SchedulerStaleAfter,
		ClaimLimit: config.Get().SchedulerClaimLimit,
	})

	runLock := dispatcher.NewRunLock(redisAdap, 30*time.Minute)
	campaignDispatcher := dispatcher.New(campaignRepo, whatsappClient, config.Get().DispatchConcurrency)
	service := dispatcher.NewService(dispatchQueue, campaignDispatcher, runLock, campaignRepo, config.Get().QueueMaxRetries)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	campaignScheduler.Start()

	if err := service.Start(); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		campaignScheduler.Stop()
		if err := service.Stop(10 * time.Second); err != nil {
			logger.Error("dispatcher did not stop cleanly", "error", err)
		}
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
