package bootstrap

import (
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/internal/config"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/controller"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/pkg/logger"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/service"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	QueryController controller.IQueryController

	// Services
	UsageService service.IUsageService

	// Infra
	Logger logger.ILogger
	Engine *engine.Engine
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Logger
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Upstream client
	client := basecamp.NewHTTPClient(
		cfg.Basecamp.BaseURL,
		cfg.Basecamp.AccountID,
		cfg.Basecamp.AccessToken,
		time.Duration(cfg.Basecamp.TimeoutSeconds)*time.Second,
	)

	// 4. Services
	publisherService := service.NewPublisherService(cfg.App.QueryExecutedTopic, pubSub)
	usageService := service.NewUsageService(pubSub, cfg.App.QueryExecutedTopic, appLogger)

	eng := engine.New(client, appLogger.Zap(),
		engine.WithPublisher(service.NewEnginePublisher(publisherService)),
	)

	queryService := service.NewQueryService(eng, cfg.Engine.DefaultProjectID)

	// 5. Controllers
	queryController := controller.NewQueryController(queryService, usageService)

	return &Container{
		QueryController: queryController,
		UsageService:    usageService,
		Logger:          appLogger,
		Engine:          eng,
	}
}
