package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/jonboulle/clockwork"
	"github.com/maxaizer/jobboard-alerts/internal/bot"
	"github.com/maxaizer/jobboard-alerts/internal/clients/jobboard"
	"github.com/maxaizer/jobboard-alerts/internal/config"
	"github.com/maxaizer/jobboard-alerts/internal/logger"
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	"github.com/maxaizer/jobboard-alerts/internal/repositories"
	"github.com/maxaizer/jobboard-alerts/internal/services"
	log "github.com/sirupsen/logrus"
	"os/signal"
	"syscall"
)

func newJobBoardClient(cfg config.APIConfig) *jobboard.Client {
	client := jobboard.NewClient(cfg.BaseURL, cfg.Token)
	client.SetTimeout(cfg.Timeout)
	client.SetRateLimit(cfg.MaxRequestsPerSecond)
	return client
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	config.OnLoggerChange(func(loggerConfig config.LoggerConfig) {
		logger.SetLevel(loggerConfig.LogLevel)
	})

	metrics.StartMetricsServer(cfg.Metrics.Address)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.SetMaxOpenConnections(cfg.DB.MaxOpenConnections); err != nil {
		log.Fatalf("can't configure db pool: %v", err)
	}

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	data := repositories.NewDataRepository(dbContext.DB)
	store := repositories.NewStore(data)
	subscribers := repositories.NewSubscribersRepository(dbContext.DB)
	snapshot := services.NewSnapshotProvider(store, repositories.NewCachedJobs(store))

	client := newJobBoardClient(cfg.API)
	bus := EventBus.New()

	synthesizer := services.NewNotificationSynthesizer(bus, snapshot, snapshot, clockwork.NewRealClock())
	reconciler := services.NewSuggestionsReconciler(client)
	passwords := services.NewPasswordService(client)

	tgbot, err := bot.NewBot(cfg.Bot, bus,
		bot.Repositories{Subscribers: subscribers, Data: data},
		bot.Services{Suggestions: reconciler, Notifications: snapshot, Passwords: passwords})
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}
	go tgbot.Run()

	watcher, err := services.NewApplicationsWatcher(client, subscribers, snapshot, synthesizer, cfg.Watcher.Schedule)
	if err != nil {
		log.Fatalf("can't create applications watcher: %v", err)
	}
	watcher.Start()

	<-ctx.Done()

	log.Info("Shutting down services...")
	watcher.Stop()
	tgbot.Stop()
	reconciler.Wait()
	log.Info("Services stopped.")
}
