package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cjdreamy/M-kumbusha/internal/africastalking"
	"github.com/cjdreamy/M-kumbusha/internal/auth"
	"github.com/cjdreamy/M-kumbusha/internal/channel"
	"github.com/cjdreamy/M-kumbusha/internal/config"
	"github.com/cjdreamy/M-kumbusha/internal/handlers"
	"github.com/cjdreamy/M-kumbusha/internal/insights"
	"github.com/cjdreamy/M-kumbusha/internal/kafka"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/metrics"
	"github.com/cjdreamy/M-kumbusha/internal/reminder"
	"github.com/cjdreamy/M-kumbusha/internal/repository"
	"github.com/cjdreamy/M-kumbusha/internal/services"
)

// store is everything the service needs from a persistence backend
type store interface {
	handlers.CareStore
	reminder.Store
	channel.TransitionRecorder
	Ping(ctx context.Context) error
}

type publisher interface {
	reminder.EventPublisher
	Close() error
}

type nopCloser struct{ reminder.NoopPublisher }

func (nopCloser) Close() error { return nil }

func main() {
	cfg := config.Load()
	if _, err := logger.New(cfg.Environment, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Invalid configuration: %v", err)
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dbService := openStore(ctx, cfg)
	if dbService != nil {
		defer dbService.Close()
	}

	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}
	atClient := africastalking.NewClient(providerClient, africastalking.Options{
		Username: cfg.AfricasTalkingUsername,
		APIKey:   cfg.AfricasTalkingAPIKey,
		SMSURL:   cfg.AfricasTalkingSMSURL,
		VoiceURL: cfg.AfricasTalkingVoiceURL,
		CallerID: cfg.AfricasTalkingCallerID,
	})
	smsSender := channel.NewSMSSender(atClient, db)
	voiceSender := channel.NewVoiceSender(atClient, db)

	var events publisher = nopCloser{}
	if cfg.KafkaURL != "" {
		logger.Log.Infof("Publishing reminder events to %s at %s", cfg.ReminderEventsKafkaTopic, cfg.KafkaURL)
		events = kafka.NewEventPublisher(cfg.KafkaURL, cfg.ReminderEventsKafkaTopic)
	} else {
		logger.Log.Info("Kafka URL not configured, reminder events are not published")
	}
	defer events.Close()

	dispatcher := reminder.NewDispatcher(db, smsSender, voiceSender, events)
	escalator := reminder.NewEscalator(smsSender, db, events)
	confirmer := reminder.NewConfirmer(db, escalator, events)

	var wg sync.WaitGroup
	startWorkers(ctx, &wg, cfg, dispatcher, confirmer)

	server := &http.Server{
		Addr:              cfg.ServerHost + ":" + cfg.ServerPort,
		Handler:           newRouter(cfg, db, dispatcher, confirmer, smsSender, voiceSender),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Starting HTTP server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("HTTP server shutdown: %v", err)
	}
	wg.Wait()
}

// openStore selects the persistence backend. dbService is nil for the memory store.
func openStore(ctx context.Context, cfg config.Config) (store, *services.DatabaseService) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		logger.Log.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemory(), nil
	}

	dbService, err := services.NewDatabaseService(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize database service: %v", err)
	}
	if err := dbService.RunMigrations(ctx); err != nil {
		logger.Log.Fatalf("Failed to run migrations: %v", err)
	}
	return repository.NewPostgres(dbService.DB), dbService
}

// startWorkers runs the queued dispatch processor and the confirmation consumer until ctx ends
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, dispatcher *reminder.Dispatcher, confirmer *reminder.Confirmer) {
	if cfg.SQSDispatchQueueURL != "" {
		sqsClient, err := newSQSClient(ctx, cfg)
		if err != nil {
			logger.Log.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		processor := reminder.NewQueueProcessor(sqsClient, cfg.SQSDispatchQueueURL, dispatcher)
		logger.Log.Infof("Starting dispatch processor for queue: %s", cfg.SQSDispatchQueueURL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := processor.ProcessMessages(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Errorf("Dispatch processor stopped: %v", err)
			}
		}()
	} else {
		logger.Log.Info("Dispatch queue URL not configured, skipping dispatch processor setup")
	}

	if cfg.KafkaURL != "" && cfg.ConfirmationsKafkaTopic != "" {
		consumer := kafka.NewConfirmationConsumer(cfg.KafkaURL, cfg.ConfirmationsKafkaTopic, cfg.KafkaGroupID, confirmer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			consumer.Start(ctx)
		}()
	} else {
		logger.Log.Info("Kafka URL not configured, skipping confirmation consumer setup")
	}
}

func newSQSClient(ctx context.Context, cfg config.Config) (*sqs.Client, error) {
	awsOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		logger.Log.Info("Using AWS credentials from environment variables")
		awsOptions = append(awsOptions, awsconfig.WithCredentialsProvider(
			aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AWSAccessKeyID,
					SecretAccessKey: cfg.AWSSecretAccessKey,
				}, nil
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWSEndpoint != "" {
			logger.Log.Infof("Using local endpoint for AWS services: %s", cfg.AWSEndpoint)
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	}), nil
}

func newRouter(cfg config.Config, db store, dispatcher *reminder.Dispatcher, confirmer *reminder.Confirmer,
	smsSender *channel.SMSSender, voiceSender *channel.VoiceSender) http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)

	healthHandler := handlers.NewHealthHandler(db)
	router.HandleFunc("/healthz", healthHandler.HandleHealth).Methods("GET")
	router.HandleFunc("/readyz", healthHandler.HandleReadiness).Methods("GET")
	router.HandleFunc("/livez", healthHandler.HandleLiveness).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	reminderHandler := handlers.NewReminderHandler(dispatcher, confirmer, smsSender, voiceSender)
	careHandler := handlers.NewCareHandler(db)
	insightsHandler := handlers.NewInsightsHandler(insights.NewClient(
		&http.Client{Timeout: 60 * time.Second}, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiURL))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/send-reminder", reminderHandler.SendReminder).Methods("POST")
	api.HandleFunc("/send-sms", reminderHandler.SendSMS).Methods("POST")
	api.HandleFunc("/send-voice", reminderHandler.SendVoice).Methods("POST")
	api.HandleFunc("/confirm-reminder", reminderHandler.ConfirmReminder).Methods("POST")

	api.HandleFunc("/profile", careHandler.GetProfile).Methods("GET")
	api.HandleFunc("/profile", careHandler.UpdateProfile).Methods("PUT")

	api.HandleFunc("/elderly", careHandler.ListElderly).Methods("GET")
	api.HandleFunc("/elderly", careHandler.CreateElderly).Methods("POST")
	api.HandleFunc("/elderly/{id}", careHandler.GetElderly).Methods("GET")
	api.HandleFunc("/elderly/{id}", careHandler.UpdateElderly).Methods("PUT")
	api.HandleFunc("/elderly/{id}", careHandler.DeleteElderly).Methods("DELETE")

	api.HandleFunc("/schedules", careHandler.ListSchedules).Methods("GET")
	api.HandleFunc("/schedules", careHandler.CreateSchedule).Methods("POST")
	api.HandleFunc("/schedules/{id}", careHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/schedules/{id}", careHandler.UpdateSchedule).Methods("PUT")
	api.HandleFunc("/schedules/{id}", careHandler.DeleteSchedule).Methods("DELETE")
	api.HandleFunc("/schedules/{id}/active", careHandler.SetScheduleActive).Methods("PATCH")

	api.HandleFunc("/reminders", careHandler.ListReminders).Methods("GET")
	api.HandleFunc("/reminder-logs", careHandler.ListReminderLogs).Methods("GET")
	api.HandleFunc("/dashboard/stats", careHandler.DashboardStats).Methods("GET")

	api.HandleFunc("/insights/care", insightsHandler.CareInsights).Methods("POST")
	api.HandleFunc("/insights/voice-script", insightsHandler.VoiceScript).Methods("POST")
	api.HandleFunc("/insights/assistant", insightsHandler.Assistant).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin(db))
	admin.HandleFunc("/profiles", careHandler.ListProfiles).Methods("GET")
	admin.HandleFunc("/profiles/{id}/role", careHandler.UpdateProfileRole).Methods("PUT")

	return auth.CORSMiddleware(cfg)(router)
}
