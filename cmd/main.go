package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/classifier"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/database"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/debounce"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/kafka"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/logger"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/notify"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/runner"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/s3"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/services/detection"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/source"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty).With().Str("station", cfg.StationID).Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, err := bins.NewRegistry(cfg.Bins.Profiles, cfg.Bins.Default)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid bin profiles")
	}
	cls := classifier.New(registry, cfg.Detector.MinConfidence)
	debouncer := debounce.New(debounce.NewGate(cfg.Debounce.Cooldown), registry)

	// Telemetry: CSV is the system of record, Postgres is an optional mirror
	csvLog := telemetry.NewCSVLog(cfg.Telemetry.CSVPath)
	if err := csvLog.Init(); err != nil {
		log.Error().Err(err).Str("path", csvLog.Path()).Msg("telemetry log is not writable yet")
	}
	recorders := telemetry.Chain{csvLog}

	if cfg.Postgres.DSN != "" {
		db, err := database.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer db.Close()
		if err := db.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to init postgres schema")
		}
		recorders = append(recorders, telemetry.NewMirror(db))
	}

	// Init S3 client
	s3Client, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MinIO")
	}

	sinks := []notify.Sink{notify.NewLogSink(log)}

	var opts []runner.Option
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.HeartbeatTopic, cfg.Kafka.NotificationTopic)
	if err != nil {
		log.Warn().Err(err).Msg("kafka producer unavailable, notifications stay local")
	} else {
		defer producer.Close()
		sinks = append(sinks, notify.NewKafkaSink(producer))
		opts = append(opts, runner.WithHeartbeats(producer, cfg.StationID, cfg.HeartbeatInterval))
	}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, &http.Client{Timeout: cfg.Notify.Timeout}))
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.QueueSize, cfg.Notify.Workers, cfg.Notify.Timeout, log, sinks...)

	frames, err := startSource(ctx, cfg, s3Client, log)
	if err != nil {
		log.Fatal().Err(err).Str("kind", cfg.Source.Kind).Msg("failed to start detection source")
	}

	commands := mergeCommands(ctx, startCommandConsumer(ctx, cfg, log), readHotkeys(ctx, os.Stdin, registry, log))

	r := runner.New(registry, cls, debouncer, recorders, dispatcher, log, opts...)
	if err := r.Run(ctx, frames, commands); err != nil {
		log.Error().Err(err).Msg("runner stopped with error")
	}

	log.Info().Msg("shutting down")
	dispatcher.Close(cfg.Notify.Grace)
	logSummary(log, r.Stats(), dispatcher.Stats())

	if cfg.Minio.ArchiveBucket != "" {
		archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer archiveCancel()

		archive := telemetry.NewArchive(s3Client, cfg.Minio.ArchiveBucket, cfg.StationID)
		name, err := archive.Upload(archiveCtx, csvLog.Path(), time.Now())
		if err != nil {
			log.Error().Err(err).Msg("failed to archive telemetry log")
		} else {
			log.Info().Str("bucket", cfg.Minio.ArchiveBucket).Str("object", name).Msg("telemetry log archived")
		}
	}
}

func startSource(ctx context.Context, cfg *config.Config, store *s3.Client, log zerolog.Logger) (<-chan models.Frame, error) {
	switch cfg.Source.Kind {
	case config.SourceReplay, config.SourceDetector:
		out := make(chan models.Frame)
		var run func(context.Context, chan<- models.Frame) error
		if cfg.Source.Kind == config.SourceReplay {
			run = source.NewReplay(store, cfg.Source.URL, cfg.Source.Interval, log).Run
		} else {
			detector := detection.NewClient(cfg.Detector.Endpoint)
			run = source.NewDetectorSource(store, detector, cfg.Source.URL, cfg.Source.Interval, log).Run
		}
		go func() {
			if err := run(ctx, out); err != nil {
				log.Error().Err(err).Msg("detection source failed")
			}
		}()
		return out, nil

	default:
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.DetectionTopic, log)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			consumer.Close()
		}()
		go consumer.StartListening(ctx)
		return source.KafkaFrames(ctx, consumer.Messages(), log), nil
	}
}

func startCommandConsumer(ctx context.Context, cfg *config.Config, log zerolog.Logger) <-chan models.Command {
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-commands", cfg.Kafka.CommandTopic, log)
	if err != nil {
		log.Warn().Err(err).Msg("kafka commands unavailable, keyboard only")
		return nil
	}
	go func() {
		<-ctx.Done()
		consumer.Close()
	}()
	go consumer.StartListening(ctx)
	return source.KafkaCommands(ctx, consumer.Messages(), log)
}

func logSummary(log zerolog.Logger, st models.Stats, ns notify.Stats) {
	log.Info().
		Int64("frames", st.Frames).
		Int64("correct", st.Correct).
		Int64("contaminations", st.Contaminations).
		Int64("rejected", st.Rejected).
		Int64("sink_errors", st.SinkErrors).
		Uint64("notifications_sent", ns.Sent).
		Uint64("notifications_dropped", ns.Dropped).
		Uint64("notifications_failed", ns.Failed).
		Msg("session summary")
}
