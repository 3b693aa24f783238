// This file orchestrates the greenboard-print service, initializing and
// running the NATS worker that turns uploaded greenboard PDFs into
// printer-friendly ones.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/book-expert/configurator"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"

	"github.com/book-expert/greenboard-print-service/internal/pdfproc"
)

// Config represents the overall configuration structure for the
// greenboard-print-service.
type Config struct {
	NATS     NATSConfig     `toml:"nats"`
	Paths    PathsConfig    `toml:"paths"`
	Settings SettingsConfig `toml:"settings"`
}

// PathsConfig holds common path configurations.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// SettingsConfig holds processing settings for the worker.
type SettingsConfig struct {
	DPI          int  `toml:"dpi"`
	Workers      int  `toml:"workers"`
	CombinePages bool `toml:"combine_pages"`
}

// NATSConfig holds NATS-specific configuration for the
// greenboard-print-service.
type NATSConfig struct {
	URL                        string `toml:"url"`
	PDFStreamName              string `toml:"pdf_stream_name"`
	PDFConsumerName            string `toml:"pdf_consumer_name"`
	PDFCreatedSubject          string `toml:"pdf_created_subject"`
	PDFObjectStoreBucket       string `toml:"pdf_object_store_bucket"`
	ProcessedStreamName        string `toml:"processed_stream_name"`
	ProcessedSubject           string `toml:"processed_subject"`
	ProcessedObjectStoreBucket string `toml:"processed_object_store_bucket"`
}

// job represents the context for processing a single message.
type job struct {
	msg            jetstream.Msg
	jetStream      jetstream.JetStream
	pdfStore       jetstream.ObjectStore
	processedStore jetstream.ObjectStore
	cfg            *Config
	appLogger      *logger.Logger
	event          *events.PDFCreatedEvent
	header         *events.EventHeader
	workDir        string
	localPDFPath   string
}

const (
	natsFetchTimeout   = 5 * time.Second
	ackWait            = 30 * time.Second
	defaultWorkerCount = 4
	defaultDPI         = 200

	configURLEnvVar = "PROJECT_TOML"
)

// ErrConfigURLNotSet is returned when the configuration location is missing
// from the environment.
var ErrConfigURLNotSet = errors.New("PROJECT_TOML environment variable is not set")

// main is the entry point of the application.
func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runErr := run(ctx)
	if runErr != nil {
		log.Printf("Fatal application error: %v", runErr)
		os.Exit(1)
	}

	log.Println("Application shut down gracefully.")
}

// run initializes all components and starts the message processing loop.
func run(ctx context.Context) error {
	cfg, appLogger, setupErr := setupConfigAndLogger()
	if setupErr != nil {
		return setupErr
	}
	defer func() {
		if closeErr := appLogger.Close(); closeErr != nil {
			log.Printf("Warning: failed to close app logger: %v", closeErr)
		}
	}()

	natsConnection, connErr := nats.Connect(cfg.NATS.URL)
	if connErr != nil {
		return fmt.Errorf("failed to connect to NATS: %w", connErr)
	}
	defer natsConnection.Close()
	appLogger.Info("Connected to NATS server at %s", natsConnection.ConnectedUrl())

	jetStream, jsErr := jetstream.New(natsConnection)
	if jsErr != nil {
		return fmt.Errorf("failed to create JetStream context: %w", jsErr)
	}

	jsSetupErr := setupJetStream(ctx, jetStream, cfg)
	if jsSetupErr != nil {
		return fmt.Errorf("failed to set up JetStream resources: %w", jsSetupErr)
	}

	consumer, consumerErr := jetStream.Consumer(
		ctx,
		cfg.NATS.PDFStreamName,
		cfg.NATS.PDFConsumerName,
	)
	if consumerErr != nil {
		return fmt.Errorf("failed to get consumer: %w", consumerErr)
	}

	appLogger.Info(
		"Worker is running, listening for jobs on '%s'...",
		cfg.NATS.PDFCreatedSubject,
	)

	return processMessages(ctx, consumer, jetStream, cfg, appLogger)
}

// setupConfigAndLogger loads configuration and sets up the main application
// logger.
func setupConfigAndLogger() (*Config, *logger.Logger, error) {
	configURL := os.Getenv(configURLEnvVar)
	if configURL == "" {
		return nil, nil, ErrConfigURLNotSet
	}

	var cfg Config
	tempLogger, tempLoggerErr := logger.New(
		os.TempDir(),
		"greenboard-print-bootstrap.log",
	)
	if tempLoggerErr != nil {
		return nil, nil, fmt.Errorf(
			"failed to create bootstrap logger: %w",
			tempLoggerErr,
		)
	}
	defer func() {
		if closeErr := tempLogger.Close(); closeErr != nil {
			log.Printf("Warning: failed to close temp logger: %v", closeErr)
		}
	}()

	loadErr := configurator.LoadFromURL(configURL, &cfg, tempLogger)
	if loadErr != nil {
		return nil, nil, fmt.Errorf(
			"failed to load configuration from URL %s: %w",
			configURL,
			loadErr,
		)
	}
	log.Printf("Configuration loaded from %s", configURL)

	appLogger, loggerErr := logger.New(
		cfg.Paths.BaseLogsDir,
		"greenboard-print-service.log",
	)
	if loggerErr != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", loggerErr)
	}

	return &cfg, appLogger, nil
}

// setupJetStream ensures all required NATS streams and object stores exist.
func setupJetStream(ctx context.Context, jetStream jetstream.JetStream, cfg *Config) error {
	streamCfg := newStreamConfig(cfg.NATS.PDFStreamName, cfg.NATS.PDFCreatedSubject)
	_, streamErr := jetStream.CreateStream(ctx, *streamCfg)
	if streamErr != nil && !errors.Is(streamErr, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create PDF stream: %w", streamErr)
	}

	consumerCfg := newConsumerConfig(cfg)
	stream, streamErr := jetStream.Stream(ctx, cfg.NATS.PDFStreamName)
	if streamErr != nil {
		return fmt.Errorf("failed to get PDF stream handle: %w", streamErr)
	}
	_, consumerErr := stream.CreateOrUpdateConsumer(ctx, *consumerCfg)
	if consumerErr != nil {
		return fmt.Errorf("failed to create PDF consumer: %w", consumerErr)
	}

	processedStreamCfg := newStreamConfig(
		cfg.NATS.ProcessedStreamName,
		cfg.NATS.ProcessedSubject,
	)
	_, processedStreamErr := jetStream.CreateStream(ctx, *processedStreamCfg)
	if processedStreamErr != nil &&
		!errors.Is(processedStreamErr, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf(
			"failed to create processed stream: %w",
			processedStreamErr,
		)
	}

	buckets := []string{
		cfg.NATS.PDFObjectStoreBucket,
		cfg.NATS.ProcessedObjectStoreBucket,
	}
	for _, bucket := range buckets {
		objStoreCfg := newObjectStoreConfig(bucket)
		_, objStoreErr := jetStream.CreateObjectStore(ctx, *objStoreCfg)
		if objStoreErr != nil && !errors.Is(objStoreErr, jetstream.ErrBucketExists) {
			return fmt.Errorf(
				"failed to create object store '%s': %w",
				bucket,
				objStoreErr,
			)
		}
	}
	return nil
}

func newStreamConfig(name, subject string) *jetstream.StreamConfig {
	return &jetstream.StreamConfig{
		Name:              name,
		Subjects:          []string{subject},
		Retention:         jetstream.WorkQueuePolicy,
		MaxConsumers:      -1,
		MaxMsgs:           -1,
		MaxBytes:          -1,
		Discard:           jetstream.DiscardOld,
		MaxMsgsPerSubject: -1,
		MaxMsgSize:        -1,
		Storage:           jetstream.FileStorage,
		Replicas:          1,
		Compression:       jetstream.NoCompression,
	}
}

func newConsumerConfig(cfg *Config) *jetstream.ConsumerConfig {
	return &jetstream.ConsumerConfig{
		Durable:       cfg.NATS.PDFConsumerName,
		FilterSubject: cfg.NATS.PDFCreatedSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    -1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
		MaxAckPending: -1,
	}
}

func newObjectStoreConfig(bucket string) *jetstream.ObjectStoreConfig {
	return &jetstream.ObjectStoreConfig{
		Bucket:   bucket,
		MaxBytes: -1,
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	}
}

// processMessages implements the core worker loop.
func processMessages(
	ctx context.Context,
	consumer jetstream.Consumer,
	jetStream jetstream.JetStream,
	cfg *Config,
	appLogger *logger.Logger,
) error {
	pdfStore, pdfStoreErr := jetStream.ObjectStore(ctx, cfg.NATS.PDFObjectStoreBucket)
	if pdfStoreErr != nil {
		return fmt.Errorf("failed to bind to PDF object store: %w", pdfStoreErr)
	}
	processedStore, processedStoreErr := jetStream.ObjectStore(
		ctx,
		cfg.NATS.ProcessedObjectStoreBucket,
	)
	if processedStoreErr != nil {
		return fmt.Errorf(
			"failed to bind to processed object store: %w",
			processedStoreErr,
		)
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("context error in message loop: %w", ctxErr)
		}
		batch, fetchErr := consumer.Fetch(1, jetstream.FetchMaxWait(natsFetchTimeout))
		if fetchErr != nil {
			if errors.Is(fetchErr, context.Canceled) ||
				errors.Is(fetchErr, nats.ErrTimeout) {
				continue
			}
			appLogger.Error("Error fetching messages: %v", fetchErr)
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, jetStream, pdfStore, processedStore, cfg, appLogger)
		}
		if batchErr := batch.Error(); batchErr != nil {
			appLogger.Error("Error during message batch processing: %v", batchErr)
		}
	}
}

// handleMessage processes a single message.
func handleMessage(
	ctx context.Context, msg jetstream.Msg, jetStream jetstream.JetStream,
	pdfStore, processedStore jetstream.ObjectStore, cfg *Config, appLogger *logger.Logger,
) {
	job, jobErr := newJob(msg, jetStream, pdfStore, processedStore, cfg, appLogger)
	if jobErr != nil {
		appLogger.Error("Failed to create job: %v", jobErr)
		return
	}
	job.run(ctx)
}

// newJob creates a new job handler.
func newJob(
	msg jetstream.Msg, jetStream jetstream.JetStream,
	pdfStore, processedStore jetstream.ObjectStore,
	cfg *Config, appLogger *logger.Logger,
) (*job, error) {
	event, unmarshalErr := unmarshalEvent(msg)
	if unmarshalErr != nil {
		return nil, unmarshalErr
	}
	return &job{
		msg:            msg,
		jetStream:      jetStream,
		pdfStore:       pdfStore,
		processedStore: processedStore,
		cfg:            cfg,
		appLogger:      appLogger,
		event:          event,
		header:         &event.Header,
		workDir:        "", // Will be set by setupWorkDir
		localPDFPath:   "", // Will be set by setupWorkDir
	}, nil
}

// unmarshalEvent unmarshals the PDFCreatedEvent from a message.
func unmarshalEvent(msg jetstream.Msg) (*events.PDFCreatedEvent, error) {
	var event events.PDFCreatedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal PDFCreatedEvent: %w", err)
	}
	return &event, nil
}

// run executes the full lifecycle of a job.
func (j *job) run(ctx context.Context) {
	j.appLogger.Info(
		"Received job for WorkflowID [%s]: processing PDF key '%s'",
		j.header.WorkflowID,
		j.event.PDFKey,
	)
	if progErr := j.msg.InProgress(); progErr != nil {
		j.appLogger.Warn("Failed to send InProgress update: %v", progErr)
	}

	dirErr := j.setupWorkDir()
	if dirErr != nil {
		j.appLogger.Error(
			"Error setting up work directory for job [%s]: %v",
			j.header.WorkflowID,
			dirErr,
		)
		j.nak(dirErr)
		return
	}
	defer j.cleanupWorkDir()

	if downloadErr := j.downloadPDF(ctx); downloadErr != nil {
		j.appLogger.Error(
			"Error downloading PDF for job [%s]: %v",
			j.header.WorkflowID,
			downloadErr,
		)
		j.term(downloadErr)
		return
	}

	processedPath, processErr := j.processPDF(ctx)
	if processErr != nil {
		j.appLogger.Error(
			"Error processing PDF for job [%s]: %v",
			j.header.WorkflowID,
			processErr,
		)
		j.nak(processErr)
		return
	}

	if publishErr := j.publishProcessedPDF(ctx, processedPath); publishErr != nil {
		j.appLogger.Error(
			"Error publishing result for job [%s]: %v",
			j.header.WorkflowID,
			publishErr,
		)
		j.nak(publishErr)
		return
	}

	j.ack()
}

func (j *job) setupWorkDir() error {
	workDir, err := os.MkdirTemp("", fmt.Sprintf("greenboard-%s-", j.header.WorkflowID))
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	j.workDir = workDir
	j.localPDFPath = filepath.Join(workDir, j.event.PDFKey)
	return nil
}

func (j *job) cleanupWorkDir() {
	if err := os.RemoveAll(j.workDir); err != nil {
		j.appLogger.Warn("Failed to remove temp directory '%s': %v", j.workDir, err)
	}
}

func (j *job) downloadPDF(ctx context.Context) error {
	err := j.pdfStore.GetFile(ctx, j.event.PDFKey, j.localPDFPath)
	if err != nil {
		return fmt.Errorf(
			"failed to get PDF '%s' from object store: %w",
			j.event.PDFKey,
			err,
		)
	}
	return nil
}

// processPDF converts the downloaded PDF into its printer-friendly form and
// returns the local path of the result.
func (j *job) processPDF(ctx context.Context) (string, error) {
	opts := &pdfproc.Options{
		InputPath:    j.localPDFPath,
		OutputPath:   j.workDir,
		DPI:          defaultIntNonPositive(j.cfg.Settings.DPI, defaultDPI),
		Workers:      defaultIntNonPositive(j.cfg.Settings.Workers, defaultWorkerCount),
		CombinePages: j.cfg.Settings.CombinePages,
	}
	processor := pdfproc.NewProcessor(opts, j.appLogger)

	outputPath := pdfproc.OutputPathFor(j.workDir, j.localPDFPath)

	processErr := processor.ProcessOnePDF(ctx, j.localPDFPath, outputPath)
	if processErr != nil {
		return "", fmt.Errorf("failed to process PDF: %w", processErr)
	}

	return outputPath, nil
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// publishProcessedPDF uploads the result to the object store and publishes a
// completion event.
func (j *job) publishProcessedPDF(ctx context.Context, processedPath string) error {
	pdfBaseName := strings.TrimSuffix(j.event.PDFKey, filepath.Ext(j.event.PDFKey))
	objectName := fmt.Sprintf(
		"%s/%s/%s_processed.pdf",
		j.header.TenantID,
		j.header.WorkflowID,
		pdfBaseName,
	)

	uploadErr := uploadFileToObjectStore(ctx, j.processedStore, objectName, processedPath)
	if uploadErr != nil {
		return fmt.Errorf("failed to upload '%s': %w", objectName, uploadErr)
	}
	j.appLogger.Info("Job [%s]: Uploaded '%s'", j.header.WorkflowID, objectName)

	publishErr := j.publishProcessedEvent(ctx, objectName)
	if publishErr != nil {
		return fmt.Errorf(
			"failed to publish event for '%s': %w",
			objectName,
			publishErr,
		)
	}
	j.appLogger.Info("Job [%s]: Published event for '%s'", j.header.WorkflowID, objectName)

	return nil
}

// publishProcessedEvent marshals and publishes the completion event carrying
// the processed PDF's object key.
func (j *job) publishProcessedEvent(ctx context.Context, processedKey string) error {
	processedEvent := events.PDFCreatedEvent{
		Header: events.EventHeader{
			WorkflowID: j.header.WorkflowID,
			UserID:     j.header.UserID,
			TenantID:   j.header.TenantID,
			EventID:    uuid.New().String(),
			Timestamp:  time.Now(),
		},
		PDFKey: processedKey,
	}
	eventJSON, marshalErr := json.Marshal(processedEvent)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal completion event: %w", marshalErr)
	}
	_, pubErr := j.jetStream.Publish(ctx, j.cfg.NATS.ProcessedSubject, eventJSON)
	if pubErr != nil {
		return fmt.Errorf("failed to publish completion event: %w", pubErr)
	}
	return nil
}

func (j *job) ack() {
	if err := j.msg.Ack(); err != nil {
		j.appLogger.Error(
			"Job [%s]: Failed to acknowledge message: %v",
			j.header.WorkflowID,
			err,
		)
	} else {
		j.appLogger.Success(
			"Job [%s]: Processing complete. Acknowledged.",
			j.header.WorkflowID,
		)
	}
}

func (j *job) nak(reason error) {
	j.appLogger.Error("NAK'ing message for job [%s]: %v", j.header.WorkflowID, reason)
	if err := j.msg.Nak(); err != nil {
		j.appLogger.Error("Failed to NAK message: %v", err)
	}
}

func (j *job) term(reason error) {
	j.appLogger.Error("Terminating message for job [%s]: %v", j.header.WorkflowID, reason)
	if err := j.msg.Term(); err != nil {
		j.appLogger.Error("Failed to TERM message: %v", err)
	}
}

func uploadFileToObjectStore(
	ctx context.Context,
	store jetstream.ObjectStore,
	objectName, filePath string,
) error {
	file, openErr := os.Open(filePath)
	if openErr != nil {
		return fmt.Errorf("failed to open file for upload: %w", openErr)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close file '%s': %v", filePath, closeErr)
		}
	}()

	meta := jetstream.ObjectMeta{Name: objectName}
	_, putErr := store.Put(ctx, meta, file)
	if putErr != nil {
		return fmt.Errorf("failed to put file in object store: %w", putErr)
	}
	return nil
}
