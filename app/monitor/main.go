package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/chainsentry/poa-monitor/api"
	"github.com/chainsentry/poa-monitor/chain"
	"github.com/chainsentry/poa-monitor/db"
	"github.com/chainsentry/poa-monitor/directory"
	"github.com/chainsentry/poa-monitor/kafka"
	"github.com/chainsentry/poa-monitor/metrics"
	"github.com/chainsentry/poa-monitor/sync"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "POA_MONITOR"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	log.SetOutput(os.Stdout) // default is stderr

	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		Chain struct {
			WsUrl            string `conf:"default:ws://localhost:8546"`
			RpcUrl           string `conf:"default:http://localhost:8545"`
			RegistryContract string `conf:"default:0x0000000000000000000000000000000000001000"`
		}
		Epoch struct {
			Length uint64   `conf:"default:200"`
			Cohort []string `conf:"required"` // the tracked validator identities
		}
		Broker struct {
			BootstrapServers []string `conf:"default:localhost:9092"`
			EpochTopic       string   `conf:"default:poa-epoch-records"`
			BlockTopic       string   `conf:"default:poa-block-records"`
		}
		Sync struct {
			InternalStoreFolder string `conf:"default:store"`
			ServerPort          int    `conf:"default:8000"`
			MetricsPort         int    `conf:"default:9999"`
			MetricsNamespace    string `conf:"default:poa_monitor"`
		}
	}

	if err := conf.Parse(os.Args[1:], envPrefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main: Config :\n%v\n", out)

	m := kprom.NewMetrics(cfg.Sync.MetricsNamespace,
		kprom.Registerer(prometheus.DefaultRegisterer),
		kprom.Gatherer(prometheus.DefaultGatherer))
	kcl, err := kgo.NewClient(
		kgo.WithHooks(m),
		kgo.SeedBrokers(cfg.Broker.BootstrapServers...),
		kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		kgo.WithLogger(kgo.BasicLogger(os.Stdout, kgo.LogLevelInfo, nil)),
	)
	if err != nil {
		return errors.Wrap(err, "creating kafka client")
	}
	defer kcl.Close()

	store, err := db.NewPebbleStore(cfg.Sync.InternalStoreFolder)
	if err != nil {
		return errors.Wrap(err, "creating db")
	}
	defer store.Close()

	lastProcessedBlock, err := store.GetLastProcessedBlock()
	if errors.Is(err, db.ErrNotFound) {
		log.Println("main: Empty store, starting fresh.")
	} else if err != nil {
		return errors.Wrap(err, "getting last processed block")
	} else {
		log.Printf("main: Resuming after block [%d], records are appended to the existing store.", lastProcessedBlock)
	}

	registry, err := chain.NewRegistry(cfg.Chain.RpcUrl, cfg.Chain.RegistryContract)
	if err != nil {
		return errors.Wrap(err, "creating registry client")
	}
	defer registry.Close()

	cache, err := directory.NewCache(registry, cfg.Epoch.Cohort)
	if err != nil {
		return errors.Wrap(err, "creating validator directory cache")
	}
	// the first refresh must succeed, a directory that is unreachable at
	// startup is fatal
	if err := cache.Refresh(context.Background()); err != nil {
		return errors.Wrap(err, "initial validator directory refresh")
	}
	log.Printf("main: Loaded [%d] validators from the registry.", len(cache.Current()))

	publisher := kafka.NewRecordPublisher(kcl, cfg.Broker.EpochTopic, cfg.Broker.BlockTopic)
	procMetrics := metrics.NewProcessingMetrics(cfg.Sync.MetricsNamespace)
	aggregator := sync.NewAggregator(cache, store, publisher, cfg.Epoch.Length, procMetrics, sLogger)
	feed := chain.NewFeed(cfg.Chain.WsUrl, procMetrics, sLogger)

	procErr := make(chan error, 1)
	go func() {
		procErr <- feed.Run(context.Background(), aggregator)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// status endpoint
	apiError := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		handler := api.NewHandler(store)
		mux.HandleFunc("/health", handler.GetHealth)
		mux.HandleFunc("/status", handler.GetStatus)
		log.Printf("main: Starting server on port [%d].", cfg.Sync.ServerPort)
		apiError <- http.ListenAndServe(fmt.Sprintf(":%d", cfg.Sync.ServerPort), mux)
	}()

	metricsError := make(chan error, 1)
	go func() {
		log.Printf("main: Starting metrics server on port [%d].", cfg.Sync.MetricsPort)
		http.Handle("/metrics", promhttp.Handler())
		metricsError <- http.ListenAndServe(fmt.Sprintf(":%d", cfg.Sync.MetricsPort), nil)
	}()

	log.Println("main: Service started.")

	for {
		select {
		case <-shutdown:
			log.Println("main: Received shutdown signal, shutting down...")
			return nil
		case err := <-procErr:
			return fmt.Errorf("[ERROR] processing: %v", err)
		case err := <-metricsError:
			return fmt.Errorf("[ERROR] starting server: %v", err)
		case err := <-apiError:
			return fmt.Errorf("[ERROR] starting server: %v", err)
		}
	}
}
