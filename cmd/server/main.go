package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ordermatch/api/grpcserver"
	"ordermatch/config"
	"ordermatch/infra/kafka"
	"ordermatch/infra/logging"
	"ordermatch/infra/sequence"
	"ordermatch/infra/tradestore"
	entrywal "ordermatch/infra/wal/entry"
	exitwal "ordermatch/infra/wal/exit"
	"ordermatch/jobs/broadcaster"
	"ordermatch/jobs/retention"
	"ordermatch/service"
	"ordermatch/snapshot"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Errorw("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.SugaredLogger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		var merr *multierror.Error
		for i := len(closers) - 1; i >= 0; i-- {
			merr = multierror.Append(merr, closers[i].Close())
		}
		err = multierror.Append(merr, err).ErrorOrNil()
	}()

	// ---------------- Journal ----------------

	wal, err := entrywal.Open(entrywal.Config{
		Dir:         cfg.Journal.Dir,
		SegmentSize: cfg.Journal.SegmentSize,
	})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	journal := entrywal.NewJournal(wal)
	closers = append(closers, journal)
	log.Infow("journal opened", "dir", cfg.Journal.Dir, "last_seq", wal.LastSeq())

	// ---------------- Outbox ----------------

	outbox, err := exitwal.Open(cfg.Outbox.Dir)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	closers = append(closers, outbox)

	// ---------------- Sinks ----------------

	var sinks []broadcaster.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := newPublisher(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka %s: %w", cfg.Kafka.Client, err)
		}
		closers = append(closers, pub)
		sinks = append(sinks, broadcaster.NewKafkaSink(pub))
		log.Infow("kafka sink enabled", "client", cfg.Kafka.Client, "topic", cfg.Kafka.Topic)
	}
	if cfg.Postgres.DSN != "" {
		store, err := tradestore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		closers = append(closers, store)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, broadcaster.NewTradeSink(store))
		log.Info("trade store sink enabled")
	}

	// ---------------- Engine ----------------

	engine := service.NewMatchingEngine(service.Options{
		Symbols:         cfg.Engine.Symbols,
		AllowNewSymbols: cfg.Engine.AllowNewSymbols,
		OrderIDs:        sequence.New(uint64(time.Now().UnixNano())),
		ExecutionIDs:    sequence.New(uint64(time.Now().UnixNano())),
		Sink:            service.NewOutboxSink(outbox, outbox.LastSeq()),
		Journal:         journal,
		Logger:          log.Named("engine"),
	})

	// ---------------- Background jobs ----------------

	var wg sync.WaitGroup
	defer wg.Wait()

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	bc := broadcaster.New(outbox, cfg.Outbox.Interval, log.Named("broadcaster"), sinks...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		bc.Run(jobCtx)
	}()

	if cfg.Journal.Retain > 0 {
		job := retention.New(wal, cfg.Journal.Retain, cfg.Journal.RetentionInterval, log.Named("retention"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run(jobCtx)
		}()
		log.Infow("journal retention enabled", "retain", cfg.Journal.Retain, "interval", cfg.Journal.RetentionInterval)
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, rdb)
		store := snapshot.NewStore(rdb, cfg.Redis.TTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.RunSnapshotJob(jobCtx, store, cfg.Redis.SnapshotInterval, cfg.Redis.Depth)
		}()
		log.Infow("depth snapshots enabled", "addr", cfg.Redis.Addr, "interval", cfg.Redis.SnapshotInterval)
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	srv := grpcserver.NewGRPCServer(grpcserver.NewServer(engine, grpcserver.NewTicks(cfg.Engine.PriceScale), log.Named("grpc")))
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()
	log.Infow("ordermatch running", "listen", cfg.Listen, "symbols", engine.Symbols())

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		srv.GracefulStop()
		err = <-serveErr
	case err = <-serveErr:
	}
	cancelJobs()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func newPublisher(cfg config.Kafka) (kafka.Publisher, error) {
	if cfg.Client == config.KafkaKafkaGo {
		return kafka.NewProducer(cfg.Brokers, cfg.Topic), nil
	}
	return kafka.NewSaramaProducer(cfg.Brokers, cfg.Topic)
}
