package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrej220/hamagent/internal/lg"
	"github.com/andrej220/hamagent/internal/metrics"
	"github.com/andrej220/hamagent/internal/serverutil"
	"github.com/andrej220/hamagent/pkg/config"
	"github.com/andrej220/hamagent/pkg/config/configstore"
	"github.com/andrej220/hamagent/pkg/config/filestore"
	"github.com/andrej220/hamagent/pkg/deviceid"
	"github.com/andrej220/hamagent/pkg/executor"
	"github.com/andrej220/hamagent/pkg/reporter"
	"github.com/andrej220/hamagent/pkg/scheduler"
	"github.com/sony/gobreaker"
)

const storeCloseTimeout = 5 * time.Second

type agent struct {
	logger   lg.Logger
	store    config.Config
	deviceID string
	exec     executor.Executor
	recorder *metrics.Recorder
	reload   chan struct{}
}

// run starts the agent and blocks until ctx is cancelled. Every error it
// returns happens before the first command loop starts, except a loop
// crashing outside its cycle.
func run(ctx context.Context, opts *Options, logger lg.Logger) error {
	store, err := openStore(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	cfg, err := config.Load(store)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deviceID, err := resolveDeviceID(ctx, opts)
	if err != nil {
		return fmt.Errorf("resolve device id: %w", err)
	}
	logger.Info("agent starting",
		lg.String("device_id", deviceID),
		lg.String("collector", reporter.CollectorURL(cfg.ServerAddress, cfg.ServerPort)),
		lg.Int("commands", len(cfg.Commands)))

	a := &agent{
		logger:   logger,
		store:    store,
		deviceID: deviceID,
		exec:     executor.NewLocalExecutor(logger),
		recorder: metrics.NewRecorder(),
		reload:   make(chan struct{}, 1),
	}

	if opts.MetricsAddr != "" {
		srvCfg := serverutil.DefaultServerConfig()
		srvCfg.Addr = opts.MetricsAddr
		go func() {
			if err := serverutil.RunServer(ctx, metrics.NewRouter(a.recorder, deviceID), srvCfg, logger); err != nil {
				logger.Error("metrics server failed", lg.Err(err))
			}
		}()
	}

	if opts.Watch {
		a.watch(ctx)
	}
	return a.supervise(ctx, cfg)
}

func openStore(ctx context.Context, opts *Options, logger lg.Logger) (config.Config, error) {
	storeType, err := config.ParseStoreType(opts.ConfigStore)
	if err != nil {
		return nil, err
	}

	var storeCfg any
	switch storeType {
	case config.MongoStore:
		storeCfg = &config.MongoConfig{
			URI:      opts.MongoURI,
			DBName:   opts.MongoDB,
			CollName: opts.MongoCollection,
			ID:       opts.MongoID,
		}
	default:
		storeCfg = &config.FileConfig{Path: opts.ConfigPath}
	}

	store, err := config.NewStore(ctx, storeType, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	if fstore, ok := store.(*filestore.FileStore); ok {
		fstore.OnWatchError = func(err error) { logger.Warn("config watch error", lg.Err(err)) }
	}
	return store, nil
}

func closeStore(store config.Config, logger lg.Logger) {
	c, ok := store.(interface{ Close(context.Context) error })
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		logger.Warn("failed to close config store", lg.Err(err))
	}
}

func resolveDeviceID(ctx context.Context, opts *Options) (string, error) {
	providers := []deviceid.Provider{deviceid.Static(opts.DeviceID), deviceid.Platform()}
	if opts.DeviceIDFile != "" {
		providers = append(providers, deviceid.File(opts.DeviceIDFile))
	}
	return deviceid.Chain(providers...).DeviceID(ctx)
}

func (a *agent) watch(ctx context.Context) {
	err := a.store.Watch(ctx, func() {
		select {
		case a.reload <- struct{}{}:
		default:
		}
	})
	switch {
	case errors.Is(err, configstore.ErrWatchUnsupported):
		a.logger.Warn("config store cannot be watched, reload disabled")
	case err != nil:
		a.logger.Warn("failed to watch config, reload disabled", lg.Err(err))
	default:
		a.logger.Info("watching config for changes")
	}
}

// supervise runs the scheduler for cfg and restarts it whenever a valid
// new config arrives. Only the first reporter build is fatal.
func (a *agent) supervise(ctx context.Context, cfg *config.AgentConfig) error {
	rep, err := buildReporter(cfg, a.logger)
	if err != nil {
		return err
	}

	for {
		loopCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		sched := a.newScheduler(cfg, rep)
		go func() { done <- sched.Run(loopCtx) }()

		next, exited, err := a.waitForReload(ctx, done)
		if next != nil {
			a.logger.Info("stopping command loops for reload", lg.Int32("loops", sched.ActiveLoops()))
		}
		cancel()
		if !exited {
			err = <-done
		}
		if cerr := rep.Close(); cerr != nil {
			a.logger.Warn("failed to close reporters", lg.Err(cerr))
		}

		if next == nil {
			a.logger.Info("agent stopped")
			return err
		}
		a.logger.Info("config reloaded, restarting command loops", lg.Int("commands", len(next.cfg.Commands)))
		cfg, rep = next.cfg, next.rep
	}
}

type reloaded struct {
	cfg *config.AgentConfig
	rep reporter.Multi
}

// waitForReload blocks until ctx ends, the scheduler returns, or a new
// config is loaded and its reporters are connected. A config that fails
// either step is logged and the running one kept.
func (a *agent) waitForReload(ctx context.Context, done <-chan error) (*reloaded, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, false, nil
		case err := <-done:
			return nil, true, err
		case <-a.reload:
			cfg, err := config.Load(a.store)
			if err != nil {
				a.logger.Error("reloaded config rejected, keeping the running one", lg.Err(err))
				continue
			}
			rep, err := buildReporter(cfg, a.logger)
			if err != nil {
				a.logger.Error("reloaded config rejected, keeping the running one", lg.Err(err))
				continue
			}
			return &reloaded{cfg: cfg, rep: rep}, false, nil
		}
	}
}

func (a *agent) newScheduler(cfg *config.AgentConfig, rep reporter.Reporter) *scheduler.Scheduler {
	opts := []scheduler.Option{
		scheduler.WithLogger(a.logger),
		scheduler.WithRecorder(a.recorder),
	}
	if bc := cfg.CircuitBreaker; bc != nil && bc.Enabled {
		opts = append(opts, scheduler.WithReporterFactory(func(spec config.CommandSpec) reporter.Reporter {
			return reporter.NewBreaker(rep, reporter.BreakerSettings{
				Name:        spec.Command,
				MaxFailures: bc.MaxFailures,
				OpenFor:     time.Duration(bc.OpenSeconds) * time.Second,
				OnStateChange: func(name string, from, to gobreaker.State) {
					a.logger.Warn("delivery circuit changed state",
						lg.String("command", name),
						lg.String("from", from.String()),
						lg.String("to", to.String()))
				},
			})
		}))
	}
	return scheduler.New(cfg.CommandSpecs(), a.deviceID, a.exec, rep, opts...)
}

// buildReporter returns the collector reporter followed by every
// configured sink. A sink that cannot connect is an error.
func buildReporter(cfg *config.AgentConfig, logger lg.Logger) (reporter.Multi, error) {
	ep := cfg.Endpoint()
	reps := reporter.Multi{reporter.NewHTTPReporter(ep.Host, ep.Port, cfg.RequestTimeout(), logger)}

	if k := cfg.Sinks.Kafka; k != nil {
		reps = append(reps, reporter.NewKafkaReporter(k.Brokers, k.Topic))
		logger.Info("kafka sink enabled", lg.String("topic", k.Topic))
	}
	if m := cfg.Sinks.MQTT; m != nil {
		r, err := reporter.NewMQTTReporter(m.Broker, m.ClientID, m.Topic, m.QoS)
		if err != nil {
			_ = reps.Close()
			return nil, err
		}
		reps = append(reps, r)
		logger.Info("mqtt sink enabled", lg.String("topic", m.Topic))
	}
	if rc := cfg.Sinks.Redis; rc != nil {
		r, err := reporter.NewRedisReporter(rc.URL, rc.Channel)
		if err != nil {
			_ = reps.Close()
			return nil, err
		}
		reps = append(reps, r)
		logger.Info("redis sink enabled", lg.String("channel", rc.Channel))
	}
	return reps, nil
}
