// stress soaks a stripeset.Set with concurrent workers, verifies it against
// an oracle map and exposes progress as prometheus metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/llxisdsh/stripeset/benchmark/stress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var version = "dev"

var (
	cfg           = stress.DefaultConfig()
	listenAddress string
)

func init() {
	log.Logger = log.Logger.Level(zerolog.InfoLevel)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

var app = &cli.App{
	Name:    "stress",
	Usage:   "Soak test a stripeset.Set against an oracle map.",
	Version: version,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:       "debug",
			EnvVars:    []string{"DEBUG"},
			Value:      false,
			HasBeenSet: true,
			Action: func(_ *cli.Context, s bool) error {
				if s {
					log.Logger = log.Logger.Level(zerolog.DebugLevel)
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
		&cli.BoolFlag{
			Name:       "log-json",
			EnvVars:    []string{"LOG_JSON"},
			Value:      false,
			HasBeenSet: true,
			Action: func(_ *cli.Context, s bool) error {
				if !s {
					log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
				}
				return nil
			},
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of writer goroutines.",
			Value:       cfg.Workers,
			Destination: &cfg.Workers,
			EnvVars:     []string{"STRESS_WORKERS"},
		},
		&cli.IntFlag{
			Name:        "keys",
			Usage:       "Size of each worker's private key range.",
			Value:       cfg.KeysPerWorker,
			Destination: &cfg.KeysPerWorker,
			EnvVars:     []string{"STRESS_KEYS"},
		},
		&cli.IntFlag{
			Name:        "ops",
			Usage:       "Operations per worker. 0 runs until --duration expires.",
			Value:       0,
			Destination: &cfg.OpsPerWorker,
			EnvVars:     []string{"STRESS_OPS"},
		},
		&cli.DurationFlag{
			Name:        "duration",
			Usage:       "Run time. 0 runs until --ops is done.",
			Value:       time.Minute,
			Destination: &cfg.Duration,
			EnvVars:     []string{"STRESS_DURATION"},
		},
		&cli.Float64Flag{
			Name:        "remove-ratio",
			Usage:       "Share of operations that are removals.",
			Value:       cfg.RemoveRatio,
			Destination: &cfg.RemoveRatio,
			EnvVars:     []string{"STRESS_REMOVE_RATIO"},
		},
		&cli.IntFlag{
			Name:        "readers",
			Usage:       "Goroutines enumerating the set during the run.",
			Value:       cfg.Readers,
			Destination: &cfg.Readers,
			EnvVars:     []string{"STRESS_READERS"},
		},
		&cli.IntFlag{
			Name:        "concurrency-level",
			Usage:       "Stripe lock count. 0 lets the set pick and grow it.",
			Destination: &cfg.ConcurrencyLevel,
			EnvVars:     []string{"STRESS_CONCURRENCY_LEVEL"},
		},
		&cli.IntFlag{
			Name:        "capacity",
			Usage:       "Initial bucket count. 0 uses the default.",
			Destination: &cfg.Capacity,
			EnvVars:     []string{"STRESS_CAPACITY"},
		},
		&cli.BoolFlag{
			Name:        "fair-locks",
			Usage:       "Use FIFO ticket locks for the stripes.",
			Destination: &cfg.FairLocks,
			EnvVars:     []string{"STRESS_FAIR_LOCKS"},
		},
		&cli.StringFlag{
			Name:        "metrics.listen-address",
			Usage:       "The address to serve /metrics on. Empty disables it.",
			Value:       ":3000",
			Destination: &listenAddress,
			EnvVars:     []string{"METRICS_LISTEN_ADDRESS"},
		},
	},
	Action: func(cCtx *cli.Context) error {
		ctx, cancel := context.WithCancel(cCtx.Context)
		defer cancel()

		// Trap cleanup
		cleanChan := make(chan os.Signal, 1)
		signal.Notify(cleanChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-cleanChan
			log.Info().Msg("interrupted, finishing run")
			cancel()
		}()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics := stress.NewMetrics(reg)

		if listenAddress != "" {
			srv := &http.Server{
				Addr:              listenAddress,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info().Str("listenAddress", listenAddress).Msg("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Err(err).Msg("fail to serve http")
				}
			}()
			defer func() {
				if err := srv.Shutdown(context.Background()); err != nil {
					log.Err(err).Msg("failed to shutdown http server")
				}
			}()
		}

		log.Info().
			Int("workers", cfg.Workers).
			Int("keys", cfg.KeysPerWorker).
			Dur("duration", cfg.Duration).
			Bool("fairLocks", cfg.FairLocks).
			Msg("starting stress run")
		res, err := stress.Run(ctx, cfg, metrics)
		if err != nil {
			return err
		}
		log.Info().
			Float64("opsPerSecond", float64(res.Ops)/res.Elapsed.Seconds()).
			Int64("enumerated", res.Enumerated).
			Msg("done")
		log.Debug().Msg(res.Stats.String())
		return nil
	},
}

func main() {
	log.Logger = log.Logger.With().Caller().Logger()
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("application finished")
	}
}
