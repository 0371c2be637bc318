package kv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/cmd/util"
	"github.com/ValentinKolb/rmemstore/rpc/client"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const (
	// benchSampleSize is the reservoir size of the latency histograms
	benchSampleSize = 100_000
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Load generator for rmemstore servers",
		Long: `Sends a mix of put and get requests over several connections, each with
a fixed number of requests in flight. Every second the number of responses,
the response rate and latency percentiles are printed.`,
		Args:    cobra.NoArgs,
		PreRunE: processBenchConfig,
		RunE:    runBench,
	}
	benchConnections = 4
	benchConcurrency = 128
	benchDuration    = time.Duration(0)
	benchKeys        = uint64(2 << 21)
	benchPutPercent  = uint64(10)
	benchMetrics     = false
)

func init() {
	// add flags
	key := "connections"
	benchCmd.Flags().Int(key, benchConnections, util.WrapString("Number of connections to open, each with its own reader"))
	key = "concurrency"
	benchCmd.Flags().Int(key, benchConcurrency, util.WrapString("Requests in flight per connection"))
	key = "duration"
	benchCmd.Flags().Duration(key, benchDuration, util.WrapString("How long to run (0 = until interrupted)"))
	key = "keys"
	benchCmd.Flags().Uint64(key, benchKeys, util.WrapString("How many different keys to use"))
	key = "put-percent"
	benchCmd.Flags().Uint64(key, benchPutPercent, util.WrapString("Share of put requests in percent, the rest are gets"))
	key = "metrics"
	benchCmd.Flags().Bool(key, benchMetrics, util.WrapString("Print the client connection metrics in Prometheus format at the end"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchConnections = max(viper.GetInt("connections"), 1)
	benchConcurrency = max(viper.GetInt("concurrency"), 1)
	benchDuration = viper.GetDuration("duration")
	benchKeys = max(viper.GetUint64("keys"), 1)
	benchPutPercent = min(viper.GetUint64("put-percent"), 100)
	benchMetrics = viper.GetBool("metrics")

	return nil
}

// benchStats collects the results of all workers
type benchStats struct {
	registry  gometrics.Registry
	responses gometrics.Counter   // responses since the last report
	errors    gometrics.Counter   // failed requests since the last report
	interval  gometrics.Histogram // latency in ns since the last report
	latency   gometrics.Histogram // latency in ns of the whole run
	rate      gometrics.Meter
}

func newBenchStats() (*benchStats, error) {
	s := &benchStats{
		registry:  gometrics.NewRegistry(),
		responses: gometrics.NewCounter(),
		errors:    gometrics.NewCounter(),
		interval:  gometrics.NewHistogram(gometrics.NewUniformSample(benchSampleSize)),
		latency:   gometrics.NewHistogram(gometrics.NewUniformSample(benchSampleSize)),
		rate:      gometrics.NewMeter(),
	}

	// only the totals are part of the summary
	if err := s.registry.Register("latency_ns", s.latency); err != nil {
		return nil, fmt.Errorf("failed to register latency histogram: %w", err)
	}
	if err := s.registry.Register("responses", s.rate); err != nil {
		return nil, fmt.Errorf("failed to register response meter: %w", err)
	}
	return s, nil
}

func runBench(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if benchDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, benchDuration)
		defer cancel()
	}

	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	fmt.Println("Load generator for rmemstore servers")
	fmt.Println(config.String())
	fmt.Printf("Connections: %d, in flight per connection: %d, keys: %d, puts: %d%%\n\n",
		benchConnections, benchConcurrency, benchKeys, benchPutPercent)

	// open all connections before sending
	clients := make([]client.IMemstore, 0, benchConnections)
	transports := make([]transport.IRPCClientTransport, 0, benchConnections)
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	for i := 0; i < benchConnections; i++ {
		c, t, err := connect()
		if err != nil {
			return fmt.Errorf("failed to open connection %d: %w", i, err)
		}
		clients = append(clients, c)
		transports = append(transports, t)
	}

	stats, err := newBenchStats()
	if err != nil {
		return err
	}
	defer stats.rate.Stop()

	var counter atomic.Uint64
	var wg sync.WaitGroup
	for i, c := range clients {
		i, c := i, c
		for j := 0; j < benchConcurrency; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runBenchWorker(ctx, c, transports[i], &counter, stats)
			}()
		}
	}

	// report every second until all workers stopped
	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	last := time.Now()
	for running := true; running; {
		select {
		case <-ticker.C:
			report(stats, time.Since(last))
			last = time.Now()
		case <-workersDone:
			report(stats, time.Since(last))
			running = false
		}
	}

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Println(renderSummary(stats.registry, os.Stdout))

	if benchMetrics {
		fmt.Println()
		for _, t := range transports {
			t.WriteMetrics(os.Stdout)
		}
	}

	return nil
}

// runBenchWorker sends one request at a time until ctx is done or the connection stopped
func runBenchWorker(ctx context.Context, c client.IMemstore, t transport.IRPCClientTransport, counter *atomic.Uint64, stats *benchStats) {
	key := make([]byte, 8)
	for ctx.Err() == nil {
		i := counter.Add(1)
		item := i % benchKeys
		binary.BigEndian.PutUint64(key, item)

		start := time.Now()
		var err error
		if i%100 < benchPutPercent {
			value := make([]byte, 8)
			binary.BigEndian.PutUint64(value, item+1)
			err = c.Put(ctx, key, common.BlobValue(value))
		} else {
			_, _, err = c.Get(ctx, key)
		}

		switch {
		case err == nil || errors.Is(err, client.ErrRejected):
			elapsed := time.Since(start).Nanoseconds()
			stats.interval.Update(elapsed)
			stats.latency.Update(elapsed)
			stats.responses.Inc(1)
			stats.rate.Mark(1)
		case ctx.Err() != nil:
			return
		default:
			stats.errors.Inc(1)
			select {
			case <-t.Done():
				Logger.Errorf("connection stopped: %v", t.Err())
				return
			default:
				Logger.Warningf("request failed: %v", err)
			}
		}
	}
}

// report prints and resets the interval statistics
func report(stats *benchStats, elapsed time.Duration) {
	total := stats.responses.Count()
	stats.responses.Clear()
	failed := stats.errors.Count()
	stats.errors.Clear()

	snapshot := stats.interval.Snapshot()
	stats.interval.Clear()

	hz := float64(total) / max(elapsed.Seconds(), 0.1)
	p := snapshot.Percentiles([]float64{0.9, 0.999, 0.9999})

	line := fmt.Sprintf("Messages: %10d rate: %9.1fhz p90: %6.1fµs p999: %6.1fµs p9999: %6.1fµs",
		total, hz, p[0]/1000, p[1]/1000, p[2]/1000)
	if failed > 0 {
		line += fmt.Sprintf(" errors: %d", failed)
	}
	fmt.Fprintln(os.Stderr, line)
}
