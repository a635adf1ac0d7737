// stealbench drives the work-stealing scheduler with a synthetic fork/join
// tree and reports throughput, optionally exposing Prometheus metrics.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	workstealing "github.com/Swind/go-work-stealing"
	"github.com/Swind/go-work-stealing/core"
	wsprom "github.com/Swind/go-work-stealing/observability/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := &cli.App{
		Name:  "stealbench",
		Usage: "benchmark the fork/join work-stealing scheduler",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "threads",
				Usage: "worker thread count (0 = all logical CPUs)",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "affinity",
				Usage: "pin each worker to the CPU matching its index",
			},
			&cli.Int64Flag{
				Name:  "tasks",
				Usage: "number of leaf tasks per round",
				Value: 1 << 16,
			},
			&cli.IntFlag{
				Name:  "rounds",
				Usage: "number of measured rounds",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "expose Prometheus metrics on this address (e.g. :9090)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	workstealing.Create(c.Int("threads"), c.Bool("affinity"))
	defer workstealing.Destroy()

	config := core.DefaultSchedulerConfig()
	config.Name = "stealbench"

	if addr := c.String("metrics-addr"); addr != "" {
		exporter, err := wsprom.NewMetricsExporter("stealbench", prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		config.Metrics = exporter

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Printf("metrics endpoint stopped: %v", err)
			}
		}()
	}

	tasks := c.Int64("tasks")
	rounds := c.Int("rounds")

	fmt.Printf("threads=%d tasks=%d rounds=%d\n", workstealing.ThreadCount(), tasks, rounds)

	for round := 1; round <= rounds; round++ {
		var executed atomic.Int64

		start := time.Now()
		err := workstealing.SpawnRootAndWaitWithConfig(config, tasks, func(t *workstealing.Thread) {
			forkJoinTree(t, 0, tasks, &executed)
			t.Wait()
		})
		elapsed := time.Since(start)

		if err != nil {
			return err
		}
		rate := float64(executed.Load()) / elapsed.Seconds()
		fmt.Printf("round %d: %d tasks in %v (%.0f tasks/s)\n",
			round, executed.Load(), elapsed, rate)
	}

	return nil
}

// forkJoinTree splits [begin, end) until single leaves remain, counting each
// leaf execution.
func forkJoinTree(t *workstealing.Thread, begin, end int64, executed *atomic.Int64) {
	if end-begin <= 1 {
		executed.Add(1)
		return
	}
	mid := begin + (end-begin)/2
	t.Spawn(end-mid, func(t *workstealing.Thread) {
		forkJoinTree(t, mid, end, executed)
	})
	forkJoinTree(t, begin, mid, executed)
	t.Wait()
}
