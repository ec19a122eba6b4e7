package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/config"
	"github.com/grokpulse/grokpulse/internal/metrics"
	"github.com/grokpulse/grokpulse/internal/scheduler"
	"github.com/grokpulse/grokpulse/internal/store"
	"github.com/grokpulse/grokpulse/pkg/collect"
	"github.com/grokpulse/grokpulse/pkg/server"
	"github.com/grokpulse/grokpulse/pkg/source"
	"github.com/grokpulse/grokpulse/pkg/topics"
	"github.com/grokpulse/grokpulse/pkg/trend"
)

type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.SQLiteStore
}

func newApp() (*app, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, log: log, store: db}, nil
}

func (a *app) close() {
	a.store.Close()
	a.log.Sync()
}

func (a *app) buildClient() source.SearchClient {
	if a.cfg.Collector.BearerToken != "" {
		return source.NewXSearch(a.cfg.Collector.BearerToken)
	}
	a.log.Warn("no bearer token configured, falling back to nitter RSS")
	return source.NewNitter(a.cfg.Collector.NitterURL)
}

func (a *app) buildCollector() *collect.Collector {
	gate := collect.NewRateGate(a.store, a.cfg.Collector.ParseInterval(), a.log)
	return collect.New(
		a.store,
		a.buildClient(),
		gate,
		a.cfg.Collector.Queries,
		a.cfg.Collector.MaxResults,
		a.cfg.Collector.MonthlyCap,
		a.log,
	)
}

func (a *app) buildExtractor() *topics.Extractor {
	table := topics.NewCategoryTable(a.cfg.Topics.ExtraKeywords)
	return topics.NewExtractor(a.store, topics.NewHeuristicStrategy(table), "twitter", a.log)
}

func runCollect(block bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.buildCollector().Collect(context.Background(), block)
	if err != nil {
		return err
	}
	if res.Wait > 0 {
		fmt.Printf("rate limited: wait %s\n", res.Wait.Round(time.Second))
		return nil
	}
	fmt.Printf("collected %d new posts (%d fetched) with query %q\n", res.Added, res.Fetched, res.Query)
	return nil
}

func runExtract() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.buildExtractor().Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("extracted %d topic mentions\n", n)
	return nil
}

func runAggregate(backfillHours int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	agg := trend.NewAggregator(a.store, a.log)

	if err := agg.RollupDaily(ctx); err != nil {
		return err
	}
	if err := agg.ComputeGrowth(ctx); err != nil {
		return err
	}
	if err := agg.RollupHourly(ctx); err != nil {
		return err
	}
	if backfillHours > 0 {
		if err := agg.Backfill(ctx, backfillHours); err != nil {
			return err
		}
	}

	fmt.Println("aggregation done")
	return nil
}

func runTrends(jsonOutput bool, days int, category string, limit int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.store.TopTrends(context.Background(), days, category, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("no trends found (try collecting data first: grokpulse collect)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MENTIONS\tGROWTH\tCATEGORY\tTOPIC")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%+.1f%%\t%s\t%s\n",
			row.TotalMentions, row.AvgGrowth, row.Category, row.TopicName)
	}
	return w.Flush()
}

func runInterest(topicNames []string, hours int, metric, normalize string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	points, err := trend.NewInterestIndex(a.store).Series(context.Background(), trend.InterestOpts{
		Topics:    topicNames,
		Hours:     hours,
		Metric:    trend.Metric(metric),
		Normalize: trend.Normalization(normalize),
	})
	if err != nil {
		return err
	}

	var lastTS time.Time
	line := ""
	for _, p := range points {
		if !p.BucketTS.Equal(lastTS) {
			if line != "" {
				fmt.Println(line)
			}
			line = p.BucketTS.Format("2006-01-02 15:04") + "  "
			lastTS = p.BucketTS
		}
		line += fmt.Sprintf("%s=%3d  ", p.TopicName, p.Value)
	}
	if line != "" {
		fmt.Println(line)
	}
	return nil
}

func runServe(port int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	metrics.Register()
	srv := server.New(a.store, trend.NewInterestIndex(a.store), nil, port, a.log)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	metrics.Register()

	agg := trend.NewAggregator(a.store, a.log)
	sched := scheduler.New(
		a.buildCollector(),
		a.buildExtractor(),
		agg,
		a.cfg.Schedule.ParseTickInterval(),
		a.log,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("scheduler error", zap.Error(err))
		}
	}()

	srv := server.New(a.store, trend.NewInterestIndex(a.store), sched.Tick, port, a.log)
	return srv.ListenAndServe()
}
