package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"code.cloudfoundry.org/cdnbroker/brokerrunner"
	"code.cloudfoundry.org/cdnbroker/geocache"
	"code.cloudfoundry.org/cdnbroker/handlers"
	"code.cloudfoundry.org/cdnbroker/marketclearer"
	"code.cloudfoundry.org/cdnbroker/metrics"
	"code.cloudfoundry.org/cdnbroker/policy"
	"code.cloudfoundry.org/cdnbroker/scenario"
	"code.cloudfoundry.org/cdnbroker/simulation"
	"code.cloudfoundry.org/cdnbroker/solver"
	"code.cloudfoundry.org/cdnbroker/visualization"
	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"code.cloudfoundry.org/workpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/http_server"
	"github.com/tedsuo/ifrit/sigmon"
)

var scenarioPath = flag.String("scenario", "", "path to a scenario YAML file")
var policyPath = flag.String("policy", "", "path to a policy YAML file, overrides -method")
var method = flag.String("method", policy.DefaultMethod, "named broker method")
var exposeCost = flag.String("exposeCost", "", "price exposure mode: FULL, NOTHING, OPAQUE or RELATIVE")
var roundInterval = flag.Duration("roundInterval", 5*time.Second, "time between clearing rounds")
var solveTimeout = flag.Duration("solveTimeout", 30*time.Second, "give up on a round's solve after this long")
var maxNodes = flag.Int("maxNodes", solver.DefaultMaxNodes, "branch-and-bound node limit per solve")
var maxRetries = flag.Int("maxRetries", 3, "rounds an unserved request is carried over before it is dropped")
var listenAddr = flag.String("listenAddr", "127.0.0.1:8089", "address for the metrics and debug routes")
var recordPath = flag.String("recordPath", "", "write the last round's msgpack record here on exit")
var svgReport = flag.String("svgReport", "", "write report cards for recent rounds here on exit")
var printReports = flag.Bool("printReports", false, "print a text report after every round")
var logLevel = flag.String("logLevel", "info", "log level: debug, info, error or fatal")
var workers = flag.Int("workers", 16, "size of the bid generation work pool")
var synthetic = flag.Bool("synthetic", false, "generate a synthetic scenario instead of reading -scenario")
var seed = flag.Int64("seed", simulation.DefaultConfig.Seed, "seed for -synthetic")

func main() {
	flag.Parse()

	logger := newLogger()

	p := loadPolicy(logger)
	snapshot := loadScenario(logger)

	workPool, err := workpool.NewWorkPool(*workers)
	if err != nil {
		logger.Fatal("failed-to-create-work-pool", err)
	}
	defer workPool.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	emitter, err := metrics.NewEmitter(registry)
	if err != nil {
		logger.Fatal("failed-to-register-metrics", err)
	}

	var reportOut io.Writer
	if *printReports {
		reportOut = os.Stdout
	}
	reporter := visualization.NewReporter(reportOut, 16)

	clk := clock.NewClock()
	clearer := marketclearer.New(logger, solver.NewBranchAndBound(logger, *maxNodes), p, *solveTimeout, clk)
	runner := brokerrunner.New(
		logger,
		scenario.NewStore(snapshot),
		geocache.New(snapshot),
		clearer,
		brokerrunner.NewBatch(),
		workPool,
		p,
		clk,
		*roundInterval,
		*maxRetries,
		emitter,
		reporter,
	)
	runner.AddRequests(snapshot.Requests)

	members := grouper.Members{
		{Name: "broker-runner", Runner: runner},
		{Name: "debug-server", Runner: http_server.New(*listenAddr, handlers.New(logger, runner, registry))},
	}

	group := grouper.NewOrdered(os.Interrupt, members)
	process := ifrit.Invoke(sigmon.New(group))

	logger.Info("started", lager.Data{
		"method":    p.Method,
		"listen":    *listenAddr,
		"cdns":      len(snapshot.CDNs),
		"locations": len(snapshot.Locations),
		"requests":  len(snapshot.Requests),
	})

	err = <-process.Wait()

	writeArtifacts(logger, runner, reporter, p)

	if err != nil {
		logger.Error("exited-with-failure", err)
		os.Exit(1)
	}
	logger.Info("exited")
}

func newLogger() lager.Logger {
	level, err := lager.LogLevelFromString(*logLevel)
	if err != nil {
		level = lager.INFO
	}

	logger := lager.NewLogger("cdnbroker")
	sink := lager.NewReconfigurableSink(lager.NewWriterSink(os.Stderr, lager.DEBUG), level)
	logger.RegisterSink(sink)
	if err != nil {
		logger.Error("unknown-log-level", err, lager.Data{"log-level": *logLevel})
	}
	return logger
}

func loadPolicy(logger lager.Logger) policy.Policy {
	var p policy.Policy
	var err error

	if *policyPath != "" {
		var f *os.File
		f, err = os.Open(*policyPath)
		if err != nil {
			logger.Fatal("failed-to-open-policy", err, lager.Data{"path": *policyPath})
		}
		defer f.Close()
		p, err = policy.Load(f)
	} else {
		p, err = policy.ForMethod(*method)
	}
	if err != nil {
		logger.Fatal("invalid-policy", err)
	}

	if *exposeCost != "" {
		p.PriceExposureMode = policy.ExposureMode(*exposeCost)
		if err := p.Validate(); err != nil {
			logger.Fatal("invalid-policy", err, lager.Data{"exposeCost": *exposeCost})
		}
	}

	return p
}

func loadScenario(logger lager.Logger) *scenario.Snapshot {
	if *synthetic {
		config := simulation.DefaultConfig
		config.Seed = *seed
		return simulation.NewScenario(config)
	}

	if *scenarioPath == "" {
		logger.Fatal("missing-scenario", errors.New("pass -scenario or -synthetic"))
	}

	snapshot, err := scenario.LoadFile(*scenarioPath)
	if err != nil {
		logger.Fatal("failed-to-load-scenario", err, lager.Data{"path": *scenarioPath})
	}
	return snapshot
}

func writeArtifacts(logger lager.Logger, runner *brokerrunner.Runner, reporter *visualization.Reporter, p policy.Policy) {
	if *recordPath != "" {
		if err := scenario.StoreRecord(*recordPath, runner.Record()); err != nil {
			logger.Error("failed-to-store-record", err, lager.Data{"path": *recordPath})
		}
	}

	if *svgReport != "" {
		f, err := os.Create(*svgReport)
		if err != nil {
			logger.Error("failed-to-create-svg-report", err, lager.Data{"path": *svgReport})
			return
		}
		defer f.Close()

		if err := reporter.WriteReportCards(f, p.Method, string(p.PriceExposureMode), p.BidCount); err != nil {
			logger.Error("failed-to-write-svg-report", err)
		}
	}
}
