package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/opst/wlconf/cmd/wlconfd/handlers"
	"github.com/opst/wlconf/pkg/audit"
	auditpg "github.com/opst/wlconf/pkg/audit/postgres"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/opst/wlconf/pkg/batch"
	"github.com/opst/wlconf/pkg/buildtime"
	"github.com/opst/wlconf/pkg/cache"
	"github.com/opst/wlconf/pkg/cache/metrics"
	"github.com/opst/wlconf/pkg/cluster"
	configs "github.com/opst/wlconf/pkg/configs/server"
	"github.com/opst/wlconf/pkg/engine"
	"github.com/opst/wlconf/pkg/kubeutil"
	"github.com/opst/wlconf/pkg/rollback"
	"github.com/opst/wlconf/pkg/utils/filewatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const auditTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	pconfig := flag.String(
		"config", os.Getenv("WLCONF_CONFIG"), "path to config file",
	)
	kubeconfig := flag.String("kubeconfig", "", "path to kubeconfig. overrides cluster.kubeconfig in config")
	loglevel := flag.String("loglevel", "warn", "log level. debug|info|warn|error|off")
	pversion := flag.Bool("version", false, "show version and exit")

	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := configs.LoadServerConfig(*pconfig)
	if err != nil {
		panic(err)
	}

	// exit when the config is modified, to be restarted with the new one.
	{
		wctx, wcancel, err := filewatch.UntilModified(ctx, *pconfig)
		if err != nil {
			panic(err)
		}
		defer wcancel()
		ctx = wctx
	}

	logger := stdlog.Default()

	kc := *kubeconfig
	if kc == "" {
		kc = conf.Cluster().Kubeconfig()
	}
	clientset, err := kubeutil.ConnectToK8s(kc)
	if err != nil {
		panic(err)
	}
	collaborator := cluster.WithTimeout(
		cluster.New(cluster.WrapK8sClient(clientset)),
		conf.Cluster().RequestTimeout(),
	)

	store := cache.New(
		cache.WithMaxSize(conf.Cache().MaxSize()),
		cache.WithSweepInterval(conf.Cache().SweepInterval()),
		cache.WithLogger(logger),
	)
	store.Start(ctx)
	defer store.Close()

	rollbacks := rollback.New(
		rollback.WithMaxRecords(conf.Rollback().MaxRecords()),
		rollback.WithMaxAge(conf.Rollback().MaxAge()),
		rollback.WithLogger(logger),
	)
	eng := engine.New(
		collaborator, store, rollbacks,
		engine.WithCachePolicy(conf.Cache().Policy().Config(), conf.Cache().Policy().List()),
		engine.WithLogger(logger),
	)

	var sink audit.Sink = audit.NewLoggerSink(logger)
	if url := conf.Audit().Database(); url != "" {
		pg, err := auditpg.Connect(ctx, url)
		if err != nil {
			panic(err)
		}
		defer pg.Close()
		if err := pg.WaitInit(ctx, 5, 2*time.Second, auditTimeout); err != nil {
			panic(err)
		}
		sink = audit.Multi(sink, pg)
	}

	var verifier *auth.Verifier
	if key := conf.Auth().SignKey(); key != "" {
		verifier = auth.NewVerifier([]byte(key))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(store),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auditor := handlers.NewAuditor(sink, auditTimeout, logger)
	server := BuildServer(Components{
		Configurations: eng,
		Batch:          batch.New(eng, batch.WithLogger(logger)),
		Cache:          store,
		Auditor:        auditor,
		Verifier:       verifier,
		Metrics:        registry,
	}, *loglevel)
	for _, r := range server.Routes() {
		server.Logger.Debugf("- mount handler: %s %s", strings.ToUpper(r.Method), r.Path)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := server.Start(fmt.Sprintf(":%d", conf.Port())); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		server.Logger.Infof("shutting down... cause: %v", context.Cause(gctx))
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()
		return server.Shutdown(qctx)
	})

	serr := eg.Wait()

	// audit entries of the last requests may be in flight.
	// the sink is closed by the deferred call after them.
	dctx, dcancel := context.WithTimeout(context.Background(), auditTimeout)
	defer dcancel()
	if err := auditor.Drain(dctx); err != nil {
		server.Logger.Warnf("some audit entries may not be recorded: %v", err)
	}

	if serr != nil {
		server.Logger.Error("server stops with error:", serr)
		return 1
	}
	var modified *filewatch.ModifiedError
	if errors.As(context.Cause(ctx), &modified) {
		server.Logger.Warnf("config is modified. restart to reload: %s", modified)
		return 1
	}
	return 0
}
