package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/kv"
	"github.com/mikelor/routing2/pkg/server/rest"
	"github.com/mikelor/routing2/pkg/server/rest/service"
	"github.com/mikelor/routing2/pkg/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "net/http/pprof"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	graphFile  = flag.String("f", "routing_graph.bin", "routing graph container file")
	tileDbDir  = flag.String("tiledb", "", "optional badger tile store for demand loading")
)

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	in, err := os.Open(*graphFile)
	if err != nil {
		logger.Fatal("open graph container", zap.Error(err))
	}
	network, metadata, err := storage.ReadContainer(in)
	in.Close()
	if err != nil {
		logger.Fatal("read graph container", zap.Error(err))
	}

	db := graph.NewRouterDb(network.Zoom(), logger)
	db.SetLatest(network)
	logger.Info("graph loaded",
		zap.Int("zoom", network.Zoom()),
		zap.Int("tiles", len(network.TileIDs())),
		zap.Any("metadata", metadata),
	)

	if *tileDbDir != "" {
		badgerDb, err := badger.Open(badger.DefaultOptions(*tileDbDir).WithReadOnly(true))
		if err != nil {
			logger.Fatal("open tile store", zap.Error(err))
		}
		store := kv.NewTileStore(badgerDb)
		defer store.Close()
		network.SetTileProvider(store)
	}

	svc := service.NewNavigationService(db, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := rest.NewRequestMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(metrics.Middleware)

	rest.NavigationRouter(r, svc)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/debug", middleware.Profiler())

	logger.Info("listening", zap.String("addr", *listenAddr))
	if err := http.ListenAndServe(*listenAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
