package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/kv"
	"github.com/mikelor/routing2/pkg/osmparser"
	"github.com/mikelor/routing2/pkg/storage"

	"github.com/mikelor/routing2/pkg/datastructure"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var (
	mapFile    = flag.String("f", "solo_jogja.osm.pbf", "openstreetmap pbf extract to build the road network from")
	zoom       = flag.Int("zoom", 14, "tile zoom level of the routing graph")
	outFile    = flag.String("o", "routing_graph.bin", "output container file")
	tileDbDir  = flag.String("tiledb", "", "optional badger dir to fill as a demand-load tile store")
	keepAllTag = flag.Bool("alltags", false, "keep every way tag instead of the routing subset")
)

var routingTags = map[string]struct{}{
	"highway": {}, "oneway": {}, "maxspeed": {}, "name": {},
	"junction": {}, "lanes": {}, "surface": {}, "access": {},
}

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db := graph.NewRouterDb(*zoom, logger)
	writer, err := db.Latest().GetWriter()
	if err != nil {
		logger.Fatal("get writer", zap.Error(err))
	}

	tagFilter := func(key, value string) bool {
		if *keepAllTag {
			return true
		}
		_, ok := routingTags[key]
		return ok
	}

	parser := osmparser.NewParser(tagFilter, nil)
	if err := parser.Parse(context.Background(), *mapFile, writer); err != nil {
		logger.Fatal("parse osm extract", zap.Error(err))
	}
	writer.Release()

	network := db.Latest()
	logger.Info("graph built",
		zap.Int("zoom", network.Zoom()),
		zap.Int("tiles", len(network.TileIDs())),
		zap.Int("edge_types", network.EdgeTypes().Count()),
	)

	out, err := os.Create(*outFile)
	if err != nil {
		logger.Fatal("create output file", zap.Error(err))
	}
	defer out.Close()

	metadata := []datastructure.Attribute{
		{Key: "source", Value: *mapFile},
	}
	if err := storage.WriteContainer(out, network, metadata); err != nil {
		logger.Fatal("write container", zap.Error(err))
	}
	logger.Info("container written", zap.String("file", *outFile))

	if *tileDbDir != "" {
		badgerDb, err := badger.Open(badger.DefaultOptions(*tileDbDir))
		if err != nil {
			logger.Fatal("open tile store", zap.Error(err))
		}
		store := kv.NewTileStore(badgerDb)
		defer store.Close()

		if err := store.PutNetwork(context.Background(), network); err != nil {
			logger.Fatal("fill tile store", zap.Error(err))
		}
		logger.Info("tile store filled", zap.String("dir", *tileDbDir))
	}
}
