// Command gonow-ingest runs the go/no-go forecast ingest pipeline: either as
// an HTTP trigger server or as a one-shot local CLI invocation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/dl-alexandre/gonow-ingest/internal/config"
	"github.com/dl-alexandre/gonow-ingest/internal/ingest"
	"github.com/dl-alexandre/gonow-ingest/internal/logging"
	"github.com/dl-alexandre/gonow-ingest/internal/profile"
	"github.com/dl-alexandre/gonow-ingest/internal/provider/openmeteo"
	"github.com/dl-alexandre/gonow-ingest/internal/store"
	"github.com/dl-alexandre/gonow-ingest/internal/store/gcpstore"
	"github.com/dl-alexandre/gonow-ingest/internal/store/localstore"
	"github.com/dl-alexandre/gonow-ingest/internal/trigger"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "local-trigger":
		cmdLocalTrigger(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gonow-ingest <serve|local-trigger|version> [flags]")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	pprofAddr := fs.String("pprof-addr", "", "if set, serve pprof debug endpoints on this address")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse serve flags: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if *pprofAddr != "" {
		profile.StartPProfServer(*pprofAddr)
	}

	ctx := context.Background()
	orchestrator, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("failed to build orchestrator", "error", err)
	}

	monitor := profile.NewPerformanceMonitor()
	orchestrator.Monitor = monitor

	handler := &trigger.Handler{
		Orchestrator: orchestrator,
		Defaults: trigger.Defaults{
			AreaID: cfg.AreaID, Lat: cfg.Lat, Lon: cfg.Lon, HorizonDays: cfg.HorizonDays,
		},
		Logger: logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/trigger", handler)
	mux.HandleFunc("/debug/performance", func(w http.ResponseWriter, r *http.Request) {
		monitor.PrintReport(w)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infow("starting trigger server", "addr", addr, "storage_backend", cfg.StorageBackend)
	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalw("server error", "error", err)
	}
}

func cmdLocalTrigger(args []string) {
	fs := flag.NewFlagSet("local-trigger", flag.ExitOnError)
	payloadFlag := fs.String("payload", "{}", "JSON payload, same shape as the HTTP trigger body")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse local-trigger flags: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.NoOp()

	var payload struct {
		AreaID      *string `json:"area_id"`
		HorizonDays *int    `json:"horizon_days"`
	}
	if err := json.Unmarshal([]byte(*payloadFlag), &payload); err != nil {
		log.Fatalf("parse payload: %v", err)
	}

	req := ingest.Request{AreaID: cfg.AreaID, Lat: cfg.Lat, Lon: cfg.Lon, HorizonDays: cfg.HorizonDays}
	if payload.AreaID != nil {
		req.AreaID = *payload.AreaID
	}
	if payload.HorizonDays != nil {
		req.HorizonDays = *payload.HorizonDays
	}

	ctx := context.Background()
	orchestrator, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build orchestrator: %v", err)
	}

	result := orchestrator.Run(ctx, req)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("marshal result: %v", err)
	}
	fmt.Println(string(out))
}

func buildOrchestrator(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*ingest.Orchestrator, error) {
	provider := openmeteo.New(cfg.OpenMeteoBase)

	var rawArchive store.RawArchiveSink
	var analytical store.AnalyticalTableSink
	var servingDoc store.ServingDocSink

	switch cfg.StorageBackend {
	case "gcp":
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		bqClient, err := bigquery.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("create bigquery client: %w", err)
		}
		fsClient, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		rawArchive = gcpstore.NewRawArchive(gcsClient, cfg.GCSRawBucket)
		analytical = gcpstore.NewAnalyticalTable(bqClient, cfg.BQDataset)
		servingDoc = gcpstore.NewServingDoc(fsClient)
	default:
		rawArchive = localstore.NewRawArchive(cfg.LocalDataDir)
		sqlStore, err := localstore.Open(cfg.LocalDataDir + "/gonow.db")
		if err != nil {
			return nil, fmt.Errorf("open local sqlite store: %w", err)
		}
		analytical = sqlStore
		servingDoc = localstore.NewServingDoc(cfg.LocalDataDir)
	}

	return &ingest.Orchestrator{
		Provider: provider, RawArchive: rawArchive, Analytical: analytical, ServingDoc: servingDoc,
		Logger: logger,
	}, nil
}
