package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/clearstone/finportal/internal/address"
	"github.com/clearstone/finportal/internal/common"
	"github.com/clearstone/finportal/internal/export"
	"github.com/clearstone/finportal/internal/extraction"
	"github.com/clearstone/finportal/internal/extraction/boxai"
	"github.com/clearstone/finportal/internal/ingest"
	"github.com/clearstone/finportal/internal/metadata"
	"github.com/clearstone/finportal/internal/metadata/boxstore"
	"github.com/clearstone/finportal/internal/pipeline"
	"github.com/clearstone/finportal/internal/repository"
	"github.com/clearstone/finportal/internal/schema"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	store     *repository.Store
	registry  *schema.Registry
	directory address.ClientDirectory
	ledger    address.MismatchLedger
	engine    *address.Engine
}

var (
	inmem         bool
	clientID      string
	documentID    string
	outPath       string
	spoolDir      string
	debounce      time.Duration
	templatesPath string

	street, city, region, postal, country string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var a *app
	root := &cobra.Command{
		Use:           "finportal-batch",
		Short:         "Financial document metadata pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(cmd.Context(), logger)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				_ = a.store.Close()
			}
		},
	}
	root.PersistentFlags().BoolVar(&inmem, "inmem", false, "use an in-memory SQLite database")
	root.PersistentFlags().StringVar(&templatesPath, "templates", "", "YAML file of template overrides")

	processCmd := &cobra.Command{
		Use:   "process <object-id>...",
		Short: "Run documents through the extraction pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd.Context(), args)
		},
	}
	processCmd.Flags().StringVar(&clientID, "client", "", "client the documents belong to")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a spool directory for document tickets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd.Context())
		},
	}
	watchCmd.Flags().StringVar(&spoolDir, "spool", "", "spool directory (required)")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "event coalescing window")
	_ = watchCmd.MarkFlagRequired("spool")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a client's unresolved address mismatches to XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := export.NewService(a.ledger, a.logger)
			return svc.WriteFile(cmd.Context(), clientID, outPath)
		},
	}
	exportCmd.Flags().StringVar(&clientID, "client", "", "client to export (required)")
	exportCmd.Flags().StringVar(&outPath, "out", "mismatches.xlsx", "output XLSX path")
	_ = exportCmd.MarkFlagRequired("client")

	setAddressCmd := &cobra.Command{
		Use:   "set-address",
		Short: "Set a client's address of record and reconcile open mismatches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSetAddress(cmd.Context())
		},
	}
	setAddressCmd.Flags().StringVar(&clientID, "client", "", "client to update (required)")
	setAddressCmd.Flags().StringVar(&street, "street", "", "street address")
	setAddressCmd.Flags().StringVar(&city, "city", "", "city")
	setAddressCmd.Flags().StringVar(&region, "region", "", "state or province")
	setAddressCmd.Flags().StringVar(&postal, "postal", "", "postal code")
	setAddressCmd.Flags().StringVar(&country, "country", "US", "country")
	_ = setAddressCmd.MarkFlagRequired("client")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Acknowledge a mismatch without deleting its history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.ledger.MarkResolved(cmd.Context(), clientID, documentID)
		},
	}
	resolveCmd.Flags().StringVar(&clientID, "client", "", "client of the mismatch (required)")
	resolveCmd.Flags().StringVar(&documentID, "document", "", "document of the mismatch (required)")
	_ = resolveCmd.MarkFlagRequired("client")
	_ = resolveCmd.MarkFlagRequired("document")

	root.AddCommand(processCmd, watchCmd, exportCmd, setAddressCmd, resolveCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		st := status.Convert(common.StatusFromError(err))
		logger.Error("command failed",
			"code", st.Code().String(),
			"error", st.Message())
		os.Exit(1)
	}
}

func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg := common.LoadConfig()

	var store *repository.Store
	var err error
	if inmem {
		store, err = repository.OpenMemory()
	} else {
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("DB_URL is required (or pass --inmem)")
		}
		store, err = repository.Open(ctx, cfg.Database)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := schema.NewRegistry()
	if templatesPath != "" {
		f, err := os.Open(templatesPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		defer f.Close()
		if err := registry.LoadYAML(f); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load %s: %w", templatesPath, err)
		}
	}

	directory := repository.NewClientDirectory(store, logger)
	ledger := repository.NewMismatchLedger(store, logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		registry:  registry,
		directory: directory,
		ledger:    ledger,
		engine:    address.NewEngine(directory, ledger, logger),
	}, nil
}

// newProcessor wires the remote-facing half of the pipeline; only commands
// that talk to the provider and store pay for it.
func (a *app) newProcessor() (*pipeline.Processor, error) {
	provider, err := boxai.NewClient(boxai.Config{
		BaseURL: a.cfg.Provider.BaseURL,
		Token:   a.cfg.Provider.AccessToken,
		Model:   a.cfg.Provider.AgentModel,
		Timeout: a.cfg.Provider.Timeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	store, err := boxstore.NewClient(boxstore.Config{
		BaseURL: a.cfg.Store.BaseURL,
		Token:   a.cfg.Store.AccessToken,
		Scope:   a.cfg.Store.Scope,
		Timeout: a.cfg.Store.Timeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return pipeline.NewProcessor(
		store,
		extraction.NewOrchestrator(provider, a.registry, a.logger),
		metadata.NewApplier(store, a.logger),
		a.engine,
		a.registry,
		a.logger,
	), nil
}

func (a *app) batchOptions() pipeline.BatchOptions {
	return pipeline.BatchOptions{
		Workers:         a.cfg.Pipeline.Workers,
		DocumentTimeout: a.cfg.Pipeline.DocumentTimeout,
	}
}

func (a *app) runProcess(ctx context.Context, objectIDs []string) error {
	proc, err := a.newProcessor()
	if err != nil {
		return err
	}
	docs := make([]pipeline.Document, len(objectIDs))
	for i, id := range objectIDs {
		docs[i] = pipeline.Document{ObjectID: id, ClientID: clientID}
	}
	batch := proc.ProcessBatch(ctx, docs, a.batchOptions())
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", batch.Failed, len(docs))
	}
	return nil
}

func (a *app) runWatch(ctx context.Context) error {
	proc, err := a.newProcessor()
	if err != nil {
		return err
	}
	watcher := ingest.NewWatcher(spoolDir, debounce, func(ctx context.Context, docs []pipeline.Document) error {
		batch := proc.ProcessBatch(ctx, docs, a.batchOptions())
		if batch.Failed > 0 {
			return fmt.Errorf("%d of %d documents failed", batch.Failed, len(docs))
		}
		return nil
	}, a.logger)
	return watcher.Run(ctx)
}

func (a *app) runSetAddress(ctx context.Context) error {
	addr := address.Address{
		Street:  street,
		City:    city,
		Region:  region,
		Postal:  postal,
		Country: country,
	}
	if err := a.directory.SetClientAddress(ctx, clientID, addr); err != nil {
		return err
	}
	cleared, err := a.engine.ReconcileClient(ctx, clientID)
	if err != nil {
		return err
	}
	a.logger.Info("address updated", "client_id", clientID, "mismatches_cleared", cleared)
	return nil
}
