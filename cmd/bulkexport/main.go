package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/flatfhir/bulkexport/export"
	"github.com/flatfhir/bulkexport/internal/auth"
	"github.com/flatfhir/bulkexport/internal/config"
	"github.com/flatfhir/bulkexport/internal/filestore"
	"github.com/flatfhir/bulkexport/internal/history"
	"github.com/flatfhir/bulkexport/internal/statusserver"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bulkexport",
		Short: "FHIR Bulk Data Access (Flat FHIR) export client",
	}

	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a bulk export against a FHIR server",
		RunE:  runExport,
	}

	flags := cmd.Flags()
	flags.String("level", "system", "Export level: system, patient, or group")
	flags.String("group-id", "", "Group id, required when --level=group")
	flags.String("endpoint", "", "FHIR server base URL")
	flags.String("output-dir", "", "Destination directory for downloaded files")
	flags.StringSlice("type", nil, "Resource type(s) to export, repeatable")
	flags.StringSlice("elements", nil, "Element whitelist, repeatable")
	flags.StringSlice("type-filter", nil, "_typeFilter expression(s), repeatable")
	flags.StringSlice("patient", nil, "Patient reference(s) (e.g. Patient/123), repeatable")
	flags.StringSlice("include-associated-data", nil, "includeAssociatedData code(s), repeatable")
	flags.Duration("timeout", 0, "Global wall-clock deadline; 0 means no deadline")
	flags.Int("max-concurrent-downloads", 10, "Parallel download worker count")

	flags.Bool("auth", false, "Enable SMART-on-FHIR backend-services authentication")
	flags.Bool("use-smart-discovery", true, "Discover the token endpoint via .well-known/smart-configuration")
	flags.String("token-endpoint", "", "Explicit OAuth2 token endpoint (when --use-smart-discovery=false)")
	flags.String("client-id", "", "OAuth2 client_id")
	flags.String("client-secret", "", "OAuth2 client_secret (symmetric auth)")
	flags.String("private-key-jwk", "", "Private key JWK JSON (asymmetric auth)")
	flags.String("scope", "", "OAuth2 scope")

	flags.String("watch-addr", "", "If set, serve export progress on this address (e.g. :8421)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	var tracker *statusserver.Tracker
	watchAddr, _ := cmd.Flags().GetString("watch-addr")
	if watchAddr != "" {
		tracker = statusserver.NewTracker()
		srv := statusserver.New(tracker, log)
		srv.Start(watchAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		tracker.Set(statusserver.PhasePolling, 0, 0)
	}

	var historyStore *history.Store
	if cfg.HistoryEnabled {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to history database: %w", err)
		}
		defer pool.Close()
		historyStore = history.NewStore(pool)
		if err := historyStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("preparing history schema: %w", err)
		}
	}

	client := export.NewClient(
		export.WithLogger(log),
		export.WithFileStore(func(outputDir string) filestore.Store {
			return filestore.NewLocal(outputDir)
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	startedAt := time.Now()

	result, runErr := client.Export(ctx, req)

	if historyStore != nil {
		run := history.Run{
			ID:              runID,
			Level:           req.Level.String(),
			FHIREndpointURL: req.FHIREndpointURL,
			OutputDir:       req.OutputDir,
			StartedAt:       startedAt,
			FinishedAt:      time.Now(),
			Succeeded:       runErr == nil,
		}
		if result != nil {
			run.FileCount = len(result.Files)
			for _, f := range result.Files {
				run.TotalBytes += f.Size
			}
		}
		if runErr != nil {
			run.ErrorMessage = runErr.Error()
		}
		if err := historyStore.Record(context.Background(), run); err != nil {
			log.Warn().Err(err).Msg("failed to record export history")
		}
	}

	if tracker != nil {
		if runErr != nil {
			tracker.Fail(runErr)
		} else {
			tracker.Set(statusserver.PhaseDone, len(result.Files), len(result.Files))
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("export complete: %d file(s) written to %s\n", len(result.Files), req.OutputDir)
	return nil
}

func requestFromFlags(cmd *cobra.Command) (*export.Request, error) {
	flags := cmd.Flags()

	level, _ := flags.GetString("level")
	groupID, _ := flags.GetString("group-id")

	var req *export.Request
	switch strings.ToLower(level) {
	case "system":
		req = export.NewSystemRequest()
	case "patient":
		req = export.NewPatientRequest()
	case "group":
		if groupID == "" {
			return nil, fmt.Errorf("--group-id is required when --level=group")
		}
		req = export.NewGroupRequest(groupID)
	default:
		return nil, fmt.Errorf("unknown --level %q: must be system, patient, or group", level)
	}

	endpoint, _ := flags.GetString("endpoint")
	outputDir, _ := flags.GetString("output-dir")
	types, _ := flags.GetStringSlice("type")
	elements, _ := flags.GetStringSlice("elements")
	typeFilters, _ := flags.GetStringSlice("type-filter")
	patientRefs, _ := flags.GetStringSlice("patient")
	associatedData, _ := flags.GetStringSlice("include-associated-data")
	timeout, _ := flags.GetDuration("timeout")
	maxConcurrent, _ := flags.GetInt("max-concurrent-downloads")

	req = req.WithFHIREndpoint(endpoint).
		WithOutputDir(outputDir).
		WithTypes(types...).
		WithElements(elements...).
		WithTypeFilters(typeFilters...).
		WithTimeout(timeout).
		WithMaxConcurrentDownloads(maxConcurrent).
		WithAssociatedDataCodes(associatedData...)

	if len(patientRefs) > 0 {
		refs := make([]export.Reference, 0, len(patientRefs))
		for _, r := range patientRefs {
			refs = append(refs, export.Reference{Reference: r})
		}
		req = req.WithPatients(refs...)
	}

	authEnabled, _ := flags.GetBool("auth")
	if authEnabled {
		useSMART, _ := flags.GetBool("use-smart-discovery")
		tokenEndpoint, _ := flags.GetString("token-endpoint")
		clientID, _ := flags.GetString("client-id")
		clientSecret, _ := flags.GetString("client-secret")
		privateKeyJWK, _ := flags.GetString("private-key-jwk")
		scope, _ := flags.GetString("scope")

		req = req.WithAuth(auth.Config{
			Enabled:              true,
			UseSMART:             useSMART,
			TokenEndpoint:        tokenEndpoint,
			ClientID:             clientID,
			ClientSecret:         clientSecret,
			PrivateKeyJWK:        privateKeyJWK,
			Scope:                scope,
			TokenExpiryTolerance: 120 * time.Second,
		})
	} else {
		req = req.WithAuth(auth.Config{Enabled: false})
	}

	return req, nil
}
