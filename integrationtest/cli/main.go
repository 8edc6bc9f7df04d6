// Package main provides an interactive CLI for asking natural-language
// questions against a live Pagila database, with live progress output.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/config"
	"github.com/rickchristie/sqlagent/executor"
	"github.com/rickchristie/sqlagent/hooks"
	"github.com/rickchristie/sqlagent/models"
	"github.com/rickchristie/sqlagent/obs"
	"github.com/rickchristie/sqlagent/postgres"
	"github.com/rickchristie/sqlagent/react"
	"github.com/rickchristie/sqlagent/registry"
	"github.com/rickchristie/sqlagent/tools"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr,
			"%sError: %v%s\n",
			colorRed, err, colorReset)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf(
			"failed to load configuration: %w", err)
	}

	// Create log directory and file
	logDir := ".logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create log directory: %w", err)
	}

	logFile, err := os.Create(
		filepath.Join(logDir, "cli_agent.log"))
	if err != nil {
		return fmt.Errorf(
			"failed to create log file: %w", err)
	}
	defer logFile.Close()

	logger := obs.NewLogger(cfg, logFile)

	// Check if a provider key is set
	if cfg.Providers.OpenAIKey == "" &&
		cfg.Providers.OpenRouterKey == "" {
		fmt.Fprintf(os.Stderr,
			"%sWARNING: no provider API key "+
				"is set!%s\n",
			colorYellow, colorReset)
		fmt.Fprintf(os.Stderr,
			"%sModel calls will fail. Set "+
				"SQLAGENT_OPENAI_API_KEY or "+
				"SQLAGENT_OPENROUTER_API_KEY, or "+
				"source your .env file.%s\n",
			colorYellow, colorReset)
		fmt.Fprintln(os.Stderr)
	}

	// Connect to Pagila; Open pings, so a bad DSN fails here rather
	// than on the first question.
	openCtx, openCancel := context.WithTimeout(
		context.Background(), 10*time.Second)
	db, err := postgres.Open(openCtx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	openCancel()
	if err != nil {
		return fmt.Errorf(
			"failed to connect to database: %w", err)
	}

	catalog, err := buildCatalog(cfg)
	if err != nil {
		db.Close()
		return err
	}

	router := models.NewRouter(
		cfg.Providers.OpenAIKey,
		cfg.Providers.OpenRouterKey)

	hookReg := hooks.NewRegistry().
		Register(obs.NewLogHook(logger)).
		Register(obs.NewMetricsHook()).
		Register(progressHook{})

	// Serve the metrics the hook collects when an address is
	// configured.
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		metricsSrv := &http.Server{
			Addr:    addr,
			Handler: mux,
		}
		go func() {
			err := metricsSrv.ListenAndServe()
			if err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener failed",
					"error", err)
			}
		}()
		defer metricsSrv.Close()
	}

	factory := func(
		model sqlagent.Model,
	) (sqlagent.Runner, error) {
		inspector := tools.NewCachingInspector(
			postgres.NewInspector(db))
		queryExec := postgres.NewExecutor(db).
			WithQueryTimeout(cfg.Database.QueryTimeout).
			WithReadOnly(cfg.Database.ReadOnly)
		reg := registry.New().
			MustRegister(tools.NewListTables(inspector)).
			MustRegister(tools.NewSchema(inspector)).
			MustRegister(tools.NewQuerySQL(queryExec))
		agent := react.NewAgent(model, reg).
			WithTopK(cfg.Agent.TopK).
			WithCallOptions(
				llms.WithTemperature(cfg.Agent.Temperature))
		return executor.New(agent).
			WithModelID(model.ModelID()), nil
	}

	service := sqlagent.NewService(router, factory).
		WithCatalog(catalog).
		WithHooks(hookReg).
		WithLimits(cfg.Agent.Limits()).
		WithCloser(db)
	defer service.Close()

	// Create readline instance for the question loop
	rl, err := readline.New(
		colorCyan + colorBold + "Ask: " + colorReset)
	if err != nil {
		return fmt.Errorf(
			"failed to create readline: %w", err)
	}
	defer rl.Close()

	descriptors := service.ListAvailableModels(
		context.Background())

	defaultModel := cfg.Models.Default
	if defaultModel == "" {
		defaultModel = models.DefaultModelID
	}

	fmt.Printf("%s%sPagila SQL Agent%s\n",
		colorBold, colorYellow, colorReset)
	fmt.Printf("%s%s%s\n",
		colorYellow,
		strings.Repeat("=", 16),
		colorReset)
	fmt.Printf(
		"%sAsk questions about the Pagila DVD rental "+
			"database in plain English.%s\n",
		colorWhite, colorReset)
	fmt.Printf(
		"%sType 'm' to switch models, 'q' to quit.%s\n",
		colorDim, colorReset)
	fmt.Println()

	modelID, err := selectModel(rl, descriptors, defaultModel)
	if err != nil {
		if err == readline.ErrInterrupt {
			fmt.Printf("\n%sGoodbye!%s\n",
				colorGreen, colorReset)
			return nil
		}
		return err
	}

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf(
					"\n%sGoodbye!%s\n",
					colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf(
				"failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch input {
		case "q", "Q", "exit", "quit":
			fmt.Printf(
				"%sGoodbye!%s\n",
				colorGreen, colorReset)
			return nil
		case "m", "M":
			modelID, err = selectModel(
				rl, descriptors, modelID)
			if err != nil {
				if err == readline.ErrInterrupt {
					continue
				}
				return err
			}
			continue
		}

		ctx, cancel := context.WithCancel(
			context.Background())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(
			sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Printf(
				"\n%sReceived interrupt, "+
					"cancelling...%s\n",
				colorYellow, colorReset)
			cancel()
		}()

		answer, err := service.Submit(ctx,
			sqlagent.QueryRequest{
				Question: input,
				ModelID:  modelID,
			})

		signal.Stop(sigCh)
		cancel()

		if err != nil {
			printFailure(err)
		} else {
			printAnswer(answer)
		}

		fmt.Printf("\n%s%s%s\n\n",
			colorDim,
			strings.Repeat("-", 60),
			colorReset)
	}
}

// buildCatalog assembles the model catalog from configuration: a YAML
// file when one is configured, the built-in native models otherwise,
// plus OpenRouter's free models when fetching is enabled.
func buildCatalog(cfg config.Config) (*models.Catalog, error) {
	var catalog *models.Catalog
	if cfg.Models.CatalogPath != "" {
		loaded, err := models.LoadCatalog(
			cfg.Models.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to load model catalog: %w", err)
		}
		catalog = loaded
	} else {
		catalog = models.NewCatalog()
	}
	if cfg.Models.FetchFree {
		catalog = catalog.WithFreeModelLister(
			models.NewOpenRouterCatalog())
	}
	return catalog, nil
}

// selectModel presents the model menu and returns the chosen ID.
func selectModel(
	rl *readline.Instance,
	descriptors []sqlagent.ModelDescriptor,
	defaultID string,
) (string, error) {
	fmt.Printf("%s%sAvailable Models:%s\n",
		colorBold, colorYellow, colorReset)
	fmt.Printf("%s%s%s\n",
		colorYellow,
		strings.Repeat("-", 17),
		colorReset)
	for i, d := range descriptors {
		name := d.DisplayName
		if name == "" {
			name = d.ID
		}
		fmt.Printf("  %s%d.%s %s%s%s %s(%s, %s)%s\n",
			colorCyan, i+1, colorReset,
			colorWhite, name, colorReset,
			colorDim, d.ID, d.Provider, colorReset)
	}
	fmt.Println()

	for {
		oldPrompt := rl.Config.Prompt
		rl.SetPrompt(fmt.Sprintf(
			"%sSelect model [%s]: %s",
			colorCyan, defaultID, colorReset))
		input, err := rl.Readline()
		rl.SetPrompt(oldPrompt)
		if err != nil {
			return "", err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			fmt.Printf("%sUsing %s%s\n\n",
				colorGreen, defaultID, colorReset)
			return defaultID, nil
		}

		num, convErr := strconv.Atoi(input)
		if convErr != nil {
			// Not a number: treat it as a model ID so
			// models outside the catalog stay reachable.
			fmt.Printf("%sUsing %s%s\n\n",
				colorGreen, input, colorReset)
			return input, nil
		}
		if num < 1 || num > len(descriptors) {
			fmt.Printf(
				"%sInvalid selection. "+
					"Please enter 1-%d.%s\n",
				colorRed, len(descriptors), colorReset)
			continue
		}

		id := descriptors[num-1].ID
		fmt.Printf("%sUsing %s%s\n\n",
			colorGreen, id, colorReset)
		return id, nil
	}
}

func printAnswer(answer *sqlagent.FinalAnswer) {
	fmt.Println()
	fmt.Printf("%s%s%s\n",
		colorGreen, answer.Text, colorReset)
	fmt.Printf("%s[%s]%s\n",
		colorDim, answer.Meta, colorReset)
}

func printFailure(err error) {
	var failure *sqlagent.Failure
	if !errors.As(err, &failure) {
		fmt.Fprintf(os.Stderr,
			"\n%sError: %v%s\n",
			colorRed, err, colorReset)
		return
	}

	fmt.Println()
	fmt.Fprintf(os.Stderr,
		"%sRun failed (%s): %s%s\n",
		colorRed, failure.Cause, failure.Message,
		colorReset)
	if failure.Guidance != "" {
		fmt.Fprintf(os.Stderr,
			"%s%s%s\n",
			colorYellow, failure.Guidance, colorReset)
	}
	fmt.Fprintf(os.Stderr,
		"%s[%s]%s\n",
		colorDim, failure.Meta, colorReset)
}

// progressHook prints live run progress to the terminal. The full
// transcript goes to the log file through obs.LogHook; this shows just
// enough to watch the agent work.
type progressHook struct{}

var (
	_ sqlagent.BeforeModelCallHook = progressHook{}
	_ sqlagent.BeforeToolCallHook  = progressHook{}
	_ sqlagent.AfterToolCallHook   = progressHook{}
)

func (progressHook) OnBeforeModelCall(
	_ context.Context,
	_ *sqlagent.Run,
	event sqlagent.BeforeModelCallEvent,
) {
	fmt.Printf("%s  LLM: %s...%s\n",
		colorCyan, event.ModelID, colorReset)
}

func (progressHook) OnBeforeToolCall(
	_ context.Context,
	_ *sqlagent.Run,
	event sqlagent.BeforeToolCallEvent,
) {
	fmt.Printf("%s[Tool: %s]%s\n",
		colorBlue, event.Call.Name, colorReset)
	if len(event.Call.Args) > 0 {
		if data, err := json.Marshal(
			event.Call.Args); err == nil {
			fmt.Printf("%s    Args: %s%s\n",
				colorDim, data, colorReset)
		}
	}
}

func (progressHook) OnAfterToolCall(
	_ context.Context,
	_ *sqlagent.Run,
	event sqlagent.AfterToolCallEvent,
) {
	o := event.Observation
	if o.Status == sqlagent.ObservationError {
		fmt.Printf("%s    Error: %s%s\n",
			colorRed, firstLine(o.Content), colorReset)
	} else {
		fmt.Printf("%s    Output: %s%s\n",
			colorDim, firstLine(o.Content), colorReset)
	}
	fmt.Printf("%s    Duration: %s%s\n",
		colorDim,
		event.Duration.Round(time.Millisecond),
		colorReset)
}

// firstLine trims an observation down to its first line for progress
// display. Full payloads are in the log file.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
