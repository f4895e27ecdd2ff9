package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"grammar-ollama/internal/clipboard"
	"grammar-ollama/internal/config"
	"grammar-ollama/internal/correct"
	"grammar-ollama/internal/logging"
	"grammar-ollama/internal/ollama"
	"grammar-ollama/internal/server"
	"grammar-ollama/internal/terminal"
	"grammar-ollama/internal/ui"
)

func main() {
	cfg, fs, err := config.Load("grammar-ollama", os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			fs.Usage()
			return
		}
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New("grammar-ollama", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ollama.NewClient(cfg.OllamaURL)

	if cfg.Serve {
		err = runServer(ctx, cfg, client, log)
	} else {
		err = runTerminal(ctx, cfg, client, log)
	}
	if err != nil {
		log.Error("exiting", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

// runServer serves the web form until ctx is cancelled
func runServer(ctx context.Context, cfg *config.Config, client *ollama.Client, log *zap.Logger) error {
	if cfg.ModelName == "" {
		log.Warn("no model configured; submissions will be ignored", zap.String("env", config.EnvVarPrefix+"_MODEL"))
	} else {
		checkModel(ctx, client, cfg.ModelName, func(msg string) { log.Warn(msg) })
	}

	session := correct.NewSession(client, correct.Options{
		Model:        cfg.ModelName,
		SystemPrompt: cfg.SystemPrompt,
		Logger:       log.Named("correct"),
	})

	srv, err := server.New(session, client, cfg.Target(), log.Named("http"))
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	return srv.Run(ctx, cfg.ListenAddr)
}

// runTerminal runs the interactive prompt loop
func runTerminal(ctx context.Context, cfg *config.Config, client *ollama.Client, log *zap.Logger) error {
	display := ui.NewDisplay(cfg.ShowThinking)
	spinner := terminal.NewSpinner(os.Stdout)
	copier := clipboard.NewCopier(nil)

	// Setup graceful shutdown
	go func() {
		<-ctx.Done()
		spinner.Stop()
		display.PrintGoodbye()
		log.Sync()
		os.Exit(0)
	}()

	session := correct.NewSession(client, correct.Options{
		Model:        cfg.ModelName,
		SystemPrompt: cfg.SystemPrompt,
		// The terminal is the UI; keep routine request logs off it
		Logger: log.Named("correct").WithOptions(zap.IncreaseLevel(zap.ErrorLevel)),
		OnThinking: func(text string) {
			if cfg.ShowThinking {
				spinner.Stop()
				display.WriteThinking(text)
			}
		},
	})

	if cfg.ModelName != "" {
		checkModel(ctx, client, cfg.ModelName, display.PrintWarning)
	}

	display.PrintWelcome(cfg.ModelName)
	input := terminal.NewInput(os.Stdin)

	for {
		display.PrintPrompt()
		query, err := input.ReadLine()
		if err != nil {
			break
		}

		switch terminal.ParseCommand(query) {
		case terminal.CmdExit:
			display.PrintGoodbye()
			return nil
		case terminal.CmdClear:
			display.ClearScreen()
			display.PrintWelcome(cfg.ModelName)
			continue
		case terminal.CmdHelp:
			display.PrintHelp()
			continue
		case terminal.CmdCopy:
			copyResponse(session.Snapshot(), copier, display)
			continue
		}

		// Skip empty queries
		if strings.TrimSpace(query) == "" {
			continue
		}

		started := false
		observe := func(snap correct.Snapshot) {
			if snap.Status != correct.StatusPending || snap.Response != "" {
				spinner.Stop()
			}
			display.Observe(snap)
			if !started {
				started = true
				if terminal.IsTerminal() {
					spinner.Start("Thinking...")
				}
			}
		}

		// Errors are shown through the error snapshot; an unconfigured
		// model makes the submission a no-op
		_ = session.Submit(ctx, query, observe)
		spinner.Stop()
	}

	display.PrintGoodbye()
	return nil
}

// copyResponse copies the last corrected text to the clipboard
func copyResponse(snap correct.Snapshot, copier *clipboard.Copier, display *ui.Display) {
	if snap.Status != correct.StatusSuccess || snap.Response == "" {
		display.PrintInfo("Nothing to copy yet")
		return
	}
	if copier.State() == clipboard.StateCopied {
		display.PrintInfo("Already copied")
		return
	}
	if err := copier.Copy(snap.Response); err != nil {
		display.PrintError(fmt.Errorf("failed to copy: %w", err))
		return
	}
	display.PrintSuccess("Copied!")
}

// checkModel warns when Ollama is unreachable or the model is not pulled.
// Neither is fatal: the request itself reports the failure.
func checkModel(ctx context.Context, client *ollama.Client, modelName string, warn func(string)) {
	ok, err := client.HasModel(ctx, modelName)
	if err != nil {
		warn(fmt.Sprintf("Could not list models at %s: %v", client.BaseURL(), err))
		return
	}
	if !ok {
		warn(fmt.Sprintf("Model '%s' not found. Pull it with: ollama pull %s", modelName, modelName))
	}
}
