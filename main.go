// localchat - a terminal chat client for a locally-hosted Ollama server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/localchat/internal/cli"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/storage"
	"github.com/jeranaias/localchat/internal/stream"
	"github.com/jeranaias/localchat/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// saveNotify routes persistence warnings; the TUI swaps it for a status
// line once the program is up.
var saveNotify = func(err error) {
	fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
}

func main() {
	var (
		plainMode  = flag.Bool("plain", false, "line-oriented mode instead of the TUI")
		configPath = flag.String("config", "", "path to config file")
		modelName  = flag.String("model", "", "model to chat with")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("localchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *modelName != "" {
		cfg.Server.DefaultModel = *modelName
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Server.URL,
		Timeout:      cfg.Timeout(),
		DefaultModel: cfg.Server.DefaultModel,
	})

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	history := storage.NewHistoryStore(historyPath)

	// Save failures must not kill the app; they surface as warnings (and
	// as a status line inside the TUI, once it is running).
	store := session.NewStore(history, func(err error) {
		saveNotify(err)
	})
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load chat history: %v\n", err)
	}

	// Fall back to plain mode when stdout is not a terminal.
	if *plainMode || !term.IsTerminal(int(os.Stdout.Fd())) {
		runPlain(cfg, client, store)
		return
	}

	runTUI(cfg, client, store, history)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// =============================================================================
// MODES
// =============================================================================

func runPlain(cfg *config.Config, client *ollama.Client, store *session.Store) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewChat(cfg, client, store, os.Stdout).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg *config.Config, client *ollama.Client, store *session.Store, history *storage.HistoryStore) {
	// The sink feeds runner events into the program; the program is built
	// around the model that needs the runner, so the sink is attached to
	// the program after construction.
	sink := chat.NewProgramSink()
	runner := stream.NewRunner(client, store, sink)

	m := chat.New(cfg, client, store, runner)
	program := tea.NewProgram(m, tea.WithAltScreen())
	sink.SetProgram(program)
	saveNotify = func(err error) {
		program.Send(chat.SaveErrorMsg{Err: err})
	}

	// External edits to the history file show up live in the sidebar. Our
	// own saves are masked so they do not bounce back as reloads.
	watcher, err := storage.NewWatcher(history.Path, 300*time.Millisecond, func() {
		program.Send(chat.HistoryChangedMsg{})
	})
	if err == nil {
		if watchErr := watcher.Watch(); watchErr == nil {
			history.BeforeSave(func() { watcher.SuppressFor(time.Second) })
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	runner.CancelAll()
}
