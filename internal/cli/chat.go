// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/stream"
)

var errCancelled = errors.New("cancelled")

// =============================================================================
// REPL
// =============================================================================

// Chat is the plain-mode chat loop.
type Chat struct {
	cfg    *config.Config
	client *ollama.Client
	store  *session.Store
	runner *stream.Runner
	sink   *consoleSink
	out    io.Writer

	model       string
	historyFile string
}

// NewChat wires a plain chat over the shared client and store.
func NewChat(cfg *config.Config, client *ollama.Client, store *session.Store, out io.Writer) *Chat {
	sink := newConsoleSink(out)
	c := &Chat{
		cfg:    cfg,
		client: client,
		store:  store,
		sink:   sink,
		out:    out,
		model:  cfg.Server.DefaultModel,
	}
	c.runner = stream.NewRunner(client, store, sink)

	if dir, err := config.Dir(); err == nil {
		c.historyFile = filepath.Join(dir, "repl_history")
	}
	return c
}

// Run executes the REPL until /quit, EOF, or context cancellation.
func (c *Chat) Run(ctx context.Context) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer func() {
		c.saveInputHistory(line)
		line.Close()
	}()
	c.loadInputHistory(line)

	if c.model == "" {
		c.pickFirstModel(ctx)
	}

	fmt.Fprintln(c.out, "localchat (plain mode) - /help for commands")

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C on the prompt or EOF both end the session.
			fmt.Fprintln(c.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := c.handleCommand(ctx, input); quit {
				return nil
			}
			continue
		}

		c.send(ctx, input)
	}
}

// =============================================================================
// PROMPT HANDLING
// =============================================================================

// send submits a prompt and prints the streamed response inline.
func (c *Chat) send(ctx context.Context, prompt string) {
	if c.model == "" {
		fmt.Fprintln(c.out, "No model available. Is Ollama running? (/model to retry)")
		return
	}

	if c.store.Active() == nil {
		c.store.Create("")
	}
	sessionID := c.store.ActiveID()

	if err := c.store.AppendMessage(sessionID, model.NewMessage(model.RoleUser, prompt)); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}

	done := c.sink.begin()
	if _, err := c.runner.Start(ctx, sessionID, c.model, prompt); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, errCancelled) {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	case <-ctx.Done():
		c.runner.Cancel(sessionID)
		<-done
	}
}

// pickFirstModel falls back to the first installed model.
func (c *Chat) pickFirstModel(ctx context.Context) {
	models, err := c.client.ListModels(ctx)
	if err == nil && len(models) > 0 {
		c.model = models[0].Name
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand executes one slash command; reports whether to quit.
func (c *Chat) handleCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help":
		c.printHelp()

	case "/new":
		sess := c.store.Create("")
		fmt.Fprintf(c.out, "Started %s\n", sess.Name)

	case "/sessions":
		c.printSessions()

	case "/switch":
		c.switchSession(args)

	case "/delete":
		c.deleteSession(args)

	case "/model":
		c.selectModel(ctx, args)

	case "/export":
		c.exportActive(args)

	case "/copy":
		c.copyActive()

	default:
		fmt.Fprintf(c.out, "Unknown command %s (/help for commands)\n", cmd)
	}
	return false
}

func (c *Chat) printHelp() {
	help := []string{
		"/new            start a new chat",
		"/sessions       list chats",
		"/switch <id>    switch to a chat",
		"/delete <id>    delete a chat",
		"/model [name]   list models or pick one",
		"/export [md]    export the chat to a text or markdown file",
		"/copy           copy the chat to the clipboard",
		"/quit           exit",
	}
	for _, h := range help {
		fmt.Fprintln(c.out, h)
	}
}

func (c *Chat) printSessions() {
	sessions := c.store.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "No chats yet")
		return
	}
	for _, sess := range sessions {
		marker := " "
		if sess.ID == c.store.ActiveID() {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %d: %s (%d messages)\n", marker, sess.ID, sess.Name, len(sess.Messages))
	}
}

func (c *Chat) switchSession(args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Fprintln(c.out, "usage: /switch <id>")
		return
	}
	if err := c.store.SetActive(id); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	sess := c.store.Active()
	fmt.Fprintf(c.out, "Switched to %s\n", sess.Name)
	if t := sess.Transcript(); t != "" {
		fmt.Fprintln(c.out, t)
	}
}

func (c *Chat) deleteSession(args []string) {
	id, ok := parseID(args)
	if !ok {
		fmt.Fprintln(c.out, "usage: /delete <id>")
		return
	}
	c.runner.Cancel(id)
	if err := c.store.Delete(id); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Deleted chat %d\n", id)
}

func (c *Chat) selectModel(ctx context.Context, args []string) {
	if len(args) > 0 {
		c.model = args[0]
		c.cfg.Server.DefaultModel = c.model
		if err := c.cfg.Persist(); err != nil {
			fmt.Fprintf(c.out, "warning: could not save config: %v\n", err)
		}
		fmt.Fprintf(c.out, "Model: %s\n", c.model)
		return
	}
	models, err := c.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	for _, info := range models {
		marker := " "
		if info.Name == c.model {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", marker, info.Name)
	}
}

func (c *Chat) exportActive(args []string) {
	var exp export.Exporter = export.NewTextExporter()
	if len(args) > 0 {
		switch args[0] {
		case "md", "markdown":
			exp = export.NewMarkdownExporter()
		case "txt", "text":
		default:
			fmt.Fprintln(c.out, "usage: /export [txt|md]")
			return
		}
	}

	sess := c.store.Active()
	if sess == nil || len(sess.Messages) == 0 {
		fmt.Fprintln(c.out, "Nothing to export")
		return
	}
	opts := &export.Options{
		OutputDir:       c.cfg.Export.Dir,
		OpenAfterExport: c.cfg.Export.OpenAfterExport,
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	path, err := export.ToFile(sess, exp, opts)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Exported to %s\n", path)
}

func (c *Chat) copyActive() {
	sess := c.store.Active()
	if sess == nil || len(sess.Messages) == 0 {
		fmt.Fprintln(c.out, "Nothing to copy")
		return
	}
	if err := clipboard.WriteAll(sess.Transcript()); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Copied to clipboard")
}

func parseID(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return id, true
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func (c *Chat) loadInputHistory(line *liner.State) {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

func (c *Chat) saveInputHistory(line *liner.State) {
	if c.historyFile == "" {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
