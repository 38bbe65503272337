// Command leadchat runs one qualification conversation in the terminal.
//
// Commands: /finish ends the session and prints the lead, /reset starts over,
// /state prints the collected fields, /quit exits.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/totalhomes/lead-qualifier/cmd/mainconfig"
	"github.com/totalhomes/lead-qualifier/internal/app/bootstrap"
	appconfig "github.com/totalhomes/lead-qualifier/internal/config"
	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	lang := flag.String("lang", cfg.DefaultLanguage, "conversation language (es, en, ca)")
	local := flag.Bool("local", false, "force the local backend even when a provider is configured")
	flag.Parse()

	// Only warnings are logged so they rarely interleave with the dialogue.
	logger := logging.NewWithFormat("warn", "text")
	if *local {
		cfg.LLMProvider = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manager, err := buildManager(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leadchat:", err)
		os.Exit(1)
	}
	if err := run(ctx, os.Stdin, os.Stdout, manager, qualify.ParseLanguage(*lang)); err != nil {
		fmt.Fprintln(os.Stderr, "leadchat:", err)
		os.Exit(1)
	}
}

func buildManager(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*conversation.Manager, error) {
	qualifyCfg, err := bootstrap.BuildQualifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	var backend conversation.Backend = conversation.NewLocalBackend()
	if cfg.RemoteEnabled() {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if backend, err = bootstrap.BuildBackend(ctx, cfg, awsCfg, nil, logger); err != nil {
			return nil, err
		}
	}
	return bootstrap.BuildSessionManager(cfg, bootstrap.ManagerDeps{
		Backend: backend,
		Qualify: qualifyCfg,
	}, logger), nil
}

// run drives one session from in until /quit or EOF.
func run(ctx context.Context, in io.Reader, out io.Writer, manager *conversation.Manager, lang qualify.Language) error {
	s := manager.Create(ctx, lang)
	fmt.Fprintf(out, "[%s · %s]\n", s.Language(), manager.Backend())
	printLast(out, s.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/state":
			printJSON(out, s.Snapshot().State.Fields)
			continue
		case "/reset":
			snap, err := manager.Reset(ctx, s.ID())
			if err != nil {
				return err
			}
			printLast(out, snap)
			continue
		case "/finish":
			snap, err := manager.Finish(ctx, s.ID())
			if err != nil {
				return err
			}
			printLead(out, snap, true)
			return nil
		}

		res, err := manager.Send(ctx, s.ID(), line)
		switch {
		case errors.Is(err, conversation.ErrSessionClosed):
			fmt.Fprintln(out, "(session finished, /reset to start over)")
			continue
		case err != nil && conversation.Retryable(err):
			fmt.Fprintf(out, "(%v)\n", err)
			continue
		case err != nil:
			return err
		}
		fmt.Fprintln(out, res.DisplayText)
		fmt.Fprintf(out, "  [%s · score %d · tier %d]\n", res.Step, res.Score, res.Tier)
		if res.Terminal {
			printLead(out, s.Snapshot(), false)
		}
	}
}

func printLast(out io.Writer, snap conversation.Snapshot) {
	if n := len(snap.Transcript); n > 0 {
		fmt.Fprintln(out, snap.Transcript[n-1].Content)
	}
}

func printLead(out io.Writer, snap conversation.Snapshot, forced bool) {
	rec := leads.NewLeadRecord(snap, forced, snap.UpdatedAt)
	fmt.Fprintf(out, "\n%s (%s, %d points)\n", rec.Summary, rec.Status, rec.Score)
	for _, r := range rec.Reasons {
		fmt.Fprintf(out, "  - %s\n", r)
	}
	fmt.Fprintf(out, "  estimate: %s\n", rec.Estimate.Format(rec.Language))
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
