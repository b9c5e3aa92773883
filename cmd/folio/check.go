package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/newthinker/folio/internal/logger"
	"github.com/newthinker/folio/internal/render"
	"github.com/newthinker/folio/internal/scoring"
	"github.com/newthinker/folio/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errCheckFailed makes the process exit non-zero after the advisory was shown.
var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check [holdings]",
	Short: "Check the health of a portfolio",
	Long: `Send the holdings text to the scoring API and print the result.
Multiple arguments are joined with single spaces; the resulting text is
sent without trimming or splitting.`,
	Example: `  folio check "AAPL, TSLA, BTC"`,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	level := "warn"
	if debug {
		level = "debug"
	}
	log, err := logger.NewWithLevel(debug, level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := scoring.New(scoring.Config{
		BaseURL:    cfg.API.BaseURL,
		Path:       cfg.API.Path,
		QueryParam: cfg.API.QueryParam,
		Timeout:    cfg.API.Timeout,
		Debug:      cfg.API.Debug,
	}, log.Named("scoring"))

	wf := session.NewWorkflow(client, session.Options{
		FailureMessage: cfg.Message,
		Logger:         log.Named("session"),
	})

	final := runWithSpinner(ctx, wf, strings.Join(args, " "))

	out := cmd.OutOrStdout()
	r := render.New(out)
	fmt.Fprintln(out, r.Title())
	fmt.Fprintln(out, r.State(final))

	if final.Phase() == session.PhaseFailure {
		return errCheckFailed
	}
	return nil
}

// runWithSpinner submits input and animates the busy line on an interactive
// stderr for as long as the session reports busy.
func runWithSpinner(ctx context.Context, wf *session.Workflow, input string) session.State {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return wf.Submit(ctx, input)
	}
	return followBusy(wf, render.NewSpinner(os.Stderr, render.BusyMessage), func() session.State {
		return wf.Submit(ctx, input)
	})
}

// followBusy runs submit while showing spinner whenever a snapshot is busy.
func followBusy(wf *session.Workflow, spinner *render.Spinner, submit func() session.State) session.State {
	updates, cancel := wf.Subscribe()
	defer cancel()

	result := make(chan session.State, 1)
	go func() { result <- submit() }()

	for {
		select {
		case s := <-updates:
			if s.Busy {
				spinner.Start()
			}
		case final := <-result:
			spinner.Stop()
			return final
		}
	}
}
