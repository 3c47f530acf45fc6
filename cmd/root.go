// Package cmd implements the aws-lambda-logs command line.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/client"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/config"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/format"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/inspector"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/logging"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/logs"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/resolver"
)

const longHelp = `Fetch logs written by Lambda functions.

Logs can be read for a function name, for a logical id within a
CloudFormation stack (--stack-name), or for log groups directly. Several
functions or groups are merged in timestamp order.

Use -s/--start-time and -e/--end-time to pick a time range. Times can be
relative ("5mins ago", "yesterday") or absolute ("2025-08-30 10:00:00",
RFC3339). Use --tail to keep following new events as they arrive.

Examples:
  aws-lambda-logs -n HelloWorldFunction --stack-name mystack
  aws-lambda-logs -n my-function --filter ERROR -s "1h ago"
  aws-lambda-logs -n HelloWorldFunction --stack-name mystack --tail
  aws-lambda-logs --log-group /aws/lambda/a --log-group /aws/lambda/b --query level`

// usageError marks failures caused by invalid input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error { return &usageError{err: err} }

// ExitCode maps an Execute error to the process exit status: 0 for success
// or interruption, 2 for invalid input, 1 otherwise.
func ExitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.As(err, &ue):
		return 2
	}
	return 1
}

// NewRootCommand builds the aws-lambda-logs command.
func NewRootCommand() *cobra.Command {
	opts := DefaultOptions()

	rootCmd := &cobra.Command{
		Use:           "aws-lambda-logs",
		Short:         "Fetch and tail logs of Lambda functions",
		Long:          longHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usage(err) })

	f := rootCmd.Flags()
	f.StringSliceVarP(&opts.Names, "name", "n", nil, "Function name, or logical id when --stack-name is set (repeatable)")
	f.StringVar(&opts.StackName, "stack-name", "", "CloudFormation stack the functions belong to")
	f.StringSliceVar(&opts.Groups, "log-group", opts.Groups, "Log group name to read directly (repeatable; env LOG_GROUP_NAMES)")
	f.StringVar(&opts.Filter, "filter", "", "CloudWatch Logs filter pattern")
	f.StringVarP(&opts.StartTime, "start-time", "s", opts.StartTime, "Fetch logs starting at this time")
	f.StringVarP(&opts.EndTime, "end-time", "e", "", "Fetch logs up to this time (default now; ignored with --tail)")
	f.BoolVarP(&opts.Tail, "tail", "t", false, "Keep following new log events")
	f.StringVar(&opts.Region, "region", opts.Region, "AWS region (env AWS_REGION)")
	f.StringVar(&opts.Profile, "profile", opts.Profile, "AWS shared config profile (env AWS_PROFILE)")
	f.StringVar(&opts.ConfigPath, "config", "", "Engine configuration file (TOML)")
	f.StringVar(&opts.Query, "query", "", "JMESPath expression applied to each message")
	f.StringVar(&opts.Color, "color", opts.Color, "Color output: auto, always or never")
	f.StringVar(&opts.LogLevel, "log-level", "", "Diagnostic log level on stderr (overrides config)")

	return rootCmd
}

// backends are the remote APIs a run talks to.
type backends struct {
	logs   logs.LogsAPI
	stacks resolver.StackAPI
}

func run(ctx context.Context, opts *Options, stdout, stderr io.Writer) error {
	if err := opts.Validate(); err != nil {
		return usage(err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return usage(err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return usage(err)
	}

	start, end, err := ResolveTimeWindow(opts.StartTime, opts.EndTime, opts.Tail, time.Now())
	if err != nil {
		return usage(err)
	}
	colorOn, err := format.ShouldColorize(opts.Color, stdout)
	if err != nil {
		return usage(err)
	}
	formatter, err := format.New(format.Options{
		Color:     colorOn,
		Highlight: opts.Filter,
		Query:     opts.Query,
		ShowGroup: len(opts.Names)+len(opts.Groups) > 1,
	})
	if err != nil {
		return usage(err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := client.NewSession(ctx, client.AuthOptions{Region: opts.Region, Profile: opts.Profile})
	if err != nil {
		return err
	}
	defer sess.Close()

	return execute(ctx, opts, cfg, start, end, backends{logs: sess.Logs, stacks: sess.Stacks}, formatter, stdout, stderr, log)
}

// execute resolves the log groups and streams their events to out.
func execute(ctx context.Context, opts *Options, cfg *config.Config, start, end time.Time, b backends, formatter *format.Formatter, out, errOut io.Writer, log zerolog.Logger) error {
	groups := append([]string(nil), opts.Groups...)
	if len(opts.Names) > 0 {
		resolved, err := resolver.New(b.stacks, log).ResolveAll(ctx, opts.Names, opts.StackName)
		if err != nil {
			return err
		}
		groups = append(groups, resolved...)
	}

	source := logs.NewCloudWatchSource(b.logs, logs.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst))
	fetcher := logs.NewFetcher(source, logs.WithConfig(cfg.Engine()), logs.WithLogger(log))
	insp := inspector.New(fetcher, groups,
		inspector.WithMergeWindow(cfg.MergeWindow),
		inspector.WithLogger(log))

	log.Debug().Strs("log_groups", groups).Bool("tail", opts.Tail).Time("start", start).Msg("starting")

	var seq iter.Seq2[model.LogEvent, error]
	if opts.Tail {
		seq = insp.Tail(ctx, opts.Filter, start)
	} else {
		seq = insp.Fetch(ctx, opts.Filter, start, end)
	}

	n, err := printEvents(seq, formatter, out)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	if err == nil && n == 0 && !opts.Tail {
		fmt.Fprintf(errOut, "No logs found between %s and %s.\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return err
}

// printEvents writes one line per event and flushes after each, so output
// is visible immediately when tailing.
func printEvents(seq iter.Seq2[model.LogEvent, error], formatter *format.Formatter, out io.Writer) (int, error) {
	w := bufio.NewWriter(out)
	defer w.Flush()

	n := 0
	for ev, err := range seq {
		if err != nil {
			return n, err
		}
		line, ok, err := formatter.Format(ev)
		if err != nil {
			return n, fmt.Errorf("format event %s: %w", ev.Key(), err)
		}
		if !ok {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return n, err
		}
		if err := w.Flush(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
