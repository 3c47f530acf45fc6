package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/config"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/format"
	"github.com/Nao-Mk2/aws-lambda-logs/internal/resolver"
)

type fakeLogsClient struct {
	mu       sync.Mutex
	events   map[string][]types.FilteredLogEvent
	patterns []string
}

func (f *fakeLogsClient) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.mu.Lock()
	f.patterns = append(f.patterns, aws.ToString(in.FilterPattern))
	f.mu.Unlock()

	var out []types.FilteredLogEvent
	for _, e := range f.events[aws.ToString(in.LogGroupName)] {
		ts := aws.ToInt64(e.Timestamp)
		if ts >= aws.ToInt64(in.StartTime) && (in.EndTime == nil || ts <= aws.ToInt64(in.EndTime)) {
			out = append(out, e)
		}
	}
	return &cloudwatchlogs.FilterLogEventsOutput{Events: out}, nil
}

type fakeStackClient map[string]string

func (f fakeStackClient) DescribeStackResource(ctx context.Context, in *cloudformation.DescribeStackResourceInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourceOutput, error) {
	physical, ok := f[aws.ToString(in.LogicalResourceId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Resource does not exist"}
	}
	return &cloudformation.DescribeStackResourceOutput{StackResourceDetail: &cfntypes.StackResourceDetail{
		ResourceType:       aws.String("AWS::Lambda::Function"),
		PhysicalResourceId: aws.String(physical),
	}}, nil
}

func logEvent(id string, ts time.Time, stream, msg string) types.FilteredLogEvent {
	return types.FilteredLogEvent{
		EventId:       aws.String(id),
		Timestamp:     aws.Int64(ts.UnixMilli()),
		LogStreamName: aws.String(stream),
		Message:       aws.String(msg),
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RequestsPerSecond = 0
	cfg.RetryBaseDelay = 0
	cfg.RetryMaxDelay = 0
	return &cfg
}

func newTestFormatter(t *testing.T, opts format.Options) *format.Formatter {
	t.Helper()
	opts.UTC = true
	f, err := format.New(opts)
	require.NoError(t, err)
	return f
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 0, ExitCode(context.Canceled))
	assert.Equal(t, 2, ExitCode(usage(errors.New("bad flag"))))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
}

func TestRootCommandUsageErrors(t *testing.T) {
	t.Setenv("LOG_GROUP_NAMES", "")
	tests := []struct {
		name string
		args []string
	}{
		{"no target", nil},
		{"unknown flag", []string{"--nope"}},
		{"stack without name", []string{"--log-group", "g", "--stack-name", "app"}},
		{"bad start", []string{"-n", "fn", "-s", "sometime"}},
		{"start after end", []string{"-n", "fn", "-s", "now", "-e", "1h ago"}},
		{"bad color", []string{"-n", "fn", "--color", "rainbow"}},
		{"bad query", []string{"-n", "fn", "--query", "a.["}},
		{"bad log level", []string{"-n", "fn", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRootCommand()
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			err := root.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Equal(t, 2, ExitCode(err), "error: %v", err)
		})
	}
}

func TestExecuteFetchMergesResolvedAndDirectGroups(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	api := &fakeLogsClient{events: map[string][]types.FilteredLogEvent{
		"/aws/lambda/app-Hello-1": {
			logEvent("1", now.Add(-3*time.Minute), "s1", "START RequestId: 1\n"),
			logEvent("3", now.Add(-1*time.Minute), "s1", "ERROR boom\n"),
		},
		"/aws/lambda/direct": {
			logEvent("2", now.Add(-2*time.Minute), "s2", "hello\n"),
		},
	}}
	opts := &Options{Names: []string{"Hello"}, StackName: "app", Groups: []string{"/aws/lambda/direct"}, Filter: "ERROR"}
	var out bytes.Buffer

	err := execute(context.Background(), opts, testConfig(), now.Add(-10*time.Minute), now,
		backends{logs: api, stacks: fakeStackClient{"Hello": "app-Hello-1"}},
		newTestFormatter(t, format.Options{ShowGroup: true, Highlight: opts.Filter}), &out, io.Discard, zerolog.Nop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"/aws/lambda/app-Hello-1 s1 2025-08-31T11:57:00.000Z START RequestId: 1",
		"/aws/lambda/direct s2 2025-08-31T11:58:00.000Z hello",
		"/aws/lambda/app-Hello-1 s1 2025-08-31T11:59:00.000Z ERROR boom",
	}, lines)
	for _, p := range api.patterns {
		assert.Equal(t, "ERROR", p)
	}
}

func TestExecuteQuerySkipsEmptyProjections(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	api := &fakeLogsClient{events: map[string][]types.FilteredLogEvent{
		"/aws/lambda/fn": {
			logEvent("1", now.Add(-2*time.Minute), "s", `{"level":"INFO","msg":"a"}`),
			logEvent("2", now.Add(-1*time.Minute), "s", "plain"),
		},
	}}
	var out bytes.Buffer

	err := execute(context.Background(), &Options{Names: []string{"fn"}}, testConfig(), now.Add(-10*time.Minute), now,
		backends{logs: api}, newTestFormatter(t, format.Options{Query: "msg"}), &out, io.Discard, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "s 2025-08-31T11:58:00.000Z a\n", out.String())
}

func TestExecuteResolutionError(t *testing.T) {
	var out bytes.Buffer
	err := execute(context.Background(), &Options{Names: []string{"Missing"}, StackName: "app"}, testConfig(),
		time.Now().Add(-time.Minute), time.Now(),
		backends{logs: &fakeLogsClient{}, stacks: fakeStackClient{}},
		newTestFormatter(t, format.Options{}), &out, io.Discard, zerolog.Nop())
	require.ErrorIs(t, err, resolver.ErrResolution)
	assert.Equal(t, 1, ExitCode(err))
	assert.Empty(t, out.String())
}

func TestExecuteReportsEmptyFetch(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	var out, notice bytes.Buffer

	err := execute(context.Background(), &Options{Groups: []string{"/aws/lambda/fn"}}, testConfig(), now.Add(-10*time.Minute), now,
		backends{logs: &fakeLogsClient{}}, newTestFormatter(t, format.Options{}), &out, &notice, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, "No logs found between 2025-08-31T11:50:00Z and 2025-08-31T12:00:00Z.\n", notice.String())
}

func TestExecuteTailEndsCleanlyOnCancel(t *testing.T) {
	now := time.Now()
	api := &fakeLogsClient{events: map[string][]types.FilteredLogEvent{
		"/aws/lambda/fn": {logEvent("1", now.Add(-time.Minute), "s", "tailed")},
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var out bytes.Buffer

	err := execute(ctx, &Options{Names: []string{"fn"}, Tail: true}, testConfig(), now.Add(-5*time.Minute), time.Time{},
		backends{logs: api}, newTestFormatter(t, format.Options{}), &out, io.Discard, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "tailed")
}
