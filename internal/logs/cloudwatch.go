package logs

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

// LogsAPI is the subset of the CloudWatch Logs API we use.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatchSource is an EventSource backed by FilterLogEvents.
type CloudWatchSource struct {
	client  LogsAPI
	limiter *rate.Limiter
}

// SourceOption configures a CloudWatchSource.
type SourceOption func(*CloudWatchSource)

// WithRateLimit caps page calls at rps requests per second with the given
// burst. The limiter is shared by every session using the source.
func WithRateLimit(rps float64, burst int) SourceOption {
	return func(s *CloudWatchSource) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewCloudWatchSource wraps a CloudWatch Logs client.
func NewCloudWatchSource(client LogsAPI, opts ...SourceOption) *CloudWatchSource {
	s := &CloudWatchSource{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchPage issues one FilterLogEvents call. The backend treats EndTime as
// inclusive, so the half-open window end is sent as End-1.
func (s *CloudWatchSource) FetchPage(ctx context.Context, req FetchRequest) (Page, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Page{}, err
		}
	}
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(req.LogGroup),
		StartTime:    aws.Int64(req.Window.Start),
	}
	if !req.Window.Open() {
		in.EndTime = aws.Int64(req.Window.End - 1)
	}
	if req.Filter != "" {
		in.FilterPattern = aws.String(req.Filter)
	}
	if req.NextToken != "" {
		in.NextToken = aws.String(req.NextToken)
	}
	if req.Limit > 0 {
		in.Limit = aws.Int32(req.Limit)
	}

	out, err := s.client.FilterLogEvents(ctx, in)
	if err != nil {
		return Page{}, Classify(req.LogGroup, err)
	}

	page := Page{
		Events:    make([]model.LogEvent, 0, len(out.Events)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, e := range out.Events {
		page.Events = append(page.Events, model.LogEvent{
			ID:            aws.ToString(e.EventId),
			Timestamp:     aws.ToInt64(e.Timestamp),
			IngestionTime: aws.ToInt64(e.IngestionTime),
			LogGroup:      req.LogGroup,
			LogStream:     aws.ToString(e.LogStreamName),
			Message:       aws.ToString(e.Message),
		})
	}
	return page, nil
}

// Classify maps an AWS SDK failure onto the engine's error taxonomy.
// Context cancellation and unrecognised errors are returned unchanged.
func Classify(logGroup string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrap := func(kind error) error {
		return &SourceError{Kind: kind, LogGroup: logGroup, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling", "LimitExceededException",
			"TooManyRequestsException", "RequestLimitExceeded":
			return wrap(ErrThrottled)
		case "ResourceNotFoundException":
			return wrap(ErrNotFound)
		case "AccessDeniedException", "UnauthorizedOperation", "UnrecognizedClientException",
			"InvalidSignatureException", "ExpiredTokenException", "InvalidClientTokenId":
			return wrap(ErrUnauthorized)
		case "ServiceUnavailableException", "ServiceUnavailable", "InternalFailure",
			"InternalServerError", "OperationAbortedException":
			return wrap(ErrUnavailable)
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch code := httpErr.HTTPStatusCode(); {
		case code == http.StatusTooManyRequests:
			return wrap(ErrThrottled)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return wrap(ErrUnauthorized)
		case code == http.StatusNotFound:
			return wrap(ErrNotFound)
		case code >= 500:
			return wrap(ErrUnavailable)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(ErrUnavailable)
	}
	return err
}
