// Package resolver maps function names to the log groups that back them.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

const (
	functionResourceType = "AWS::Lambda::Function"
	logGroupPrefix       = "/aws/lambda/"
)

// ErrResolution reports that a function could not be mapped to a log group.
var ErrResolution = errors.New("cannot resolve function")

// ResolutionError carries the name and stack that failed to resolve.
type ResolutionError struct {
	Function string
	Stack    string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Stack == "" {
		return fmt.Sprintf("%v %q: %v", ErrResolution, e.Function, e.Err)
	}
	return fmt.Sprintf("%v %q in stack %q: %v", ErrResolution, e.Function, e.Stack, e.Err)
}

func (e *ResolutionError) Unwrap() []error { return []error{ErrResolution, e.Err} }

// StackAPI is the subset of the CloudFormation client used for resolution.
type StackAPI interface {
	DescribeStackResource(ctx context.Context, in *cloudformation.DescribeStackResourceInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourceOutput, error)
}

// Resolver turns a function name, optionally scoped to a stack, into a log
// group name.
type Resolver struct {
	stacks StackAPI
	log    zerolog.Logger
}

// New creates a Resolver. stacks may be nil when no stack lookups are needed.
func New(stacks StackAPI, log zerolog.Logger) *Resolver {
	return &Resolver{stacks: stacks, log: log}
}

// LogGroup returns the log group written by a function with the given
// physical name.
func LogGroup(function string) string {
	return logGroupPrefix + function
}

// Resolve returns the log group for name. Without a stack, name is taken as
// the function's physical name. With a stack, name is the logical id of an
// AWS::Lambda::Function resource in that stack.
func (r *Resolver) Resolve(ctx context.Context, name, stack string) (string, error) {
	if name == "" {
		return "", &ResolutionError{Stack: stack, Err: errors.New("function name is empty")}
	}
	if stack == "" {
		return LogGroup(name), nil
	}
	if r.stacks == nil {
		return "", &ResolutionError{Function: name, Stack: stack, Err: errors.New("no stack client configured")}
	}

	out, err := r.stacks.DescribeStackResource(ctx, &cloudformation.DescribeStackResourceInput{
		StackName:         aws.String(stack),
		LogicalResourceId: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationError" {
			return "", &ResolutionError{Function: name, Stack: stack, Err: errors.New(apiErr.ErrorMessage())}
		}
		return "", fmt.Errorf("describe stack resource %s/%s: %w", stack, name, err)
	}

	detail := out.StackResourceDetail
	if detail == nil {
		return "", &ResolutionError{Function: name, Stack: stack, Err: errors.New("resource not found")}
	}
	if typ := aws.ToString(detail.ResourceType); typ != functionResourceType {
		return "", &ResolutionError{Function: name, Stack: stack, Err: fmt.Errorf("resource type is %s, not %s", typ, functionResourceType)}
	}
	physical := aws.ToString(detail.PhysicalResourceId)
	if physical == "" {
		return "", &ResolutionError{Function: name, Stack: stack, Err: errors.New("resource has no physical id yet")}
	}

	r.log.Debug().Str("function", name).Str("stack", stack).Str("physical_id", physical).Msg("resolved function")
	return LogGroup(physical), nil
}

// ResolveAll resolves each name in order.
func (r *Resolver) ResolveAll(ctx context.Context, names []string, stack string) ([]string, error) {
	groups := make([]string, 0, len(names))
	for _, n := range names {
		g, err := r.Resolve(ctx, n, stack)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}
