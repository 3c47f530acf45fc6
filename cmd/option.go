package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/logs"
)

// DefaultStart is used when --start-time is not given.
const DefaultStart = "10m ago"

// Options holds CLI options after parsing flags and env defaults.
type Options struct {
	Names      []string
	StackName  string
	Groups     []string
	Filter     string
	StartTime  string
	EndTime    string
	Tail       bool
	Region     string
	Profile    string
	ConfigPath string
	Query      string
	Color      string
	LogLevel   string
}

// DefaultOptions returns Options seeded from the environment:
// LOG_GROUP_NAMES (comma-separated), AWS_REGION and AWS_PROFILE.
func DefaultOptions() *Options {
	return &Options{
		Groups:    ParseGroupsCSV(os.Getenv("LOG_GROUP_NAMES")),
		Region:    os.Getenv("AWS_REGION"),
		Profile:   ResolveProfile(""),
		StartTime: DefaultStart,
		Color:     "auto",
	}
}

// Validate checks relationships between flags.
func (o *Options) Validate() error {
	if len(o.Names) == 0 && len(o.Groups) == 0 {
		return errors.New("either --name or --log-group is required")
	}
	if o.StackName != "" && len(o.Names) == 0 {
		return errors.New("--stack-name requires --name")
	}
	for _, n := range o.Names {
		if strings.TrimSpace(n) == "" {
			return errors.New("--name must not be empty")
		}
	}
	return nil
}

// ParseGroupsCSV turns a comma-separated groups string into slice, trimming empties.
func ParseGroupsCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var groups []string
	for _, g := range strings.Split(csv, ",") {
		g = strings.TrimSpace(g)
		if g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// ResolveProfile returns the profile from flag or AWS_PROFILE env, or empty.
func ResolveProfile(flagProfile string) string {
	if flagProfile != "" {
		return flagProfile
	}
	return os.Getenv("AWS_PROFILE")
}

// ResolveTimeWindow computes [start, end) from the time flags.
// Rules:
// - empty start: 10 minutes before now
// - empty end: now
// - tail: end is ignored and returned as the zero time
// - start must not be after end
func ResolveTimeWindow(startStr, endStr string, tail bool, now time.Time) (time.Time, time.Time, error) {
	if startStr == "" {
		startStr = DefaultStart
	}
	start, err := ParseTime(startStr, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--start-time: %w", err)
	}
	if tail {
		return start, time.Time{}, nil
	}

	end := now
	if endStr != "" {
		end, err = ParseTime(endStr, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end-time: %w", err)
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s",
			logs.ErrInvalidTimeRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}
