package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/remote"
)

type SilenceID string

type Matcher struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	IsRegex bool   `json:"isRegex"`
	IsEqual bool   `json:"isEqual"`
}

type Silence struct {
	ID        SilenceID `json:"id"`
	Comment   string    `json:"comment"`
	CreatedBy string    `json:"createdBy"`
	Matchers  []Matcher `json:"matchers"`
	EndsAt    time.Time `json:"endsAt"`
	Status    struct {
		State string `json:"state"`
	} `json:"status"`
}

// Silencer creates and removes time-bounded alert suppressions. Matchers use
// the alertmanager syntax, e.g. `service=~.*ceph.*`.
type Silencer interface {
	AddSilence(ctx context.Context, matchers []string, duration time.Duration, comment string) (SilenceID, error)
	QuerySilences(ctx context.Context, matchers []string) ([]Silence, error)
	ExpireSilences(ctx context.Context, ids []SilenceID) error
}

// Amtool drives amtool on an alertmanager host through the remote executor.
type Amtool struct {
	logger   *zap.SugaredLogger
	executor remote.Executor
	host     string
}

func NewAmtool(logger *zap.SugaredLogger, executor remote.Executor, host string) *Amtool {
	return &Amtool{
		logger:   logger,
		executor: executor,
		host:     host,
	}
}

func (a *Amtool) run(ctx context.Context, args ...string) (string, error) {
	command := shellquote.Join(append([]string{"amtool", "--output=json", "silence"}, args...)...)
	result, err := remote.RunOne(ctx, a.executor, a.host, command, remote.Quiet())
	if err != nil {
		return "", fmt.Errorf("amtool on %s failed: %w", a.host, err)
	}
	return strings.TrimSpace(result.Output), nil
}

func (a *Amtool) AddSilence(ctx context.Context, matchers []string, duration time.Duration, comment string) (SilenceID, error) {
	if len(matchers) == 0 {
		return "", fmt.Errorf("refusing to add a silence without matchers")
	}

	args := []string{
		"add",
		"--duration=" + amtoolDuration(duration),
		"--comment=" + comment,
	}
	output, err := a.run(ctx, append(args, matchers...)...)
	if err != nil {
		return "", err
	}

	lines := strings.Split(output, "\n")
	id := strings.TrimSpace(lines[len(lines)-1])
	if id == "" {
		return "", fmt.Errorf("amtool returned no silence id for %v", matchers)
	}

	a.logger.Debugf("Added silence %s for %v (%s)", id, matchers, amtoolDuration(duration))
	return SilenceID(id), nil
}

func (a *Amtool) QuerySilences(ctx context.Context, matchers []string) ([]Silence, error) {
	output, err := a.run(ctx, append([]string{"query"}, matchers...)...)
	if err != nil {
		return nil, err
	}

	silences := []Silence{}
	if output == "" || output == "null" {
		return silences, nil
	}
	if err := json.Unmarshal([]byte(output), &silences); err != nil {
		return nil, fmt.Errorf("failed to parse amtool query output: %w", err)
	}
	return silences, nil
}

func (a *Amtool) ExpireSilences(ctx context.Context, ids []SilenceID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := a.run(ctx, append([]string{"expire"}, collections.Convert(ids, func(id SilenceID) string { return string(id) })...)...)
	if err != nil {
		return err
	}
	a.logger.Debugf("Expired silences %v", ids)
	return nil
}

// amtoolDuration renders d in the prometheus duration format, e.g. 1h30m.
func amtoolDuration(d time.Duration) string {
	d = d.Round(time.Second)
	sb := strings.Builder{}
	if h := d / time.Hour; h > 0 {
		sb.WriteString(fmt.Sprintf("%dh", h))
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		sb.WriteString(fmt.Sprintf("%dm", m))
		d -= m * time.Minute
	}
	if s := d / time.Second; s > 0 || sb.Len() == 0 {
		sb.WriteString(fmt.Sprintf("%ds", s))
	}
	return sb.String()
}

// HostsMatcher matches every instance label of the given hosts, with or
// without an exporter port.
func HostsMatcher(hosts []string) string {
	quoted := collections.Convert(hosts, regexp.QuoteMeta)
	if len(quoted) == 1 {
		return fmt.Sprintf("instance=~%s(:[0-9]+)?", quoted[0])
	}
	return fmt.Sprintf("instance=~(%s)(:[0-9]+)?", strings.Join(quoted, "|"))
}

// Comment builds the silence comment, tagged with who started the run.
func Comment(reason, taskID string) string {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	postfix := fmt.Sprintf("- from fleetops ran by %s@%s", username, hostname)
	if taskID != "" {
		postfix = fmt.Sprintf(" (%s) %s", taskID, postfix)
	} else {
		postfix = " " + postfix
	}

	if reason == "" {
		reason = "No comment"
	}
	return reason + postfix
}
