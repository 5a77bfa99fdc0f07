package ceph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/cluster"
	"github.com/fleetops/fleetops/pkg/nodetree"
	"github.com/fleetops/fleetops/pkg/remote"
)

const (
	BackendName = "ceph"

	AlertMatcher = "service=~.*ceph.*"

	unitType = "osd"
)

type NoControllerError struct {
	Cluster     string
	Controllers []string
}

func (e *NoControllerError) Error() string {
	return fmt.Sprintf(
		"no reachable controlling node for ceph cluster %s, tried: %s",
		e.Cluster,
		strings.Join(e.Controllers, ","),
	)
}

// Cluster runs ceph commands on one of the cluster monitors. When the
// current monitor becomes unreachable the next configured one takes over.
type Cluster struct {
	logger      *zap.SugaredLogger
	executor    remote.Executor
	name        string
	controllers []string

	mu      sync.Mutex
	current int
}

func New(logger *zap.SugaredLogger, executor remote.Executor, name string, controllers []string) (*Cluster, error) {
	if len(controllers) == 0 {
		return nil, fmt.Errorf("ceph cluster %s has no controlling nodes configured", name)
	}
	return &Cluster{
		logger:      logger,
		executor:    executor,
		name:        name,
		controllers: controllers,
	}, nil
}

func (c *Cluster) Name() string {
	return c.name
}

func (c *Cluster) ControllingNode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllers[c.current]
}

func (c *Cluster) changeControllingNode(from string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.controllers[c.current] != from {
		return
	}
	c.current = (c.current + 1) % len(c.controllers)
	c.logger.Infof("Changed to node %s to control the ceph cluster %s", c.controllers[c.current], c.name)
}

func (c *Cluster) run(ctx context.Context, args ...string) (string, error) {
	command := shellquote.Join(append([]string{"ceph"}, args...)...)

	for attempt := 0; attempt < len(c.controllers); attempt++ {
		host := c.ControllingNode()
		result, err := remote.RunOne(ctx, c.executor, host, command, remote.AsRoot(), remote.Quiet())

		var unreachable *remote.UnreachableError
		if errors.As(err, &unreachable) {
			c.logger.Warnf("Controlling node %s of ceph cluster %s is unreachable", host, c.name)
			c.changeControllingNode(host)
			continue
		}
		if err != nil {
			return "", err
		}
		return result.Output, nil
	}

	return "", &NoControllerError{Cluster: c.name, Controllers: c.controllers}
}

// runJSON returns the last non-empty output line, ceph may print blank
// lines before the document.
func (c *Cluster) runJSON(ctx context.Context, args ...string) ([]byte, error) {
	output, err := c.run(ctx, append(args, "-f", "json")...)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	return []byte(lines[len(lines)-1]), nil
}

func (c *Cluster) Status(ctx context.Context) (*Status, error) {
	data, err := c.runJSON(ctx, "status")
	if err != nil {
		return nil, err
	}
	return ParseStatus(data)
}

func (c *Cluster) Snapshot(ctx context.Context) (cluster.Snapshot, error) {
	return c.Status(ctx)
}

func (c *Cluster) SetFlag(ctx context.Context, flag cluster.Flag) error {
	return c.toggleFlag(ctx, flag, true)
}

func (c *Cluster) UnsetFlag(ctx context.Context, flag cluster.Flag) error {
	return c.toggleFlag(ctx, flag, false)
}

func (c *Cluster) toggleFlag(ctx context.Context, flag cluster.Flag, set bool) error {
	flag, err := ParseFlag(string(flag))
	if err != nil {
		return err
	}

	verb := "set"
	if !set {
		verb = "unset"
	}
	output, err := c.run(ctx, "osd", verb, string(flag))
	if err != nil {
		return err
	}
	return confirmFlag(flag, set, output)
}

func (c *Cluster) MaintenanceFlags() []cluster.Flag {
	return MaintenanceFlags
}

func (c *Cluster) AlertMatchers() []string {
	return []string{AlertMatcher}
}

type osdTree struct {
	Nodes []nodetree.Record `json:"nodes"`
	Stray []nodetree.Record `json:"stray"`
}

func (c *Cluster) OSDTree(ctx context.Context) (*nodetree.Node, error) {
	data, err := c.runJSON(ctx, "osd", "tree")
	if err != nil {
		return nil, err
	}

	tree := osdTree{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse ceph osd tree: %w", err)
	}
	return nodetree.Build(tree.Nodes, unitType)
}

// confirmFlag is the single place knowing the confirmation wording of
// `ceph osd set|unset`. Anything but "<flag> is set" (or "is unset") at the
// start of the output is a failure.
func confirmFlag(flag cluster.Flag, set bool, output string) error {
	verb := "set"
	if !set {
		verb = "unset"
	}
	confirmation := regexp.MustCompile(`^\n?` + regexp.QuoteMeta(string(flag)) + ` is ` + verb + `(\s|$)`)
	if !confirmation.MatchString(output) {
		return &cluster.FlagSetError{Flag: flag, Set: set, Output: output}
	}
	return nil
}
