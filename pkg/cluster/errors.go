package cluster

import (
	"fmt"
	"time"
)

type ClusterUnhealthyError struct {
	Cluster   string
	Operation string
	Snapshot  Snapshot
}

func (e *ClusterUnhealthyError) Error() string {
	return fmt.Sprintf(
		"cluster %s is not healthy, refusing to %s without force: %s",
		e.Cluster,
		e.Operation,
		e.Snapshot,
	)
}

// ClusterTimeoutError carries the last snapshot observed before giving up.
type ClusterTimeoutError struct {
	Cluster    string
	WaitingFor string
	Timeout    time.Duration
	Snapshot   Snapshot
}

func (e *ClusterTimeoutError) Error() string {
	return fmt.Sprintf(
		"timed out after %v waiting for %s on cluster %s, last status: %s",
		e.Timeout,
		e.WaitingFor,
		e.Cluster,
		e.Snapshot,
	)
}

type FlagSetError struct {
	Flag   Flag
	Set    bool
	Output string
}

func (e *FlagSetError) Error() string {
	verb := "set"
	if !e.Set {
		verb = "unset"
	}
	return fmt.Sprintf("failed to %s flag %s, got unexpected output: %q", verb, e.Flag, e.Output)
}
