package ceph

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/cluster"
)

const (
	HealthOK   = "HEALTH_OK"
	HealthWarn = "HEALTH_WARN"
	HealthErr  = "HEALTH_ERR"

	osdmapFlagsCheck = "OSDMAP_FLAGS"
)

var (
	FlagFull           = cluster.Flag("full")
	FlagPause          = cluster.Flag("pause")
	FlagNoUp           = cluster.Flag("noup")
	FlagNoDown         = cluster.Flag("nodown")
	FlagNoOut          = cluster.Flag("noout")
	FlagNoIn           = cluster.Flag("noin")
	FlagNoBackfill     = cluster.Flag("nobackfill")
	FlagNoRebalance    = cluster.Flag("norebalance")
	FlagNoRecover      = cluster.Flag("norecover")
	FlagNoScrub        = cluster.Flag("noscrub")
	FlagNoDeepScrub    = cluster.Flag("nodeep-scrub")
	FlagNoTierAgent    = cluster.Flag("notieragent")
	FlagNoSnapTrim     = cluster.Flag("nosnaptrim")
	FlagPGLogHardLimit = cluster.Flag("pglog_hardlimit")

	OSDFlags = []cluster.Flag{
		FlagFull, FlagPause, FlagNoUp, FlagNoDown, FlagNoOut, FlagNoIn, FlagNoBackfill,
		FlagNoRebalance, FlagNoRecover, FlagNoScrub, FlagNoDeepScrub, FlagNoTierAgent,
		FlagNoSnapTrim, FlagPGLogHardLimit,
	}

	MaintenanceFlags = []cluster.Flag{FlagNoOut, FlagNoRebalance}

	// ignoredChecks never count against cluster health.
	ignoredChecks = []string{
		"AUTH_INSECURE_GLOBAL_ID_RECLAIM",
		"AUTH_INSECURE_GLOBAL_ID_RECLAIM_ALLOWED",
	}
)

func ParseFlag(raw string) (cluster.Flag, error) {
	flag := cluster.Flag(strings.TrimSpace(raw))
	if !slices.Contains(OSDFlags, flag) {
		return "", fmt.Errorf("unknown osd flag %q, expected one of %v", raw, OSDFlags)
	}
	return flag, nil
}

type HealthCheck struct {
	Severity string `json:"severity"`
	Summary  struct {
		Message string `json:"message"`
	} `json:"summary"`
}

type rawStatus struct {
	Health struct {
		Status string                 `json:"status"`
		Checks map[string]HealthCheck `json:"checks"`
	} `json:"health"`
	ProgressEvents map[string]struct {
		Message  string  `json:"message"`
		Progress float64 `json:"progress"`
	} `json:"progress_events"`
}

// Status is the parsed output of `ceph status -f json`. It implements
// cluster.Snapshot on the allow-list filtered view of the health checks.
type Status struct {
	raw            rawStatus
	filteredStatus string
	filteredChecks map[string]HealthCheck
}

func ParseStatus(data []byte) (*Status, error) {
	raw := rawStatus{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ceph status: %w", err)
	}
	if raw.Health.Status == "" {
		return nil, fmt.Errorf("ceph status has no health status: %s", strings.TrimSpace(string(data)))
	}

	status := &Status{
		raw:            raw,
		filteredStatus: raw.Health.Status,
		filteredChecks: make(map[string]HealthCheck, len(raw.Health.Checks)),
	}
	for name, check := range raw.Health.Checks {
		if !slices.Contains(ignoredChecks, name) {
			status.filteredChecks[name] = check
		}
	}
	// A non-OK status without any checks stays as reported.
	if len(raw.Health.Checks) > 0 && len(status.filteredChecks) == 0 {
		status.filteredStatus = HealthOK
	}
	return status, nil
}

func (s *Status) HealthStatus() string {
	return s.filteredStatus
}

func (s *Status) IsHealthy() bool {
	return s.filteredStatus == HealthOK
}

func (s *Status) IsJustMaintenance() bool {
	if s.filteredStatus != HealthWarn {
		return false
	}
	if _, found := s.filteredChecks[osdmapFlagsCheck]; !found || len(s.filteredChecks) != 1 {
		return false
	}
	for _, flag := range s.Flags() {
		if !slices.Contains(MaintenanceFlags, flag) {
			return false
		}
	}
	return true
}

// Flags parses the OSDMAP_FLAGS check, e.g. "noout,norebalance flag(s) set".
func (s *Status) Flags() []cluster.Flag {
	check, found := s.raw.Health.Checks[osdmapFlagsCheck]
	if !found {
		return nil
	}
	message := check.Summary.Message
	if !strings.Contains(message, "flag(s) set") {
		return nil
	}

	flags := []cluster.Flag{}
	for _, raw := range strings.Split(strings.Fields(message)[0], ",") {
		flags = append(flags, cluster.Flag(raw))
	}
	return flags
}

func (s *Status) InProgress() []cluster.ProgressEvent {
	events := make([]cluster.ProgressEvent, 0, len(s.raw.ProgressEvents))
	for id, event := range s.raw.ProgressEvents {
		events = append(events, cluster.ProgressEvent{ID: id, Message: event.Message, Progress: event.Progress})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

func (s *Status) String() string {
	names := collections.SortedKeys(s.raw.Health.Checks)

	checks := make([]string, 0, len(names))
	for _, name := range names {
		checks = append(checks, fmt.Sprintf("%s (%s)", name, s.raw.Health.Checks[name].Summary.Message))
	}
	if len(checks) == 0 {
		return s.raw.Health.Status
	}
	return fmt.Sprintf("%s: %s", s.raw.Health.Status, strings.Join(checks, "; "))
}
