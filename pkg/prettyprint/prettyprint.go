package prettyprint

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"

	"github.com/fleetops/fleetops/pkg/cluster"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/nodetree"
	"github.com/fleetops/fleetops/pkg/rolling"
)

const (
	OutcomeSuccessful   = "successful"
	OutcomeFailed       = "failed"
	OutcomeNotAttempted = "not attempted"
)

func newTable() (*tabby.Tabby, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return tabby.NewCustom(tabwriter.NewWriter(buffer, 0, 0, 2, ' ', 0)), buffer
}

func PlanToString(action string, batches []hostset.Batch) string {
	table, buffer := newTable()
	table.AddLine(fmt.Sprintf("Plan for %s, %d batches:", action, len(batches)))
	table.AddHeader("Batch", "Size", "Hosts")
	for _, batch := range batches {
		table.AddLine(fmt.Sprintf("%d/%d", batch.Index, batch.Total), batch.Hosts.Len(), batch.Hosts.String())
	}
	table.Print()
	return buffer.String()
}

// ResultsToString lists every host of the run with its outcome, in run order.
func ResultsToString(results *rolling.Results) string {
	table, buffer := newTable()
	table.AddHeader("Host", "Outcome")
	for _, host := range results.All.Hosts() {
		outcome := OutcomeNotAttempted
		switch {
		case results.Successful.Contains(host):
			outcome = OutcomeSuccessful
		case results.Failed.Contains(host):
			outcome = OutcomeFailed
		}
		table.AddLine(host, outcome)
	}
	table.Print()
	return buffer.String()
}

func TreeToString(root *nodetree.Node) string {
	table, buffer := newTable()
	table.AddHeader("ID", "Name", "Type", "Class", "Status", "Weight")
	root.Walk(func(node *nodetree.Node, depth int) {
		name := strings.Repeat("  ", depth) + node.Name
		if node.Unit == nil {
			table.AddLine(node.ID, name, node.Type, "", "", "")
			return
		}
		table.AddLine(node.ID, name, node.Type, node.Unit.Class, node.Unit.Status, fmt.Sprintf("%.3f", node.Unit.Weight))
	})
	table.Print()
	return buffer.String()
}

func SnapshotToString(name string, snapshot cluster.Snapshot) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Cluster: %s\n", name))
	sb.WriteString(fmt.Sprintf("Status: %s\n", snapshot))
	sb.WriteString(fmt.Sprintf("Healthy: %t, only maintenance: %t\n", snapshot.IsHealthy(), snapshot.IsJustMaintenance()))

	flags := []string{}
	for _, flag := range snapshot.Flags() {
		flags = append(flags, string(flag))
	}
	if len(flags) > 0 {
		sb.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(flags, ",")))
	}

	events := snapshot.InProgress()
	if len(events) == 0 {
		return sb.String()
	}

	table, buffer := newTable()
	table.AddHeader("Event", "Progress", "Message")
	for _, event := range events {
		table.AddLine(event.ID, fmt.Sprintf("%.1f%%", event.Progress*100), event.Message)
	}
	table.Print()
	sb.WriteString(buffer.String())
	return sb.String()
}
