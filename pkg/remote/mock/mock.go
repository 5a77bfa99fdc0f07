package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/fleetops/fleetops/pkg/remote"
)

// Reply is what a mocked host answers to a command.
type Reply struct {
	ExitCode int
	Output   string
}

type Call struct {
	Hosts   []string
	Command string
	AsRoot  bool
}

type handler struct {
	prefix  string
	respond func(host string, call int) Reply
	calls   int
}

// Executor is a scripted remote.Executor. Commands are matched by prefix,
// the most recently registered matching handler wins, unmatched commands
// succeed with empty output.
type Executor struct {
	mu       sync.Mutex
	handlers []*handler
	calls    []Call
}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) OnFunc(prefix string, respond func(host string, call int) Reply) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, &handler{prefix: prefix, respond: respond})
	return e
}

func (e *Executor) On(prefix string, reply Reply) *Executor {
	return e.OnFunc(prefix, func(string, int) Reply { return reply })
}

// OnSequence answers successive calls with successive replies, the last one
// repeats forever.
func (e *Executor) OnSequence(prefix string, replies ...Reply) *Executor {
	return e.OnFunc(prefix, func(_ string, call int) Reply {
		if call >= len(replies) {
			return replies[len(replies)-1]
		}
		return replies[call]
	})
}

func (e *Executor) Run(_ context.Context, hosts []string, command string, opts ...remote.RunOption) ([]remote.HostResult, error) {
	cfg := remote.ApplyOptions(opts...)

	e.mu.Lock()
	e.calls = append(e.calls, Call{Hosts: append([]string{}, hosts...), Command: command, AsRoot: cfg.AsRoot})

	var matched *handler
	for i := len(e.handlers) - 1; i >= 0; i-- {
		if strings.HasPrefix(command, e.handlers[i].prefix) {
			matched = e.handlers[i]
			break
		}
	}

	results := make([]remote.HostResult, 0, len(hosts))
	callNumber := 0
	if matched != nil {
		callNumber = matched.calls
		matched.calls++
	}
	e.mu.Unlock()

	for _, host := range hosts {
		reply := Reply{}
		if matched != nil {
			reply = matched.respond(host, callNumber)
		}
		results = append(results, remote.HostResult{Host: host, ExitCode: reply.ExitCode, Output: reply.Output})
	}

	return results, remote.CheckResults(command, results, cfg)
}

func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Call{}, e.calls...)
}

func (e *Executor) Commands() []string {
	commands := []string{}
	for _, call := range e.Calls() {
		commands = append(commands, call.Command)
	}
	return commands
}

// CommandsWithPrefix returns the executed commands starting with prefix.
func (e *Executor) CommandsWithPrefix(prefix string) []string {
	commands := []string{}
	for _, command := range e.Commands() {
		if strings.HasPrefix(command, prefix) {
			commands = append(commands, command)
		}
	}
	return commands
}
