package options

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const TaskIDPrefix = "fleetops-"

type TaskIDOpts struct {
	Reason string
	TaskID string
}

func (o *TaskIDOpts) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Reason, "reason", "",
		"Why the operation is performed. Shows up in the silences and in the log")

	fs.StringVar(&o.TaskID, "task-id", "",
		fmt.Sprintf("Ticket or task the operation belongs to (default: %s<random uuid>)", TaskIDPrefix))
}

func (o *TaskIDOpts) Validate() error {
	if strings.TrimSpace(o.Reason) == "" {
		return fmt.Errorf("please specify a non-empty --reason")
	}
	if o.TaskID == "" {
		o.TaskID = TaskIDPrefix + uuid.New().String()
	}
	return nil
}
