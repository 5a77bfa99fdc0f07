package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/profile"
)

const DefaultPodRestartTimeout = 10 * time.Minute

type K8sPodsOpts struct {
	KubeconfigPath string
	Namespace      string
	LabelSelector  string
	RestartTimeout time.Duration
	PollInterval   time.Duration
}

func defaultKubeconfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".kube", "config")
	}
	return filepath.Join(home, ".kube", "config")
}

func (o *K8sPodsOpts) DefineFlags(fs *pflag.FlagSet) {
	profile.PopulateFromProfileLater(
		fs.StringVar, &o.KubeconfigPath, "kubeconfig",
		"",
		fmt.Sprintf("[can specify in profile] Path to kubeconfig file (default: %s)", defaultKubeconfigPath()))

	profile.PopulateFromProfileLater(
		fs.StringVar, &o.Namespace, "k8s-namespace",
		"",
		"[can specify in profile] Namespace of the pods to restart")

	fs.StringVar(&o.LabelSelector, "label-selector", "",
		"Only consider pods matching this selector when resolving pod FQDNs")

	fs.DurationVar(&o.RestartTimeout, "pod-restart-timeout", DefaultPodRestartTimeout,
		"How long to wait for a deleted pod to be running again")

	fs.DurationVar(&o.PollInterval, "poll-interval", DefaultPollInterval,
		"How often the pods are checked while waiting")
}

func (o *K8sPodsOpts) Validate() error {
	if o.KubeconfigPath == "" {
		o.KubeconfigPath = defaultKubeconfigPath()
		zap.S().Infof("--kubeconfig not specified, assuming default %s", o.KubeconfigPath)
	}

	if o.Namespace == "" {
		return fmt.Errorf("please specify a non-empty --k8s-namespace")
	}

	if o.RestartTimeout <= 0 || o.PollInterval <= 0 {
		return fmt.Errorf("--pod-restart-timeout and --poll-interval must be positive")
	}
	return nil
}
