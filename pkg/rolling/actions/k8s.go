package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/fleetops/fleetops/pkg/hostset"
)

func NewK8sClient(kubeconfigPath string) (kubernetes.Interface, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from %s: %w", kubeconfigPath, err)
	}
	return kubernetes.NewForConfig(config)
}

// K8sPods restarts pods by deleting them and waiting for their controller to
// bring a new pod with the same name up. Hosts are pod names or pod FQDNs
// (<hostname>.<subdomain>.<namespace>.svc.cluster.local).
type K8sPods struct {
	logger *zap.SugaredLogger
	client kubernetes.Interface
	clock  clockwork.Clock
	opts   *K8sPodsOpts

	mu            sync.Mutex
	fqdnToPodName map[string]string
	deletedUIDs   map[string]types.UID
}

func NewK8sPods(logger *zap.SugaredLogger, client kubernetes.Interface, clock clockwork.Clock, opts *K8sPodsOpts) *K8sPods {
	return &K8sPods{
		logger:        logger,
		client:        client,
		clock:         clock,
		opts:          opts,
		fqdnToPodName: make(map[string]string),
		deletedUIDs:   make(map[string]types.UID),
	}
}

func (r *K8sPods) Name() string {
	return "k8s-pods"
}

func (r *K8sPods) loadPodNames(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.fqdnToPodName) > 0 {
		return nil
	}

	pods, err := r.client.CoreV1().Pods(r.opts.Namespace).List(ctx, metav1.ListOptions{LabelSelector: r.opts.LabelSelector})
	if err != nil {
		return fmt.Errorf("failed to list pods in %s: %w", r.opts.Namespace, err)
	}

	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Spec.Hostname == "" || pod.Spec.Subdomain == "" {
			continue
		}
		fqdn := fmt.Sprintf("%s.%s.%s.svc.cluster.local", pod.Spec.Hostname, pod.Spec.Subdomain, pod.Namespace)
		r.fqdnToPodName[fqdn] = pod.Name
	}
	r.logger.Debugf("Pod names by FQDN: %+v", r.fqdnToPodName)
	return nil
}

func (r *K8sPods) podName(host string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if podName, present := r.fqdnToPodName[host]; present {
		return podName
	}
	return host
}

func (r *K8sPods) Act(ctx context.Context, batch hostset.Batch) error {
	if err := r.loadPodNames(ctx); err != nil {
		return err
	}

	for _, host := range batch.Hosts.Hosts() {
		podName := r.podName(host)
		r.logger.Infof("Restarting %s by deleting the %s pod", host, podName)

		pod, err := r.client.CoreV1().Pods(r.opts.Namespace).Get(ctx, podName, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("pod scheduled for deletion %s not found: %w", podName, err)
		}

		if err := r.client.CoreV1().Pods(r.opts.Namespace).Delete(ctx, podName, metav1.DeleteOptions{}); err != nil {
			return fmt.Errorf("failed to delete pod %s: %w", podName, err)
		}

		r.mu.Lock()
		r.deletedUIDs[podName] = pod.ObjectMeta.UID
		r.mu.Unlock()
	}
	return nil
}

func (r *K8sPods) podRunning(ctx context.Context, podName string, oldUID types.UID) (bool, error) {
	pod, err := r.client.CoreV1().Pods(r.opts.Namespace).Get(ctx, podName, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		r.logger.Debugf("Pod %s is not found yet", podName)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if pod.ObjectMeta.UID == oldUID {
		r.logger.Debugf("Old pod %s is still not deleted, old UID found", podName)
		return false, nil
	}
	return pod.Status.Phase == v1.PodRunning, nil
}

// Recover waits for a pod with a new UID in the Running phase for every host.
func (r *K8sPods) Recover(ctx context.Context, batch hostset.Batch, _ time.Time) error {
	return waitFor(ctx, r.clock, r.opts.RestartTimeout, r.opts.PollInterval, func() error {
		pending := []string{}
		for _, host := range batch.Hosts.Hosts() {
			podName := r.podName(host)

			r.mu.Lock()
			oldUID := r.deletedUIDs[podName]
			r.mu.Unlock()

			running, err := r.podRunning(ctx, podName, oldUID)
			if err != nil {
				return err
			}
			if !running {
				pending = append(pending, podName)
			}
		}

		if len(pending) > 0 {
			r.logger.Infof("Waiting for pods %s to be running", strings.Join(pending, ","))
			return &NotReadyError{Condition: "pod running", Hosts: pending}
		}
		return nil
	})
}
