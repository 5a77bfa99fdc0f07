package actions_test

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/fleetops/fleetops/internal/testutil"
	"github.com/fleetops/fleetops/pkg/rolling/actions"
)

const namespace = "storage"

func storagePod(name, uid string, phase v1.PodPhase) *v1.Pod {
	return &v1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			UID:       types.UID(uid),
			Labels:    map[string]string{"app": "storage"},
		},
		Spec: v1.PodSpec{
			Hostname:  name,
			Subdomain: "storage-interconnect",
		},
		Status: v1.PodStatus{Phase: phase},
	}
}

var _ = Describe("Test K8sPods", func() {
	var (
		clock  clockwork.FakeClock
		client *fake.Clientset
		pods   *actions.K8sPods
	)

	BeforeEach(func() {
		clock = clockwork.NewFakeClockAt(start)
		client = fake.NewSimpleClientset(
			storagePod("storage-0", "uid-0", v1.PodRunning),
			storagePod("storage-1", "uid-1", v1.PodRunning),
		)
		pods = actions.NewK8sPods(zap.S(), client, clock, &actions.K8sPodsOpts{
			Namespace:      namespace,
			LabelSelector:  "app=storage",
			RestartTimeout: time.Minute,
			PollInterval:   10 * time.Second,
		})
	})

	It("deletes pods addressed by their FQDN and waits for the replacement", func() {
		batch := batchOf("storage-0.storage-interconnect.storage.svc.cluster.local")
		Expect(pods.Act(context.Background(), batch)).To(Succeed())

		_, err := client.CoreV1().Pods(namespace).Get(context.Background(), "storage-0", metav1.GetOptions{})
		Expect(err).To(HaveOccurred())

		_, err = client.CoreV1().Pods(namespace).Create(
			context.Background(), storagePod("storage-0", "uid-0-new", v1.PodRunning), metav1.CreateOptions{})
		Expect(err).NotTo(HaveOccurred())

		Expect(pods.Recover(context.Background(), batch, start)).To(Succeed())

		_, err = client.CoreV1().Pods(namespace).Get(context.Background(), "storage-1", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps waiting while the replacement is not running", func() {
		batch := batchOf("storage-1")
		Expect(pods.Act(context.Background(), batch)).To(Succeed())

		_, err := client.CoreV1().Pods(namespace).Create(
			context.Background(), storagePod("storage-1", "uid-1-new", v1.PodPending), metav1.CreateOptions{})
		Expect(err).NotTo(HaveOccurred())

		err = testutil.RunAdvancing(clock, 10*time.Second, func() error {
			return pods.Recover(context.Background(), batch, start)
		})

		var notReady *actions.NotReadyError
		Expect(errors.As(err, &notReady)).To(BeTrue())
		Expect(notReady.Hosts).To(Equal([]string{"storage-1"}))
	})

	It("fails when the pod does not exist", func() {
		err := pods.Act(context.Background(), batchOf("storage-7"))
		Expect(err).To(MatchError(ContainSubstring("storage-7 not found")))
	})
})
