// Package lock keeps two runs from acting on the same fleet at the same time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultTTL         = 60 * time.Second
	DefaultDialTimeout = 5 * time.Second
	KeyPrefix          = "/fleetops/locks/"
)

var ErrNotAcquired = errors.New("lock is held by another run")

type Manager interface {
	// Acquire fails with ErrNotAcquired when somebody else holds the lock.
	Acquire(ctx context.Context) (Lease, error)
	Close() error
}

type Lease interface {
	Release(ctx context.Context) error
}

type NoopManager struct{}

func (NoopManager) Acquire(ctx context.Context) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return noopLease{}, nil
}

func (NoopManager) Close() error {
	return nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) error {
	return nil
}

type EtcdOptions struct {
	Endpoints   []string
	Name        string
	Holder      string
	TTL         time.Duration
	DialTimeout time.Duration
}

// EtcdManager holds a concurrency.Mutex on a session lease. If the process
// dies the lease expires after TTL and the lock goes with it.
type EtcdManager struct {
	logger *zap.SugaredLogger
	client *clientv3.Client
	key    string
	holder string
	ttl    int
}

func Key(name string) string {
	return KeyPrefix + strings.Trim(name, "/")
}

func NewEtcdManager(logger *zap.SugaredLogger, opts EtcdOptions) (*EtcdManager, error) {
	if len(opts.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd lock needs at least one endpoint")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, fmt.Errorf("etcd lock needs a non-empty name")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:        opts.Endpoints,
		DialTimeout:      opts.DialTimeout,
		RejectOldCluster: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return newEtcdManager(logger, client, opts), nil
}

func newEtcdManager(logger *zap.SugaredLogger, client *clientv3.Client, opts EtcdOptions) *EtcdManager {
	ttl := int(opts.TTL.Round(time.Second).Seconds())
	return &EtcdManager{
		logger: logger,
		client: client,
		key:    Key(opts.Name),
		holder: opts.Holder,
		ttl:    max(ttl, 1),
	}
}

func (m *EtcdManager) Acquire(ctx context.Context) (Lease, error) {
	session, err := concurrency.NewSession(m.client, concurrency.WithTTL(m.ttl), concurrency.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd session: %w", err)
	}

	mutex := concurrency.NewMutex(session, m.key)
	if err := mutex.TryLock(clientv3.WithRequireLeader(ctx)); err != nil {
		closeErr := session.Close()
		if errors.Is(err, concurrency.ErrLocked) {
			return nil, multierr.Append(fmt.Errorf("%w: %s", ErrNotAcquired, m.key), closeErr)
		}
		return nil, multierr.Append(fmt.Errorf("failed to lock %s: %w", m.key, err), closeErr)
	}

	// the holder is informational, an operator reads it with etcdctl
	if m.holder != "" {
		_, err := m.client.Put(ctx, mutex.Key()+"/holder", m.holder, clientv3.WithLease(session.Lease()))
		if err != nil {
			m.logger.Warnf("Failed to annotate lock %s: %v", m.key, err)
		}
	}

	m.logger.Infof("Acquired lock %s", m.key)
	return &etcdLease{logger: m.logger, session: session, mutex: mutex}, nil
}

func (m *EtcdManager) Close() error {
	return m.client.Close()
}

type etcdLease struct {
	logger  *zap.SugaredLogger
	session *concurrency.Session
	mutex   *concurrency.Mutex
}

func (l *etcdLease) Release(ctx context.Context) error {
	var err error
	if unlockErr := l.mutex.Unlock(ctx); unlockErr != nil && !errors.Is(unlockErr, concurrency.ErrLockReleased) {
		err = fmt.Errorf("failed to unlock %s: %w", l.mutex.Key(), unlockErr)
	}
	err = multierr.Append(err, l.session.Close())

	if err == nil {
		l.logger.Infof("Released lock %s", l.mutex.Key())
	}
	return err
}

// NewManager picks the etcd lock when endpoints are configured.
func NewManager(logger *zap.SugaredLogger, endpoints []string, name, holder string) (Manager, error) {
	if len(endpoints) == 0 {
		return NoopManager{}, nil
	}
	return NewEtcdManager(logger, EtcdOptions{Endpoints: endpoints, Name: name, Holder: holder})
}

// WithLock runs fn while holding the lock.
func WithLock(ctx context.Context, manager Manager, fn func() error) (err error) {
	lease, err := manager.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, lease.Release(context.WithoutCancel(ctx)))
	}()
	return fn()
}
