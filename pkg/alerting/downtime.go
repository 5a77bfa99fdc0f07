package alerting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/collections"
)

func DowntimeHosts(ctx context.Context, s Silencer, hosts []string, duration time.Duration, comment string) (SilenceID, error) {
	return s.AddSilence(ctx, []string{HostsMatcher(hosts)}, duration, comment)
}

// Downtime silences alerts for hosts while fn runs. The silence is expired
// on every return path, including a failing or panicking fn.
func Downtime(
	ctx context.Context,
	s Silencer,
	hosts []string,
	duration time.Duration,
	comment string,
	fn func() error,
) (err error) {
	id, err := DowntimeHosts(ctx, s, hosts, duration, comment)
	if err != nil {
		return fmt.Errorf("failed to downtime hosts: %w", err)
	}

	defer func() {
		releaseErr := s.ExpireSilences(context.WithoutCancel(ctx), []SilenceID{id})
		if releaseErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to remove downtime %s: %w", id, releaseErr))
		}
	}()

	return fn()
}

// ExpireMatching expires every silence matching the matchers. Finding none
// is not an error.
func ExpireMatching(ctx context.Context, logger *zap.SugaredLogger, s Silencer, matchers []string) error {
	silences, err := s.QuerySilences(ctx, matchers)
	if err != nil {
		return err
	}

	if len(silences) == 0 {
		logger.Infof("No silences matching %v found", matchers)
		return nil
	}

	return s.ExpireSilences(ctx, collections.Convert(silences, func(silence Silence) SilenceID { return silence.ID }))
}

func UptimeHosts(ctx context.Context, logger *zap.SugaredLogger, s Silencer, hosts []string) error {
	return ExpireMatching(ctx, logger, s, []string{HostsMatcher(hosts)})
}
