package sync

import (
	"context"
	"sync"
	"time"

	"pocketledger/internal/backup"
	"pocketledger/internal/logging"
)

const defaultMinLoadInterval = 30 * time.Second

// MemberLoader pulls the latest shared backup onto a member device. Loads are
// rate limited and serialized, so a navigation-happy child cannot hammer the
// remote folder.
type MemberLoader struct {
	service *Service
	codec   *backup.Codec
	logger  logging.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastLoadAt  time.Time
	minInterval time.Duration
}

// NewMemberLoader returns a loader with the default 30s minimum interval.
func NewMemberLoader(service *Service, codec *backup.Codec, logger logging.Logger) *MemberLoader {
	return &MemberLoader{
		service:     service,
		codec:       codec,
		logger:      logger,
		now:         time.Now,
		minInterval: defaultMinLoadInterval,
	}
}

// Load pulls and imports the latest backup if the minimum interval since the
// last load has passed. Returns whether a load ran. Concurrent calls
// serialize behind the same mutex, so the remote is hit once.
func (l *MemberLoader) Load(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := l.now().Sub(l.lastLoadAt); !l.lastLoadAt.IsZero() && elapsed < l.minInterval {
		l.logger.Debug(ctx, "skipping member load", "remaining", (l.minInterval - elapsed).String())
		return false, nil
	}
	if err := l.performLoad(ctx); err != nil {
		return false, err
	}
	l.lastLoadAt = l.now()
	return true, nil
}

// ForceLoad pulls and imports regardless of the interval.
func (l *MemberLoader) ForceLoad(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.performLoad(ctx); err != nil {
		return err
	}
	l.lastLoadAt = l.now()
	return nil
}

func (l *MemberLoader) performLoad(ctx context.Context) error {
	payload, err := l.service.DownloadLatest(ctx)
	if err != nil {
		return err
	}
	if payload == nil {
		l.logger.Info(ctx, "no backup found for member load")
		return nil
	}
	if err := l.codec.Import(ctx, payload, backup.ImportReplace); err != nil {
		return err
	}
	l.logger.Info(ctx, "member data loaded")
	return nil
}

// SetMinInterval changes the rate limit.
func (l *MemberLoader) SetMinInterval(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minInterval = d
}

// TimeSinceLastLoad returns how long ago the last load finished, and false
// before the first one.
func (l *MemberLoader) TimeSinceLastLoad() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastLoadAt.IsZero() {
		return 0, false
	}
	return l.now().Sub(l.lastLoadAt), true
}

// Reset forgets the last load time.
func (l *MemberLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastLoadAt = time.Time{}
}
