package marketdata

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RetryOptions controls how often a failed snapshot read is retried.
type RetryOptions struct {
	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryOptions tolerates a fetcher that is rewriting the file.
var DefaultRetryOptions = RetryOptions{
	MaxRetries: 3,
	MinBackoff: 100 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
}

// Provider loads the snapshot file and keeps the latest valid Market.
type Provider struct {
	path     string
	l        *zap.Logger
	pipeline failsafe.Executor[*Market]
	now      func() time.Time

	mu      sync.RWMutex
	current *Market
}

// NewProvider creates a provider reading the snapshot at path.
func NewProvider(l *zap.Logger, path string, opts RetryOptions) *Provider {
	if l == nil {
		l = zap.NewNop()
	}
	if opts.MinBackoff <= 0 || opts.MaxBackoff <= opts.MinBackoff {
		opts.MinBackoff, opts.MaxBackoff = DefaultRetryOptions.MinBackoff, DefaultRetryOptions.MaxBackoff
	}
	retryPolicy := retrypolicy.NewBuilder[*Market]().
		HandleIf(func(_ *Market, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		WithBackoff(opts.MinBackoff, opts.MaxBackoff).
		WithMaxRetries(opts.MaxRetries).
		Build()

	return &Provider{
		path:     path,
		l:        l,
		pipeline: failsafe.With[*Market](retryPolicy),
		now:      time.Now,
	}
}

// Load reads the snapshot and makes it current. On failure the previous
// market stays current.
func (p *Provider) Load(ctx context.Context) (*Market, error) {
	m, err := p.pipeline.WithContext(ctx).Get(func() (*Market, error) {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read market snapshot %s", p.path)
		}
		return Parse(data)
	})
	if err != nil {
		return nil, err
	}

	m.LoadedAt = p.now()
	p.mu.Lock()
	p.current = m
	p.mu.Unlock()

	p.l.Debug("market snapshot loaded",
		zap.String("protocol", m.Protocol.String()),
		zap.String("base", m.Base.String()),
		zap.Int("assets", len(m.Assets)),
	)
	return m, nil
}

// Current returns the latest valid market, if any.
func (p *Provider) Current() (*Market, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current != nil
}

// Watch reloads the snapshot every interval until ctx is done.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("reload interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Load(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.l.Warn("keeping previous market snapshot", zap.String("path", p.path), zap.Error(err))
			}
		}
	}
}
