// Package leaselock provides leases on lock files. A lease expires unless
// its holder renews it, so a crashed run never blocks the next one for
// longer than the TTL.
package leaselock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

// Client hands out leases on lock files inside dir.
type Client struct {
	dir string
	now func() time.Time
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

type Lease struct {
	Key   string
	Token string

	Context context.Context

	client *Client
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// lockFile is the content of a lock file.
type lockFile struct {
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	Host      string    `json:"host"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func New(dir string) *Client {
	return &Client{dir: dir, now: time.Now}
}

// Path returns the lock file of key, a hidden file in the client directory.
func (c *Client) Path(key string) string {
	return filepath.Join(c.dir, "."+key+".lock")
}

func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()
	return fn(lease.Context)
}

func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}

	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/2, time.Millisecond)
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 250 * time.Millisecond
	}
	if opts.WaitJitter < 0 {
		opts.WaitJitter = 0
	}

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.TokenPrefix + tok

	for {
		ok, err := c.tryAcquire(key, token, opts.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	go l.renewLoop(opts)

	return l, nil
}

func (c *Client) tryAcquire(key, token string, ttl time.Duration) (bool, error) {
	path := c.Path(key)
	content, err := c.encode(token, ttl)
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		_, werr := f.Write(content)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(path)
			return false, errors.Join(werr, cerr)
		}
		return true, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}

	current, err := c.read(key)
	if errors.Is(err, os.ErrNotExist) {
		// Released between our create and read.
		return false, nil
	}
	if err != nil {
		// Unreadable, possibly still being written by its creator. It
		// counts as held until it is older than one TTL.
		info, serr := os.Stat(path)
		if serr != nil || c.now().Sub(info.ModTime()) < ttl {
			return false, nil
		}
	} else if current.Token != token && c.now().Before(current.ExpiresAt) {
		return false, nil
	}

	if err := c.write(key, content); err != nil {
		return false, err
	}
	// The read-back only catches a takeover that lands before it. If another
	// process replaces the file after this read, both believe they hold the
	// lease until the next renewal of the loser finds a foreign token and
	// cancels its context, at most RenewEvery later.
	current, err = c.read(key)
	if err != nil {
		return false, nil
	}
	return current.Token == token, nil
}

func (c *Client) encode(token string, ttl time.Duration) ([]byte, error) {
	host, _ := os.Hostname()
	return json.Marshal(lockFile{
		Token:     token,
		PID:       os.Getpid(),
		Host:      host,
		ExpiresAt: c.now().Add(ttl),
	})
}

func (c *Client) read(key string) (lockFile, error) {
	data, err := os.ReadFile(c.Path(key))
	if err != nil {
		return lockFile{}, err
	}
	var lf lockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return lockFile{}, err
	}
	return lf, nil
}

// write replaces the lock file atomically.
func (c *Client) write(key string, content []byte) error {
	tmp, err := os.CreateTemp(c.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.Path(key))
}

// Holder describes the current holder of key, for diagnostics.
func (c *Client) Holder(key string) (string, error) {
	lf, err := c.read(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pid %d on %s until %s", lf.PID, lf.Host, lf.ExpiresAt.Format(time.RFC3339)), nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})
	<-l.done

	current, err := l.client.read(l.Key)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Token != l.Token {
		return ErrLost
	}
	return os.Remove(l.client.Path(l.Key))
}

func (l *Lease) renewLoop(opts Options) {
	defer close(l.done)

	t := time.NewTicker(opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(opts.TTL); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renewOnce(ttl time.Duration) error {
	for attempt := range 3 {
		err := l.tryRenew(ttl)
		if err == nil || errors.Is(err, ErrLost) {
			return err
		}
		if attempt == 2 {
			return err
		}
		if err := sleepWithJitter(l.Context, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func (l *Lease) tryRenew(ttl time.Duration) error {
	current, err := l.client.read(l.Key)
	if errors.Is(err, os.ErrNotExist) {
		return ErrLost
	}
	if err != nil {
		return err
	}
	if current.Token != l.Token {
		return ErrLost
	}

	content, err := l.client.encode(l.Token, ttl)
	if err != nil {
		return err
	}
	return l.client.write(l.Key, content)
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
