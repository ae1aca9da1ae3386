package config

import (
	"context"
	"errors"
	"sync"

	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/client"
	"github.com/katlaang/pestscan-sub000/cmd/scoutctl/internal/dirctx"
	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

type contextKey struct{}

// GlobalConfig holds what every scoutctl command shares: the target server,
// output mode, credentials and the working directory's farm binding. The root
// command's PersistentPreRun injects it into the command context.
type GlobalConfig struct {
	ServerURL      string
	NonInteractive bool
	OutputJSON     bool
	ClientProvider *client.Provider

	dirOnce sync.Once
	dir     *dirctx.DirectoryContext
	dirErr  error
}

// SDKClient returns an API client authenticated for ServerURL.
func (c *GlobalConfig) SDKClient() (*sdk.Client, error) {
	if c.ClientProvider == nil {
		return nil, errors.New("no client provider configured")
	}
	return c.ClientProvider.SDKClient()
}

// DirectoryContext returns the .scout binding of the working directory, or
// nil when there is none. The file is read once per invocation.
func (c *GlobalConfig) DirectoryContext() (*dirctx.DirectoryContext, error) {
	c.dirOnce.Do(func() {
		c.dir, c.dirErr = dirctx.ReadScoutContext()
	})
	return c.dir, c.dirErr
}

// Farm resolves the farm a command acts on. An explicit --farm value wins over
// the directory binding.
func (c *GlobalConfig) Farm(explicit string) (string, error) {
	dc, err := c.DirectoryContext()
	if err != nil {
		return "", err
	}
	return dirctx.ResolveFarmID(explicit, dc)
}

// InjectConfig adds config to the cobra command context.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves config from the cobra command context.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(contextKey{}).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics. Every command runs
// after the root PersistentPreRun, so a miss is a wiring bug.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("scoutctl: config missing from command context")
	}
	return cfg
}
