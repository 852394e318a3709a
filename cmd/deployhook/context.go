package main

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/inconshreveable/log15"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/stats"
	"github.com/urfave/cli"
)

// Context provides lazy loaded, memoized instances of services the CLI
// consumes. It also implements the context.Context interface with an embedded
// logger and stats, so it can be injected as a top level context object.
type Context struct {
	context.Context

	// cli isn't embedded, since its Value method would conflict with
	// context.Context.
	cli *cli.Context

	logger log15.Logger
	stats  stats.Stats

	// AWS stuff
	awsConfigProvider client.ConfigProvider
}

// newContext builds a new base Context object.
func newContext(c *cli.Context) (ctx *Context, err error) {
	ctx = &Context{
		Context: context.Background(),
		cli:     c,
	}

	ctx.logger, err = newLogger(ctx)
	if err != nil {
		return
	}

	ctx.stats, err = newStats(ctx)
	if err != nil {
		return
	}

	ctx.Context = logger.WithLogger(ctx.Context, ctx.logger)
	ctx.Context = stats.WithStats(ctx.Context, ctx.stats)

	return
}

func (c *Context) String(name string) string          { return c.cli.String(name) }
func (c *Context) StringSlice(name string) []string   { return c.cli.StringSlice(name) }
func (c *Context) Bool(name string) bool              { return c.cli.Bool(name) }
func (c *Context) Duration(name string) time.Duration { return c.cli.Duration(name) }
func (c *Context) Args() cli.Args                     { return c.cli.Args() }
func (c *Context) Logger() log15.Logger               { return c.logger }
func (c *Context) Stats() stats.Stats                 { return c.stats }

// ClientConfig implements the client.ConfigProvider interface. This will return
// a mostly standard client.Config, but also includes middleware that will
// generate metrics for retried requests, and enables debug mode if
// `FlagAWSDebug` is set.
func (c *Context) ClientConfig(serviceName string, cfgs ...*aws.Config) client.Config {
	if c.awsConfigProvider == nil {
		c.awsConfigProvider = newConfigProvider(c)
	}

	return c.awsConfigProvider.ClientConfig(serviceName, cfgs...)
}
