package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/client"
	"github.com/urfave/cli"
)

func runTrigger(c *cli.Context) error {
	ctx, err := newContext(c)
	if err != nil {
		return err
	}

	args := ctx.Args()
	if len(args) < 1 || len(args) > 2 {
		return cli.NewExitError("usage: deployhook trigger TARGET [VERSION]", 2)
	}
	target, version := args.Get(0), args.Get(1)

	secret := ctx.String(FlagSecret)
	if secret == "" {
		return cli.NewExitError("--secret or DEPLOYHOOK_SECRET is required", 2)
	}

	if err := newClient(ctx).Trigger(ctx, target, secret, version); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Triggered %s for %s\n", deployhook.VersionString(version), target)
	return nil
}

func runStatus(c *cli.Context) error {
	ctx, err := newContext(c)
	if err != nil {
		return err
	}

	args := ctx.Args()
	if len(args) != 1 {
		return cli.NewExitError("usage: deployhook status TARGET", 2)
	}

	secret := ctx.String(FlagSecret)
	if secret == "" {
		return cli.NewExitError("--secret or DEPLOYHOOK_SECRET is required", 2)
	}

	status, err := newClient(ctx).Status(ctx, args.Get(0), secret)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

func newClient(c *Context) *client.Service {
	if path := c.String(FlagSocket); path != "" {
		return client.NewUnixService(path)
	}
	s := client.NewService(nil)
	s.URL = c.String(FlagURL)
	return s
}
