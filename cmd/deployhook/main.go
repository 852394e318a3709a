package main

import (
	"fmt"
	"os"
	"time"

	"github.com/remind101/deployhook"
	"github.com/urfave/cli"
)

const (
	FlagConfig          = "config"
	FlagAddr            = "addr"
	FlagSocket          = "socket"
	FlagSystemd         = "systemd"
	FlagShutdownTimeout = "shutdown-timeout"
	FlagDebug           = "debug"
	FlagLogLevel        = "log.level"

	FlagStats = "stats"

	FlagTrustProxyHeaders = "proxy.trust-headers"
	FlagTrustedProxies    = "proxy.trusted"

	FlagEventsBackend = "events.backend"
	FlagSNSTopic      = "sns.topic"
	FlagAWSDebug      = "aws.debug"

	FlagURL    = "url"
	FlagSecret = "secret"
)

// Commands are the subcommands that are available.
var Commands = []cli.Command{
	{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Accept webhooks and run deploy actions",
		Flags: append([]cli.Flag{
			cli.StringFlag{
				Name:   FlagAddr,
				Value:  "",
				Usage:  "TCP address to listen on. Defaults to :8080 when no other listener is configured.",
				EnvVar: "DEPLOYHOOK_ADDR",
			},
			cli.StringFlag{
				Name:   FlagSocket,
				Value:  "",
				Usage:  "Path of a Unix socket to listen on. A stale socket file is replaced.",
				EnvVar: "DEPLOYHOOK_SOCKET",
			},
			cli.BoolFlag{
				Name:   FlagSystemd,
				Usage:  "Serve on the sockets passed in by systemd socket activation",
				EnvVar: "DEPLOYHOOK_SYSTEMD",
			},
			cli.DurationFlag{
				Name:   FlagShutdownTimeout,
				Value:  30 * time.Second,
				Usage:  "How long to wait for running deploy actions when shutting down",
				EnvVar: "DEPLOYHOOK_SHUTDOWN_TIMEOUT",
			},
			cli.BoolFlag{
				Name:   FlagDebug,
				Usage:  "Mount the request traces at /debug/requests and /debug/events",
				EnvVar: "DEPLOYHOOK_DEBUG",
			},
			cli.BoolFlag{
				Name:   FlagTrustProxyHeaders,
				Usage:  "Log the client address from X-Forwarded-For and X-Real-Ip when the request comes from a trusted proxy",
				EnvVar: "DEPLOYHOOK_PROXY_TRUST_HEADERS",
			},
			cli.StringSliceFlag{
				Name:   FlagTrustedProxies,
				Usage:  "CIDRs of trusted proxies. Defaults to loopback and private networks.",
				EnvVar: "DEPLOYHOOK_PROXY_TRUSTED",
			},
			cli.StringFlag{
				Name:   FlagEventsBackend,
				Value:  "",
				Usage:  "The backend to publish run events to. Current options are `stdout` and `sns`.",
				EnvVar: "DEPLOYHOOK_EVENTS_BACKEND",
			},
			cli.StringFlag{
				Name:   FlagSNSTopic,
				Value:  "",
				Usage:  "When using the SNS events backend, this is the SNS topic that gets published to.",
				EnvVar: "DEPLOYHOOK_SNS_TOPIC",
			},
			cli.BoolFlag{
				Name:   FlagAWSDebug,
				Usage:  "Enable verbose debug output for AWS integration.",
				EnvVar: "DEPLOYHOOK_AWS_DEBUG",
			},
		}, append(ConfigFlags, CommonFlags...)...),
		Action: runServer,
	},
	{
		Name:      "trigger",
		Usage:     "Notify deployhook that a version should be deployed",
		ArgsUsage: "TARGET [VERSION]",
		Flags:     append(ClientFlags, CommonFlags...),
		Action:    runTrigger,
	},
	{
		Name:      "status",
		Usage:     "Show the deployment status of a target",
		ArgsUsage: "TARGET",
		Flags:     append(ClientFlags, CommonFlags...),
		Action:    runStatus,
	},
	{
		Name:   "check",
		Usage:  "Validate the targets file",
		Flags:  append(ConfigFlags, CommonFlags...),
		Action: runCheck,
	},
}

var CommonFlags = []cli.Flag{
	cli.StringFlag{
		Name:   FlagLogLevel,
		Value:  "info",
		Usage:  "Specify the log level. You can use this to enable debug logs by specifying `debug`.",
		EnvVar: "DEPLOYHOOK_LOG_LEVEL",
	},
	cli.StringFlag{
		Name:   FlagStats,
		Value:  "",
		Usage:  "If provided, defines where metrics will be sent (e.g. dogstatsd://localhost:8125).",
		EnvVar: "DEPLOYHOOK_STATS",
	},
}

var ConfigFlags = []cli.Flag{
	cli.StringFlag{
		Name:   FlagConfig,
		Value:  "/etc/deployhook.yml",
		Usage:  "Path to the targets file",
		EnvVar: "DEPLOYHOOK_CONFIG",
	},
}

var ClientFlags = []cli.Flag{
	cli.StringFlag{
		Name:   FlagURL,
		Value:  "http://localhost:8080",
		Usage:  "The URL of the deployhook server",
		EnvVar: "DEPLOYHOOK_URL",
	},
	cli.StringFlag{
		Name:   FlagSocket,
		Value:  "",
		Usage:  "Connect to the deployhook server over this Unix socket instead of --url",
		EnvVar: "DEPLOYHOOK_SOCKET",
	},
	cli.StringFlag{
		Name:   FlagSecret,
		Value:  "",
		Usage:  "The target's secret",
		EnvVar: "DEPLOYHOOK_SECRET",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "deployhook"
	app.Usage = "Run deploy actions when webhooks arrive"
	app.Version = deployhook.Version
	app.Commands = Commands

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
