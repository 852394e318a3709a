package main

import (
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/config"
	"github.com/remind101/deployhook/events/sns"
	"github.com/remind101/deployhook/events/stdout"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/internal/realip"
	"github.com/remind101/deployhook/stats"
)

// Targets =============================

func newTargets(c *Context) (*deployhook.Targets, error) {
	cfg, err := config.Load(c.String(FlagConfig))
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// DeployHook ==========================

func newDeployHook(c *Context, targets *deployhook.Targets) (*deployhook.DeployHook, error) {
	streams, err := newEventStreams(c)
	if err != nil {
		return nil, err
	}

	return deployhook.New(c, targets, deployhook.Options{
		Deployer:    deployhook.TraceDeploy(&deployhook.CommandDeployer{}),
		EventStream: deployhook.AsyncEvents(c, streams),
		Stats:       c.Stats(),
	}), nil
}

// EventStream =========================

func newEventStreams(c *Context) (deployhook.MultiEventStream, error) {
	var streams deployhook.MultiEventStream
	switch c.String(FlagEventsBackend) {
	case "sns":
		e, err := newSNSEventStream(c)
		if err != nil {
			return streams, err
		}
		streams = append(streams, e)
	case "stdout":
		e, err := newStdoutEventStream(c)
		if err != nil {
			return streams, err
		}
		streams = append(streams, e)
	case "":
		streams = append(streams, deployhook.NullEventStream)
	default:
		return streams, fmt.Errorf("unknown events backend: %v", c.String(FlagEventsBackend))
	}
	return streams, nil
}

func newSNSEventStream(c *Context) (deployhook.EventStream, error) {
	topic := c.String(FlagSNSTopic)
	if topic == "" {
		return nil, fmt.Errorf("--%s is required with the sns events backend", FlagSNSTopic)
	}

	e := sns.NewEventStream(c)
	e.TopicARN = topic

	logger.Info(c, "events.backend", "backend", "sns", "topic", e.TopicARN)
	return e, nil
}

func newStdoutEventStream(c *Context) (deployhook.EventStream, error) {
	e := stdout.NewEventStream()
	logger.Info(c, "events.backend", "backend", "stdout")
	return e, nil
}

// Resolver ============================

func newResolver(c *Context) (*realip.Resolver, error) {
	return realip.NewResolver(c.Bool(FlagTrustProxyHeaders), c.StringSlice(FlagTrustedProxies)...)
}

// Logger ==============================

func newLogger(c *Context) (log15.Logger, error) {
	lvl := c.String(FlagLogLevel)
	l, err := logger.New(os.Stdout, lvl)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", FlagLogLevel)
	}
	return l, nil
}

// Stats =======================

func newStats(c *Context) (stats.Stats, error) {
	u := c.String(FlagStats)
	if u == "" {
		return stats.Null, nil
	}

	uri, err := url.Parse(u)
	if err != nil {
		return nil, err
	}

	switch uri.Scheme {
	case "dogstatsd":
		return newDogstatsdStats(uri.Host)
	default:
		return nil, fmt.Errorf("unsupported stats backend: %s", uri.Scheme)
	}
}

func newDogstatsdStats(addr string) (stats.Stats, error) {
	return stats.NewDogstatsd(addr, "deployhook.", fmt.Sprintf("deployhook_version:%s", deployhook.Version))
}

// AWS =========================

func newConfigProvider(c *Context) client.ConfigProvider {
	stats := c.Stats()
	config := aws.NewConfig()

	if c.Bool(FlagAWSDebug) {
		config.WithLogLevel(aws.LogDebug)
	}

	s, err := session.NewSession(config)
	if err != nil {
		// Session creation only fails for invalid shared config, which
		// can't be recovered from.
		log.Fatal(err)
	}

	requestTags := func(r *request.Request) []string {
		return []string{
			fmt.Sprintf("service_name:%s", r.ClientInfo.ServiceName),
			fmt.Sprintf("operation:%s", r.Operation.Name),
		}
	}

	s.Handlers.Send.PushBackNamed(request.NamedHandler{
		Name: "deployhook.RequestMetrics",
		Fn: func(r *request.Request) {
			stats.Inc("aws.request", 1, 1.0, requestTags(r))
		},
	})
	s.Handlers.Retry.PushFrontNamed(request.NamedHandler{
		Name: "deployhook.ErrorMetrics",
		Fn: func(r *request.Request) {
			if err, ok := r.Error.(awserr.Error); ok {
				tags := append(requestTags(r), fmt.Sprintf("error:%s", err.Code()))
				stats.Inc("aws.request.error", 1, 1.0, tags)
			}
		},
	})

	return s
}
