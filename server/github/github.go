// Package github provides an httpx.Handler implementation that triggers
// deployments from GitHub push and deployment webhooks.
//
// A push deploys the pushed commit. If the target has a Ref, pushes to any
// other ref are ignored, otherwise every push deploys. A deployment event
// deploys only when its environment matches the target name.
package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/pkg/httpx"
)

// SignatureHeader is the header GitHub uses for the HMAC-SHA256 signature of
// the request body.
const SignatureHeader = "X-Hub-Signature-256"

// EventHeader is the header GitHub uses for the event name.
const EventHeader = "X-GitHub-Event"

// Notifier is the part of deployhook.DeployHook this handler uses.
type Notifier interface {
	Lookup(target string) (*deployhook.Target, bool)
	Deliver(context.Context, deployhook.Notification) error
}

// PushEvent is the subset of the GitHub push event payload that's used.
type PushEvent struct {
	Ref     string `json:"ref"`
	After   string `json:"after"`
	Deleted bool   `json:"deleted"`
}

// DeploymentEvent is the subset of the GitHub deployment event payload that's
// used.
type DeploymentEvent struct {
	Deployment struct {
		ID          int64  `json:"id"`
		Sha         string `json:"sha"`
		Ref         string `json:"ref"`
		Environment string `json:"environment"`
		Creator     struct {
			Login string `json:"login"`
		} `json:"creator"`
	} `json:"deployment"`
}

// Handler handles GitHub webhooks sent to /github/{target}. Payloads are
// signed with the target's secret.
type Handler struct {
	Notifier
}

// New returns a new Handler.
func New(n Notifier) *Handler {
	return &Handler{Notifier: n}
}

func (h *Handler) ServeHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := httpx.Vars(r)["target"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return deployhook.ErrMalformedRequest
	}

	target, err := h.authorize(name, r.Header.Get(SignatureHeader), body)
	if err != nil {
		logger.Warn(ctx, "authenticate.rejected", "target", name, "source", "github")
		return err
	}
	logger.Info(ctx, "authenticate.accepted", "target", name, "source", "github")

	event := r.Header.Get(EventHeader)
	ctx = logger.With(ctx, "github_event", event, "github_delivery", r.Header.Get("X-GitHub-Delivery"))

	switch event {
	case "ping":
		io.WriteString(w, "Ok\n")
		return nil
	case "push":
		var p PushEvent
		if err := json.Unmarshal(body, &p); err != nil {
			return deployhook.ErrMalformedRequest
		}
		if p.Deleted {
			return ignore(ctx, w, "ref deleted")
		}
		if target.Ref != "" && p.Ref != target.Ref {
			return ignore(ctx, w, "ref "+p.Ref)
		}
		return h.deliver(ctx, w, name, p.After)
	case "deployment":
		var p DeploymentEvent
		if err := json.Unmarshal(body, &p); err != nil {
			return deployhook.ErrMalformedRequest
		}
		if p.Deployment.Environment != name {
			return ignore(ctx, w, "environment "+p.Deployment.Environment)
		}
		logger.Info(ctx, "github.deployment",
			"github_deployment_id", p.Deployment.ID,
			"ref", p.Deployment.Ref,
			"creator", p.Deployment.Creator.Login,
		)
		return h.deliver(ctx, w, name, p.Deployment.Sha)
	default:
		return ignore(ctx, w, "unsupported event")
	}
}

func (h *Handler) deliver(ctx context.Context, w http.ResponseWriter, target, version string) error {
	if err := deployhook.ValidateVersion(version); err != nil {
		return err
	}

	if err := h.Deliver(ctx, deployhook.Notification{
		Target:  target,
		Version: version,
	}); err != nil {
		return err
	}

	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, "Ok\n")
	return nil
}

// authorize verifies the signature of body with the target's secret. Unknown
// targets are checked against a throwaway key so they take as long as a wrong
// signature.
func (h *Handler) authorize(name, signature string, body []byte) (*deployhook.Target, error) {
	key := []byte("deployhook: unknown target")
	t, ok := h.Lookup(name)
	if ok {
		key = []byte(t.Secret)
	}

	valid := Verify(key, signature, body)
	if !ok || !valid {
		return nil, deployhook.ErrUnauthorized
	}
	return t, nil
}

// Signature returns the X-Hub-Signature-256 value for body.
func Signature(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify returns true if signature is a valid X-Hub-Signature-256 value for
// body.
func Verify(key []byte, signature string, body []byte) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	sig, err := hex.DecodeString(signature[len(prefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

func ignore(ctx context.Context, w http.ResponseWriter, reason string) error {
	logger.Info(ctx, "github.ignored", "reason", reason)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
