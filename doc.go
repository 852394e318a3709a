// Package deployhook provides the core API for receiving deployment
// notifications and running deploy actions. A notification names a target,
// presents the target's secret and carries a version. Notifications are
// coalesced per target, so a burst of notifications that arrives while a
// target is deploying results in a single follow up deployment of the most
// recent version.
//
// Consumers of this API are usually in-process transport layers, like the
// webhook and GitHub handlers, which can be found under the server package.
package deployhook
