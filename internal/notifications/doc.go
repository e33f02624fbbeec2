// Package notifications sends ntfy push notifications for batch run
// lifecycle events. Without a configured topic every call is a noop.
package notifications
