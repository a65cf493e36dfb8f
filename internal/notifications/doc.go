// Package notifications delivers item lifecycle events (ready, failed) to
// operators.
//
// Two backends exist: ntfy, which receives a plain-text body with Title, Tags
// and Priority headers, and Telegram, which receives an HTML formatted
// sendMessage call. NewService fans out to every configured backend and
// returns a no-op implementation when none is configured. Delivery is
// fire-and-forget from the workflow's perspective: callers log the returned
// error and never change item state because of it.
package notifications
