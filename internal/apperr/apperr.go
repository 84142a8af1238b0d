// Package apperr turns failures into log records and user notifications in
// one consistent way.
package apperr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/remote"
)

const (
	MsgPermissionDenied = "Permission denied to access this data."
	MsgNoData           = "No data found."
	MsgUnexpected       = "An unexpected error occurred"
)

type Options struct {
	// Context names the operation in logs, e.g. "fetching profile".
	Context string
	// Quiet suppresses the user notification.
	Quiet bool
	// ReportNoRows logs and notifies not-found results, which are silent otherwise.
	ReportNoRows bool
}

// Handle classifies err, logs it and notifies n. It reports whether err was
// non-nil.
func Handle(ctx context.Context, n notify.Notifier, err error, opts Options) bool {
	if err == nil {
		return false
	}
	if n == nil {
		n = notify.Discard
	}
	log := slog.With("op", opts.Context)

	var re *remote.Error
	switch {
	case remote.IsNoRows(err):
		if !opts.ReportNoRows {
			return true
		}
		log.WarnContext(ctx, "no rows found", "error", err)
		notifyError(n, opts, MsgNoData)
	case remote.IsPolicyDenied(err):
		log.ErrorContext(ctx, "access denied by row-level security", "error", err)
		notifyError(n, opts, MsgPermissionDenied)
	case errors.As(err, &re):
		log.ErrorContext(ctx, "remote service error", "error", err, "code", re.Code)
		notifyError(n, opts, "Database error: "+re.Message)
	default:
		log.ErrorContext(ctx, "unexpected error", "error", err)
		msg := err.Error()
		if msg == "" {
			msg = MsgUnexpected
		}
		notifyError(n, opts, msg)
	}
	return true
}

func notifyError(n notify.Notifier, opts Options, msg string) {
	if !opts.Quiet {
		n.Error(msg)
	}
}
