package submitter

import (
	"context"
	"log/slog"

	"autotime/folders"
	"autotime/gitlog"
	"autotime/match"
	"autotime/notes"
	"autotime/productive"
	"autotime/sessionlog"
)

// Decision is the user's answer for one booking.
type Decision int

const (
	DecisionSubmit Decision = iota
	DecisionSkip
	DecisionCancel
)

// Prompter asks the user whether to submit a booking's entry. It owns the
// whole interaction, including note editing, and returns the final decision
// together with the note to submit.
type Prompter interface {
	Confirm(label string, timeMinutes int, note string) (Decision, string, error)
}

// NoteFormatter rewrites a composed note; implementations must fall back to
// the raw note rather than fail.
type NoteFormatter interface {
	FormatNote(ctx context.Context, note, projectName string) string
}

// Outcome accumulates per-booking results across the run.
type Outcome struct {
	Bookings        int
	Created         int
	Skipped         int
	Failed          int
	WithoutFolders  int
	WithoutActivity int
	Cancelled       bool
}

// Runner drives the per-booking pipeline: match activity, compose the note,
// optionally confirm, then submit with duplicate detection. Bookings are
// processed strictly one after another.
type Runner struct {
	Client    productive.Client
	Formatter NoteFormatter
	Prompter  Prompter // nil disables confirmation
	Logger    *slog.Logger
	PersonID  string
	Date      string
}

func (r *Runner) Run(
	ctx context.Context,
	bookings []productive.ResolvedBooking,
	serviceFolders folders.ServiceFolderMap,
	gitActivities []gitlog.RepoActivity,
	sessionActivities []sessionlog.SessionActivity,
) Outcome {
	outcome := Outcome{Bookings: len(bookings)}

	for _, booking := range bookings {
		mapped := serviceFolders.Folders(booking.ServiceID)
		if len(mapped) == 0 {
			outcome.WithoutFolders++
			r.Logger.Warn("no marker folder found for booking",
				"service_id", booking.ServiceID, "service", booking.ServiceName)
		}

		matches := match.ForBooking(booking, mapped, gitActivities, sessionActivities)
		if len(matches) == 0 {
			outcome.WithoutActivity++
		}

		note := notes.Compose(matches)
		if r.Formatter != nil {
			note = r.Formatter.FormatNote(ctx, note, booking.ProjectName)
		}

		if r.Prompter != nil {
			decision, edited, err := r.Prompter.Confirm(
				booking.ProjectName+" / "+booking.ServiceName,
				booking.TimeMinutes,
				note,
			)
			if err != nil {
				r.Logger.Error("confirmation failed, skipping booking", "booking", booking.BookingID, "error", err)
				outcome.Skipped++
				continue
			}
			switch decision {
			case DecisionSkip:
				outcome.Skipped++
				r.Logger.Info("skipping booking by user choice",
					"project", booking.ProjectName, "service", booking.ServiceName)
				continue
			case DecisionCancel:
				outcome.Cancelled = true
				r.Logger.Warn("submission cancelled by user")
				return outcome
			}
			note = edited
		}

		r.submit(ctx, booking, note, &outcome)
	}

	return outcome
}

// submit re-checks existing entries right before creating; an entry already
// referencing the service id means a previous run got here first.
func (r *Runner) submit(ctx context.Context, booking productive.ResolvedBooking, note string, outcome *Outcome) {
	existing, err := r.Client.ListTimeEntries(ctx, r.PersonID, r.Date)
	if err != nil {
		outcome.Failed++
		r.Logger.Error("failed to list existing time entries",
			"booking", booking.BookingID, "error", err)
		return
	}

	if entry, ok := productive.FindExistingEntry(existing, booking.ServiceID); ok {
		outcome.Skipped++
		r.Logger.Info("entry already exists, skipping",
			"project", booking.ProjectName, "service", booking.ServiceName, "entry", entry.ID)
		return
	}

	created, err := r.Client.CreateTimeEntry(ctx, r.PersonID, r.Date, booking, note)
	if err != nil {
		outcome.Failed++
		r.Logger.Error("failed to create time entry",
			"project", booking.ProjectName, "error", err)
		return
	}

	outcome.Created++
	r.Logger.Info("created time entry",
		"project", booking.ProjectName, "service", booking.ServiceName,
		"minutes", booking.TimeMinutes, "entry", created.ID)
}
