package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"results-hotline/internal/clinic"
	"results-hotline/internal/locale"
	"results-hotline/internal/script"
)

// Composer turns a visit's latest results into exactly one localized
// message and the delivery-status each result should take. It performs no
// writes; the delivery recorder persists the outcome atomically.
//
// Branch priority over the latest result per test:
//  1. malformed (any result without a status) -> technical error
//  2. any "Come back to clinic"               -> come-back message
//  3. any "Pending"                           -> pending message with ready-by date
//  4. otherwise                               -> per-test messages, concatenated
//
// The branch message is wrapped in the channel's master template. A missing
// branch/per-test template degrades to the technical-error branch; a missing
// master template is a hard failure.
type Composer struct {
	Scripts script.Store

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func New(scripts script.Store) *Composer {
	return &Composer{Scripts: scripts, Now: time.Now}
}

// Input is the data borrowed from the repository for one composition.
type Input struct {
	Visit   clinic.Visit
	Clinic  clinic.Clinic
	Results []clinic.Result // latest result per test
	Lang    locale.Language
	Channel string
}

// Composition is the outcome: the message to speak and the new
// delivery-status per result id. Statuses covers every latest result.
type Composition struct {
	Message   string
	Statuses  map[string]clinic.DeliveryStatus
	ResultIDs []string
}

var (
	ErrNoResults = errors.New("compose: visit has no results")
)

// Template variable names shared with the script store contents.
const (
	varClinicHours = "clinic_hours"
	varClinicName  = "clinic_name"
	varVisitDate   = "visit_date"
	varTestNames   = "test_names"
	varMessage     = "message"
	varTestName    = "test_name"
	varReadyBy     = "ready_by"
)

func (c *Composer) Compose(ctx context.Context, in Input) (Composition, error) {
	if len(in.Results) == 0 {
		return Composition{}, ErrNoResults
	}
	lang := locale.Resolve(in.Lang)

	branchMsg, status, err := c.branch(ctx, in, lang)
	if err != nil {
		return Composition{}, err
	}

	out := Composition{
		Message:   branchMsg,
		Statuses:  make(map[string]clinic.DeliveryStatus, len(in.Results)),
		ResultIDs: make([]string, 0, len(in.Results)),
	}
	for _, r := range in.Results {
		out.Statuses[r.ID] = status
		out.ResultIDs = append(out.ResultIDs, r.ID)
	}

	wrapped, err := c.wrap(ctx, in, lang, branchMsg)
	if err != nil {
		// A missing or broken master template is a hard failure.
		return Composition{}, err
	}
	out.Message = wrapped
	return out, nil
}

// branch resolves the four-way priority and returns the inner message plus
// the delivery-status applied to every latest result.
func (c *Composer) branch(ctx context.Context, in Input, lang locale.Language) (string, clinic.DeliveryStatus, error) {
	malformed := false
	comeBack := false
	pending := false
	for _, r := range in.Results {
		switch {
		case r.Status == nil:
			malformed = true
		case r.Status.IsComeBack():
			comeBack = true
		case r.Status.IsPending():
			pending = true
		}
	}

	switch {
	case malformed:
		msg, err := c.render(ctx, script.NameTechnicalError, lang, nil)
		if err != nil {
			return "", "", err
		}
		return msg, clinic.DeliveryStatusNotDelivered, nil

	case comeBack:
		msg, err := c.render(ctx, script.NameComeBack, lang, map[string]string{
			varClinicHours: in.Clinic.Hours(lang),
		})
		if err != nil {
			return "", "", err
		}
		return msg, clinic.DeliveryStatusComeBack, nil

	case pending:
		readyBy := c.readyByDate(in.Visit.VisitDate)
		msg, err := c.render(ctx, script.NamePending, lang, map[string]string{
			varReadyBy: locale.FormatDate(readyBy, lang),
		})
		if err != nil {
			return "", "", err
		}
		return msg, clinic.DeliveryStatusNotDelivered, nil
	}

	return c.deliveredBranch(ctx, in, lang)
}

// deliveredBranch renders one message per result. Any missing per-test
// template degrades the whole branch to the technical-error message; this is
// an explicit fallible-lookup check, not error recovery.
func (c *Composer) deliveredBranch(ctx context.Context, in Input, lang locale.Language) (string, clinic.DeliveryStatus, error) {
	parts := make([]string, 0, len(in.Results))
	for _, r := range in.Results {
		sc, err := c.Scripts.Get(ctx, script.ResultName(r.Status.Label), lang)
		if errors.Is(err, script.ErrNotFound) {
			msg, terr := c.render(ctx, script.NameTechnicalError, lang, nil)
			if terr != nil {
				return "", "", terr
			}
			return msg, clinic.DeliveryStatusNotDelivered, nil
		}
		if err != nil {
			return "", "", err
		}
		part, err := script.Render(sc.Body, map[string]string{
			varTestName:    r.Test.Name,
			varClinicHours: in.Clinic.Hours(lang),
		})
		if err != nil {
			return "", "", err
		}
		parts = append(parts, part)
	}

	msg := ""
	for i, p := range parts {
		if i > 0 {
			msg += "\n\n"
		}
		msg += p
	}
	return msg, clinic.DeliveryStatusDelivered, nil
}

// wrap applies the channel master template around the branch message.
func (c *Composer) wrap(ctx context.Context, in Input, lang locale.Language, branchMsg string) (string, error) {
	sc, err := c.Scripts.Get(ctx, script.MasterName(in.Channel), lang)
	if err != nil {
		return "", fmt.Errorf("compose: master template for channel %q: %w", in.Channel, err)
	}

	names := make([]string, 0, len(in.Results))
	seen := make(map[string]bool, len(in.Results))
	for _, r := range in.Results {
		if seen[r.Test.Name] {
			continue
		}
		seen[r.Test.Name] = true
		names = append(names, r.Test.Name)
	}

	return script.Render(sc.Body, map[string]string{
		varClinicName: in.Clinic.Name,
		varVisitDate:  locale.FormatDate(in.Visit.VisitDate, lang),
		varTestNames:  locale.JoinNames(names, lang),
		varMessage:    branchMsg,
	})
}

// readyByDate is when pending results should be ready: a week after the
// visit, but never earlier than tomorrow.
func (c *Composer) readyByDate(visitDate time.Time) time.Time {
	now := c.Now().UTC()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	weekOut := visitDate.UTC().AddDate(0, 0, 7)
	if weekOut.Before(tomorrow) {
		return tomorrow
	}
	return weekOut
}

func (c *Composer) render(ctx context.Context, name string, lang locale.Language, vars map[string]string) (string, error) {
	sc, err := c.Scripts.Get(ctx, name, lang)
	if err != nil {
		return "", err
	}
	return script.Render(sc.Body, vars)
}
