package callflow

import (
	"context"
	"errors"

	"results-hotline/internal/clinic"
	"results-hotline/internal/compose"
	"results-hotline/internal/delivery"
	"results-hotline/internal/locale"
	"results-hotline/internal/script"
	"results-hotline/pkg/logger"
)

// Machine owns the turn transition table. Each inbound turn loads the call
// session, advances it, and always answers with something speakable: every
// failure funnels into the error state and a rendered apology rather than a
// failed HTTP response to the telephony provider.
//
// The machine counts retries but never hangs up; disconnection is the
// transport's decision.
type Machine struct {
	Sessions SessionStore
	Repo     clinic.Repository
	Scripts  script.Store
	Composer *compose.Composer
	Recorder delivery.Recorder

	// Channel is the delivery method identifier recorded with each
	// transmission (e.g. "phone").
	Channel string
}

// TurnInput is one webhook turn from the transport.
type TurnInput struct {
	CallID string
	// Digits is the keypad entry for this turn; possibly empty.
	Digits string
	// Prompt optionally names the prompt the caller is answering. A
	// mismatch against the session state marks the turn as stale and the
	// current state is re-rendered without advancing.
	Prompt string
}

// TurnReply drives the transport's next utterance.
type TurnReply struct {
	// Prompt identifies the logical prompt for the transport's response
	// template.
	Prompt string
	// Message is the text to speak.
	Message string
	// Gather indicates the transport should collect digits afterwards.
	Gather bool
	// Lang selects the synthesizer voice.
	Lang locale.Language
	// Retries reports the failed-attempt count for the current prompt.
	Retries int
}

// Prompt identifiers, one per state.
const (
	PromptWelcome  = "welcome"
	PromptLanguage = "language_select"
	PromptUsername = "username"
	PromptPassword = "password"
	PromptResults  = "results"
	PromptRepeat   = "repeat"
	PromptError    = "error"
)

// hardcodedApology is the last-resort fallback spoken when even the
// localized error script cannot be fetched. Fixed default locale.
const hardcodedApology = "We are sorry, the system has encountered an error. Please call back later. Goodbye."

// repeatDigit requests a replay of the delivered message.
const repeatDigit = "1"

var ErrCallIDRequired = errors.New("callflow: call id required")

// Turn advances the session one step and returns what to speak next.
func (m *Machine) Turn(ctx context.Context, in TurnInput) (TurnReply, error) {
	if in.CallID == "" {
		return TurnReply{}, ErrCallIDRequired
	}
	log := logger.From(ctx).With("call_id", in.CallID)

	s, found, err := m.Sessions.Find(ctx, in.CallID)
	if err != nil {
		log.Error("session load failed", "err", err)
		return m.apology(), nil
	}
	if !found {
		s = NewSession(in.CallID)
	}

	if in.Prompt != "" && !promptMatches(s.State, in.Prompt) {
		// Stale or replayed turn: answer for where the call actually is.
		log.Warn("stale turn", "got_prompt", in.Prompt, "state", s.State)
		return m.renderState(ctx, s), nil
	}

	switch s.State {
	case StateWelcome:
		return m.welcomeTurn(ctx, s)
	case StateLanguageSelect:
		return m.languageTurn(ctx, s, in.Digits)
	case StateUsername:
		return m.usernameTurn(ctx, s, in.Digits)
	case StatePassword:
		return m.passwordTurn(ctx, s, in.Digits)
	case StateRepeat:
		return m.repeatTurn(ctx, s, in.Digits)
	case StateError:
		return m.errorReply(ctx, s.Lang()), nil
	default:
		log.Error("unknown session state", "state", s.State)
		return m.failTurn(ctx, s, errors.New("callflow: unknown state")), nil
	}
}

func (m *Machine) welcomeTurn(ctx context.Context, s CallSession) (TurnReply, error) {
	text, err := m.say(ctx, script.NameWelcome, s.Lang(), nil)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	s.State = StateLanguageSelect
	reply := TurnReply{Prompt: PromptLanguage, Message: text, Gather: true, Lang: s.Lang()}
	return m.commit(ctx, s, reply)
}

func (m *Machine) languageTurn(ctx context.Context, s CallSession, digits string) (TurnReply, error) {
	lang, ok := locale.FromDigit(digits)
	if !ok {
		s.WelcomeRetries++
		text, err := m.say(ctx, script.NameLanguageNotSelected, s.Lang(), nil)
		if err != nil {
			return m.failTurn(ctx, s, err), nil
		}
		reply := TurnReply{Prompt: PromptLanguage, Message: text, Gather: true, Lang: s.Lang(), Retries: s.WelcomeRetries}
		return m.commit(ctx, s, reply)
	}

	s.Language = lang
	s.State = StateUsername
	text, err := m.say(ctx, script.NameUsernamePrompt, lang, nil)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	reply := TurnReply{Prompt: PromptUsername, Message: text, Gather: true, Lang: lang}
	return m.commit(ctx, s, reply)
}

func (m *Machine) usernameTurn(ctx context.Context, s CallSession, digits string) (TurnReply, error) {
	if digits != "" {
		_, err := m.Repo.FindVisitByUsername(ctx, digits)
		if err == nil {
			s.Username = digits
			s.State = StatePassword
			text, serr := m.say(ctx, script.NamePasswordPrompt, s.Lang(), nil)
			if serr != nil {
				return m.failTurn(ctx, s, serr), nil
			}
			reply := TurnReply{Prompt: PromptPassword, Message: text, Gather: true, Lang: s.Lang()}
			return m.commit(ctx, s, reply)
		}
		if !errors.Is(err, clinic.ErrNotFound) {
			return m.failTurn(ctx, s, err), nil
		}
	}

	s.UsernameRetries++
	text, err := m.say(ctx, script.NameInvalidUsername, s.Lang(), map[string]string{
		"username": locale.SpaceDigits(digits),
	})
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	reply := TurnReply{Prompt: PromptUsername, Message: text, Gather: true, Lang: s.Lang(), Retries: s.UsernameRetries}
	return m.commit(ctx, s, reply)
}

func (m *Machine) passwordTurn(ctx context.Context, s CallSession, digits string) (TurnReply, error) {
	if digits != "" {
		visit, err := m.Repo.FindVisitByCredentials(ctx, s.Username, digits)
		if err == nil {
			return m.deliverTurn(ctx, s, visit)
		}
		if !errors.Is(err, clinic.ErrNotFound) {
			return m.failTurn(ctx, s, err), nil
		}
	}

	s.PasswordRetries++
	text, err := m.say(ctx, script.NameInvalidPassword, s.Lang(), map[string]string{
		"username": locale.SpaceDigits(s.Username),
		"password": locale.SpaceDigits(digits),
	})
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	reply := TurnReply{Prompt: PromptPassword, Message: text, Gather: true, Lang: s.Lang(), Retries: s.PasswordRetries}
	return m.commit(ctx, s, reply)
}

// deliverTurn is the DeliverResults entry action: compose, claim the
// transition via compare-and-set, then record exactly once. The session is
// advanced before the delivery row is written so a racing transport retry
// loses the CAS and replays instead of double-recording.
func (m *Machine) deliverTurn(ctx context.Context, s CallSession, visit clinic.Visit) (TurnReply, error) {
	log := logger.From(ctx).With("call_id", s.CallID)

	cl, err := m.Repo.ClinicByID(ctx, visit.ClinicID)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	results, err := m.Repo.LatestResultsByTest(ctx, visit.ID)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}

	comp, err := m.Composer.Compose(ctx, compose.Input{
		Visit:   visit,
		Clinic:  cl,
		Results: results,
		Lang:    s.Lang(),
		Channel: m.Channel,
	})
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}

	s.VisitID = visit.ID
	s.State = StateRepeat
	s.Message = comp.Message
	s.Version++
	if err := m.Sessions.Save(ctx, s); err != nil {
		if errors.Is(err, ErrConflict) {
			// A duplicate turn won the transition and owns the recording.
			return m.replayCurrent(ctx, s.CallID), nil
		}
		return m.failTurn(ctx, s, err), nil
	}

	if _, err := m.Recorder.Record(ctx, delivery.RecordRequest{
		Method:   m.Channel,
		Message:  comp.Message,
		Statuses: comp.Statuses,
	}); err != nil {
		log.Error("delivery recording failed", "err", err)
		return m.failTurn(ctx, s, err), nil
	}

	return m.resultsReply(ctx, s)
}

func (m *Machine) repeatTurn(ctx context.Context, s CallSession, digits string) (TurnReply, error) {
	if digits == repeatDigit {
		s.RepeatRetries++
		reply, err := m.resultsReplyNoCommit(ctx, s)
		if err != nil {
			return m.failTurn(ctx, s, err), nil
		}
		reply.Retries = s.RepeatRetries
		return m.commit(ctx, s, reply)
	}

	text, err := m.say(ctx, script.NameRepeatPrompt, s.Lang(), nil)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	reply := TurnReply{Prompt: PromptRepeat, Message: text, Gather: true, Lang: s.Lang()}
	return m.commit(ctx, s, reply)
}

// resultsReply speaks the session-cached message followed by the repeat
// instruction, committing the session first.
func (m *Machine) resultsReply(ctx context.Context, s CallSession) (TurnReply, error) {
	reply, err := m.resultsReplyNoCommit(ctx, s)
	if err != nil {
		return m.failTurn(ctx, s, err), nil
	}
	return reply, nil
}

// resultsReplyNoCommit builds the results utterance from the cached
// message. The message is never recomputed here; replay must be
// byte-identical.
func (m *Machine) resultsReplyNoCommit(ctx context.Context, s CallSession) (TurnReply, error) {
	hint, err := m.say(ctx, script.NameRepeatPrompt, s.Lang(), nil)
	if err != nil {
		return TurnReply{}, err
	}
	return TurnReply{
		Prompt:  PromptResults,
		Message: s.Message + "\n\n" + hint,
		Gather:  true,
		Lang:    s.Lang(),
	}, nil
}

// renderState re-renders the current state without advancing; used for
// stale turns and CAS losers.
func (m *Machine) renderState(ctx context.Context, s CallSession) TurnReply {
	switch s.State {
	case StateWelcome, StateLanguageSelect:
		if text, err := m.say(ctx, script.NameWelcome, s.Lang(), nil); err == nil {
			return TurnReply{Prompt: PromptLanguage, Message: text, Gather: true, Lang: s.Lang()}
		}
	case StateUsername:
		if text, err := m.say(ctx, script.NameUsernamePrompt, s.Lang(), nil); err == nil {
			return TurnReply{Prompt: PromptUsername, Message: text, Gather: true, Lang: s.Lang()}
		}
	case StatePassword:
		if text, err := m.say(ctx, script.NamePasswordPrompt, s.Lang(), nil); err == nil {
			return TurnReply{Prompt: PromptPassword, Message: text, Gather: true, Lang: s.Lang()}
		}
	case StateRepeat:
		if reply, err := m.resultsReplyNoCommit(ctx, s); err == nil {
			return reply
		}
	}
	return m.errorReply(ctx, s.Lang())
}

func (m *Machine) replayCurrent(ctx context.Context, callID string) TurnReply {
	cur, found, err := m.Sessions.Find(ctx, callID)
	if err != nil || !found {
		return m.apology()
	}
	return m.renderState(ctx, cur)
}

// commit bumps the session version and saves. A conflict means a duplicate
// turn already advanced the call; the loser re-renders the winner's state.
func (m *Machine) commit(ctx context.Context, s CallSession, reply TurnReply) (TurnReply, error) {
	s.Version++
	err := m.Sessions.Save(ctx, s)
	if err == nil {
		return reply, nil
	}
	if errors.Is(err, ErrConflict) {
		logger.From(ctx).Warn("duplicate turn rejected", "call_id", s.CallID, "version", s.Version)
		return m.replayCurrent(ctx, s.CallID), nil
	}
	logger.From(ctx).Error("session save failed", "call_id", s.CallID, "err", err)
	return m.apology(), nil
}

// failTurn transitions to the error state (best effort) and renders the
// localized error message.
func (m *Machine) failTurn(ctx context.Context, s CallSession, cause error) TurnReply {
	logger.From(ctx).Error("turn failed", "call_id", s.CallID, "state", s.State, "err", cause)
	s.State = StateError
	s.Version++
	if err := m.Sessions.Save(ctx, s); err != nil && !errors.Is(err, ErrConflict) {
		logger.From(ctx).Error("error-state save failed", "call_id", s.CallID, "err", err)
	}
	return m.errorReply(ctx, s.Lang())
}

// errorReply renders the localized error script, degrading to the
// hardcoded default-locale apology when even that lookup fails.
func (m *Machine) errorReply(ctx context.Context, lang locale.Language) TurnReply {
	sc, err := m.Scripts.Get(ctx, script.NameError, lang)
	if err != nil {
		return m.apology()
	}
	text, err := script.Render(sc.Body, nil)
	if err != nil {
		return m.apology()
	}
	return TurnReply{Prompt: PromptError, Message: text, Gather: false, Lang: lang}
}

// apology is the last-resort reply, always spoken in the default locale.
func (m *Machine) apology() TurnReply {
	return TurnReply{Prompt: PromptError, Message: hardcodedApology, Gather: false, Lang: locale.Default()}
}

func (m *Machine) say(ctx context.Context, name string, lang locale.Language, vars map[string]string) (string, error) {
	sc, err := m.Scripts.Get(ctx, name, lang)
	if err != nil {
		return "", err
	}
	return script.Render(sc.Body, vars)
}

// promptMatches reports whether a turn answering prompt p is current for
// state st. The repeat state answers both the initial results utterance and
// the repeat prompt.
func promptMatches(st State, p string) bool {
	switch st {
	case StateWelcome:
		return p == PromptWelcome
	case StateLanguageSelect:
		return p == PromptLanguage
	case StateUsername:
		return p == PromptUsername
	case StatePassword:
		return p == PromptPassword
	case StateRepeat:
		return p == PromptRepeat || p == PromptResults
	default:
		return p == PromptError
	}
}
