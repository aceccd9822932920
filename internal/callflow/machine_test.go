package callflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"results-hotline/internal/clinic"
	"results-hotline/internal/compose"
	"results-hotline/internal/delivery"
	"results-hotline/internal/locale"
	"results-hotline/internal/script"
)

type fixture struct {
	machine  *Machine
	sessions *MemoryStore
	repo     *clinic.MemoryRepo
	recorder *delivery.MemoryRecorder
	scripts  *script.MemoryStore

	visit   clinic.Visit
	results []clinic.Result
}

func newFixture(t *testing.T, statusLabels ...string) *fixture {
	t.Helper()

	scripts := script.NewMemoryStore()
	for _, sc := range []script.Script{
		{Name: script.NameWelcome, Language: locale.English, Body: "Welcome. Press 1 for English, press 2 for Spanish."},
		{Name: script.NameLanguageNotSelected, Language: locale.English, Body: "No language selected. Press 1 for English, press 2 for Spanish."},
		{Name: script.NameUsernamePrompt, Language: locale.English, Body: "Please enter your username."},
		{Name: script.NameInvalidUsername, Language: locale.English, Body: "The username {username} was not found. Try again."},
		{Name: script.NamePasswordPrompt, Language: locale.English, Body: "Please enter your password."},
		{Name: script.NameInvalidPassword, Language: locale.English, Body: "The password {password} for username {username} is not valid. Try again."},
		{Name: script.NameRepeatPrompt, Language: locale.English, Body: "Press 1 to hear your results again."},
		{Name: script.NameError, Language: locale.English, Body: "The system has encountered an error. Goodbye."},
		{Name: script.NameTechnicalError, Language: locale.English, Body: "A technical error occurred. Please call your clinic."},
		{Name: script.NameComeBack, Language: locale.English, Body: "Please come back to the clinic. Hours: {clinic_hours}."},
		{Name: script.NamePending, Language: locale.English, Body: "Your results will be ready by {ready_by}."},
		{Name: script.ResultName("Negative"), Language: locale.English, Body: "Your {test_name} result is negative."},
		{Name: script.MasterName("phone"), Language: locale.English, Body: "Hello from {clinic_name}. About your {test_names} tests from {visit_date}: {message}"},

		{Name: script.NameUsernamePrompt, Language: locale.Spanish, Body: "Por favor ingrese su nombre de usuario."},
	} {
		scripts.Put(sc)
	}

	repo := clinic.NewMemoryRepo()
	ctx := context.Background()
	cl, err := repo.CreateClinic(ctx, clinic.Clinic{Code: "DTC", Name: "Downtown Clinic", HoursEnglish: "Monday to Friday, 9 to 5"})
	if err != nil {
		t.Fatalf("clinic: %v", err)
	}
	visit, err := repo.CreateVisit(ctx, clinic.Visit{
		ClinicID:      cl.ID,
		PatientNumber: "P-100",
		Username:      "4821",
		Password:      "9937",
		VisitDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("visit: %v", err)
	}

	if len(statusLabels) == 0 {
		statusLabels = []string{"Negative"}
	}
	var results []clinic.Result
	base := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	for i, label := range statusLabels {
		test := repo.AddTest([]string{"HIV", "Hepatitis C", "Syphilis"}[i])
		var st *clinic.Status
		if label != "" {
			st = &clinic.Status{ID: "s-" + label, Label: label}
		}
		results = append(results, repo.AddResult(visit.ID, test, st, base.Add(time.Duration(i)*time.Minute)))
	}

	composer := compose.New(scripts)
	composer.Now = func() time.Time { return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC) }

	recorder := delivery.NewMemoryRecorder()
	recorder.Repo = repo

	sessions := NewMemoryStore()
	m := &Machine{
		Sessions: sessions,
		Repo:     repo,
		Scripts:  scripts,
		Composer: composer,
		Recorder: recorder,
		Channel:  "phone",
	}
	return &fixture{machine: m, sessions: sessions, repo: repo, recorder: recorder, scripts: scripts, visit: visit, results: results}
}

func (f *fixture) turn(t *testing.T, callID, digits string) TurnReply {
	t.Helper()
	reply, err := f.machine.Turn(context.Background(), TurnInput{CallID: callID, Digits: digits})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	return reply
}

// authenticate walks the call up to the delivered state and returns the
// results reply.
func (f *fixture) authenticate(t *testing.T, callID string) TurnReply {
	t.Helper()
	f.turn(t, callID, "")            // welcome
	f.turn(t, callID, "1")           // english
	f.turn(t, callID, "4821")        // username
	return f.turn(t, callID, "9937") // password -> deliver
}

func TestTurn_FullHappyPath(t *testing.T) {
	f := newFixture(t)

	r := f.turn(t, "CA1", "")
	if r.Prompt != PromptLanguage || !strings.Contains(r.Message, "Press 1 for English") {
		t.Fatalf("expected welcome prompt, got %+v", r)
	}

	r = f.turn(t, "CA1", "1")
	if r.Prompt != PromptUsername {
		t.Fatalf("expected username prompt, got %+v", r)
	}

	r = f.turn(t, "CA1", "4821")
	if r.Prompt != PromptPassword {
		t.Fatalf("expected password prompt, got %+v", r)
	}

	r = f.turn(t, "CA1", "9937")
	if r.Prompt != PromptResults {
		t.Fatalf("expected results, got %+v", r)
	}
	if !strings.Contains(r.Message, "Your HIV result is negative.") {
		t.Fatalf("expected composed message, got %q", r.Message)
	}
	if !strings.Contains(r.Message, "Press 1 to hear your results again.") {
		t.Fatalf("expected repeat hint, got %q", r.Message)
	}
	if !r.Gather {
		t.Fatalf("expected gather after results")
	}

	if n := len(f.recorder.Deliveries()); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
	got, _ := f.repo.ResultByID(f.results[0].ID)
	if got.DeliveryStatus != clinic.DeliveryStatusDelivered {
		t.Fatalf("expected delivered status, got %q", got.DeliveryStatus)
	}
}

func TestTurn_SpanishSelection(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA2", "")
	r := f.turn(t, "CA2", "2")
	if r.Lang != locale.Spanish {
		t.Fatalf("expected spanish reply, got %q", r.Lang)
	}
	if !strings.Contains(r.Message, "Por favor ingrese su nombre de usuario.") {
		t.Fatalf("expected spanish username prompt, got %q", r.Message)
	}
}

func TestTurn_BadLanguageDigitRetries(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA3", "")

	r := f.turn(t, "CA3", "7")
	if r.Prompt != PromptLanguage || r.Retries != 1 {
		t.Fatalf("expected language re-prompt with retry 1, got %+v", r)
	}
	r = f.turn(t, "CA3", "")
	if r.Retries != 2 {
		t.Fatalf("expected retry 2, got %+v", r)
	}
	if !strings.Contains(r.Message, "No language selected.") {
		t.Fatalf("expected not-selected message, got %q", r.Message)
	}
}

func TestTurn_InvalidUsernameEchoesSpacedDigits(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA4", "")
	f.turn(t, "CA4", "1")

	r := f.turn(t, "CA4", "482")
	if r.Prompt != PromptUsername || r.Retries != 1 {
		t.Fatalf("expected username re-prompt, got %+v", r)
	}
	if !strings.Contains(r.Message, "The username 4 8 2 was not found.") {
		t.Fatalf("expected spaced echo, got %q", r.Message)
	}
}

func TestTurn_InvalidPasswordEchoesBoth(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA5", "")
	f.turn(t, "CA5", "1")
	f.turn(t, "CA5", "4821")

	r := f.turn(t, "CA5", "111")
	if r.Prompt != PromptPassword || r.Retries != 1 {
		t.Fatalf("expected password re-prompt, got %+v", r)
	}
	if !strings.Contains(r.Message, "The password 1 1 1 for username 4 8 2 1 is not valid.") {
		t.Fatalf("expected both spaced echoes, got %q", r.Message)
	}
}

func TestTurn_RepeatIsByteIdenticalAndRecordsOnce(t *testing.T) {
	f := newFixture(t)
	first := f.authenticate(t, "CA6")

	r1 := f.turn(t, "CA6", "1")
	r2 := f.turn(t, "CA6", "1")

	if r1.Message != r2.Message {
		t.Fatalf("expected byte-identical replay:\n%q\n%q", r1.Message, r2.Message)
	}
	if r1.Message != first.Message {
		t.Fatalf("expected replay to match the original utterance")
	}
	if r1.Retries != 1 || r2.Retries != 2 {
		t.Fatalf("expected repeat retries 1 then 2, got %d %d", r1.Retries, r2.Retries)
	}
	if n := len(f.recorder.Deliveries()); n != 1 {
		t.Fatalf("expected exactly one delivery despite repeats, got %d", n)
	}
}

func TestTurn_NonRepeatDigitReprompts(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "CA7")

	r := f.turn(t, "CA7", "5")
	if r.Prompt != PromptRepeat {
		t.Fatalf("expected repeat prompt, got %+v", r)
	}
	if !strings.Contains(r.Message, "Press 1 to hear your results again.") {
		t.Fatalf("got %q", r.Message)
	}
	if n := len(f.recorder.Deliveries()); n != 1 {
		t.Fatalf("expected one delivery, got %d", n)
	}
}

func TestTurn_ComeBackUpdatesAllResults(t *testing.T) {
	f := newFixture(t, "Come back to clinic", "Negative")
	r := f.authenticate(t, "CA8")

	if !strings.Contains(r.Message, "Please come back to the clinic.") {
		t.Fatalf("expected come-back branch, got %q", r.Message)
	}
	for _, res := range f.results {
		got, _ := f.repo.ResultByID(res.ID)
		if got.DeliveryStatus != clinic.DeliveryStatusComeBack {
			t.Fatalf("result %s: expected come-back status, got %q", res.ID, got.DeliveryStatus)
		}
	}
}

func TestTurn_MalformedResultSpeaksTechnicalError(t *testing.T) {
	f := newFixture(t, "", "Negative")
	r := f.authenticate(t, "CA9")

	if !strings.Contains(r.Message, "A technical error occurred.") {
		t.Fatalf("expected technical error, got %q", r.Message)
	}
	for _, res := range f.results {
		got, _ := f.repo.ResultByID(res.ID)
		if got.DeliveryStatus != clinic.DeliveryStatusNotDelivered {
			t.Fatalf("result %s: expected not-delivered, got %q", res.ID, got.DeliveryStatus)
		}
	}
}

func TestTurn_StalePromptDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA10", "")
	f.turn(t, "CA10", "1") // now awaiting username

	reply, err := f.machine.Turn(context.Background(), TurnInput{CallID: "CA10", Digits: "9", Prompt: PromptLanguage})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply.Prompt != PromptUsername {
		t.Fatalf("expected current-state re-render, got %+v", reply)
	}
	if reply.Retries != 0 {
		t.Fatalf("expected stale turn not to count a retry, got %d", reply.Retries)
	}
}

func TestTurn_DuplicateDeliverTurnRecordsOnce(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA11", "")
	f.turn(t, "CA11", "1")
	f.turn(t, "CA11", "4821")

	first, err := f.machine.Turn(context.Background(), TurnInput{CallID: "CA11", Digits: "9937"})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	// Transport retry of the same password turn: the session has already
	// advanced past the password prompt, so the machine must replay the
	// results utterance without recording again.
	second, err := f.machine.Turn(context.Background(), TurnInput{CallID: "CA11", Digits: "9937", Prompt: PromptPassword})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	if n := len(f.recorder.Deliveries()); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
	if second.Message != first.Message {
		t.Fatalf("expected replayed results utterance, got %q", second.Message)
	}
}

func TestTurn_ScriptOutageFallsBackToApology(t *testing.T) {
	f := newFixture(t)
	f.machine.Scripts = script.NewMemoryStore() // nothing seeded

	r := f.turn(t, "CA12", "")
	if r.Prompt != PromptError || r.Gather {
		t.Fatalf("expected terminal error reply, got %+v", r)
	}
	if r.Message != hardcodedApology {
		t.Fatalf("expected hardcoded apology, got %q", r.Message)
	}
}

func TestTurn_ErrorStateIsSticky(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "CA13", "")
	f.turn(t, "CA13", "1")

	// A script outage on the invalid-username path drives the call into the
	// error state.
	f.machine.Scripts = script.NewMemoryStore()
	r := f.turn(t, "CA13", "0000")
	if r.Prompt != PromptError {
		t.Fatalf("expected error reply, got %+v", r)
	}

	// Subsequent turns stay in the error state.
	r = f.turn(t, "CA13", "1")
	if r.Prompt != PromptError {
		t.Fatalf("expected sticky error state, got %+v", r)
	}
}

func TestTurn_RequiresCallID(t *testing.T) {
	f := newFixture(t)
	if _, err := f.machine.Turn(context.Background(), TurnInput{}); err == nil {
		t.Fatalf("expected error for missing call id")
	}
}
