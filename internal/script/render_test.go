package script

import (
	"context"
	"errors"
	"testing"

	"results-hotline/internal/locale"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	out, err := Render("Your visit on {visit_date} at {clinic_name}.", map[string]string{
		"visit_date":  "Monday, January 8th, 2024",
		"clinic_name": "Downtown Clinic",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "Your visit on Monday, January 8th, 2024 at Downtown Clinic."
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRenderFailsOnMissingVariable(t *testing.T) {
	_, err := Render("Hello {name}.", map[string]string{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrMissingVariable) {
		t.Fatalf("expected ErrMissingVariable, got %v", err)
	}
}

func TestRenderFailsOnUnclosedTag(t *testing.T) {
	_, err := Render("Hello {name.", map[string]string{"name": "x"})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestRenderNoPlaceholders(t *testing.T) {
	out, err := Render("Plain message.", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Plain message." {
		t.Fatalf("got %q", out)
	}
}

func TestMemoryStoreNoLanguageFallback(t *testing.T) {
	st := NewMemoryStore()
	st.Put(Script{Name: NamePending, Language: locale.English, Body: "Results ready by {ready_by}."})

	if _, err := st.Get(context.Background(), NamePending, locale.Spanish); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing spanish row, got %v", err)
	}
	sc, err := st.Get(context.Background(), NamePending, locale.English)
	if err != nil {
		t.Fatalf("expected hit, got %v", err)
	}
	if sc.Body == "" {
		t.Fatalf("expected body")
	}
}

func TestDerivedNames(t *testing.T) {
	if got := MasterName("phone"); got != "master_phone" {
		t.Fatalf("got %q", got)
	}
	if got := ResultName("Come back to clinic"); got != "result_come_back_to_clinic" {
		t.Fatalf("got %q", got)
	}
	if got := ResultName("Negative"); got != "result_negative" {
		t.Fatalf("got %q", got)
	}
}
