package ivr

import (
	"net/http"
	"strings"
)

// TwilioTurnForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml
//
// Keep it minimal and provider-adapter-only; turn advancement is not
// decided here.

type TwilioTurnForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string
	Digits     string
}

func ParseTwilioTurn(r *http.Request) (TwilioTurnForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioTurnForm{}, err
	}
	return TwilioTurnForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		CallStatus: r.PostFormValue("CallStatus"),
		Digits:     strings.TrimSpace(r.PostFormValue("Digits")),
	}, nil
}
