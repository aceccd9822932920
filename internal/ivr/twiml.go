package ivr

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"results-hotline/internal/callflow"
	"results-hotline/internal/locale"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName xml.Name `xml:"Gather"`
	Input   string   `xml:"input,attr"`
	Action  string   `xml:"action,attr"`
	Method  string   `xml:"method,attr"`
	Timeout int      `xml:"timeout,attr"`
	Verbs   []any    `xml:",any"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

// gatherTimeoutSeconds is how long Twilio waits for keypad input before
// posting back with empty Digits.
const gatherTimeoutSeconds = 6

// RenderTurn maps a turn reply to TwiML. actionURL is where the next turn
// webhook posts; the reply's prompt identifier is appended so the next turn
// can detect stale or replayed requests.
func RenderTurn(reply callflow.TurnReply, actionURL string) (string, error) {
	if strings.TrimSpace(reply.Message) == "" {
		return "", errors.New("ivr: empty message")
	}

	says := sayVerbs(reply.Message, reply.Lang)

	var r twimlResponse
	if reply.Gather {
		action := promptURL(actionURL, reply.Prompt)
		r.Verbs = append(r.Verbs, twimlGather{
			Input:   "dtmf",
			Action:  action,
			Method:  "POST",
			Timeout: gatherTimeoutSeconds,
			Verbs:   says,
		})
		// No digits within the timeout posts back empty so the flow can
		// count the retry and re-prompt.
		r.Verbs = append(r.Verbs, twimlRedirect{Method: "POST", URL: action})
	} else {
		r.Verbs = append(r.Verbs, says...)
		r.Verbs = append(r.Verbs, twimlHangup{})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sayVerbs splits a message into one Say per paragraph so the synthesizer
// pauses between the result statement and the repeat instruction.
func sayVerbs(message string, lang locale.Language) []any {
	var says []any
	for _, para := range strings.Split(message, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		says = append(says, twimlSay{Language: lang.SpeechCode(), Text: para})
	}
	return says
}

func promptURL(actionURL, prompt string) string {
	if prompt == "" {
		return actionURL
	}
	sep := "?"
	if strings.Contains(actionURL, "?") {
		sep = "&"
	}
	return actionURL + sep + "prompt=" + prompt
}
