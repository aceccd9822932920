package script

import (
	"fmt"
	"io"

	"github.com/valyala/fasttemplate"
)

// Render is the pure template primitive: placeholders are written as
// {name} and replaced from vars. It fails loudly instead of guessing:
// a malformed template yields ErrParse, an unbound placeholder yields
// ErrMissingVariable. Core logic never branches on template internals.

var (
	ErrParse           = fmt.Errorf("script: template parse failed")
	ErrMissingVariable = fmt.Errorf("script: missing template variable")
)

func Render(tpl string, vars map[string]string) (string, error) {
	t, err := fasttemplate.NewTemplate(tpl, "{", "}")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	out, err := t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		v, ok := vars[tag]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingVariable, tag)
		}
		return io.WriteString(w, v)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
