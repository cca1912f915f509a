package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Page is the data every view executes with.
type Page struct {
	// View is the name of the view being executed.
	View string

	// Slot is the rendered output of the nested view. It is empty for the
	// innermost view.
	Slot template.HTML

	// Data is the caller's data, shared by the whole chain.
	Data any
}

// Compose renders the innermost view of chain (outermost first), then
// wraps the output in each enclosing layout's {{.Slot}}.
func (r *Registry) Compose(ctx context.Context, chain []string, data any) (template.HTML, error) {
	var (
		slot template.HTML
		buf  bytes.Buffer
	)
	for i := len(chain) - 1; i >= 0; i-- {
		name := chain[i]
		tmpl, err := r.Get(name).Resolve(ctx)
		if err != nil {
			return "", err
		}
		buf.Reset()
		if err := tmpl.Execute(&buf, Page{View: name, Slot: slot, Data: data}); err != nil {
			return "", fmt.Errorf("view: render %s: %w", name, err)
		}
		// Output of html/template is already escaped.
		slot = template.HTML(buf.String())
	}
	return slot, nil
}
