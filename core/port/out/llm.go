package out

import "context"

// TextGenerator is the text-generation endpoint: one system instruction and
// one user prompt in, free text out.
type TextGenerator interface {
	CompleteWithSystem(ctx context.Context, system, user string) (string, error)
}
