package updates

import "context"

// ChangeOperation rewrites dependency manifests inside a prepared working
// copy. Implementations carry their own settings; the update client only
// supplies the checkout location. The boolean result reports whether the
// operation applied changes to the working copy.
type ChangeOperation interface {
	Execute(executionContext context.Context, workingDirectory string) (bool, error)
}
