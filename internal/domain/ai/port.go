package ai

import "context"

// Client asks the generative model to describe the media at mediaURL and
// returns its raw, unparsed text.
type Client interface {
	Describe(ctx context.Context, mediaURL string) (string, error)
}
