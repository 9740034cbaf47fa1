package generation

import "context"

// ImageData is one inline image attached to a generation request.
type ImageData struct {
	Data     []byte
	MIMEType string
}

// Request is the single explicit configuration for one backend call.
// A nil Temperature leaves the model default in place; a zero
// MaxOutputTokens lets the executor substitute the model's ceiling.
type Request struct {
	Prompt          string
	SystemPrompt    string
	Temperature     *float32
	MaxOutputTokens int32
	Images          []ImageData
}

// Result is the outcome of one successful backend call. Blocked
// responses are results, not errors: the caller reports them instead of
// raising them.
type Result struct {
	Text        string
	Blocked     bool
	BlockReason string
}

// Backend performs the actual model invocation. Implementations must
// classify transport failures with the sentinel errors in this package
// so the executor can log them coherently; any returned error advances
// the fallback cascade. Safety settings are fixed per process and
// applied by the implementation on every call.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Generate performs one blocking, non-streaming call.
	Generate(ctx context.Context, model string, req Request) (*Result, error)

	// GenerateStream performs one blocking streaming call, passing each
	// text fragment to yield as it arrives. If yield returns an error
	// the implementation stops and returns that error unchanged. The
	// returned Result carries the blocked outcome, if any; its Text is
	// unset.
	GenerateStream(ctx context.Context, model string, req Request, yield func(fragment string) error) (*Result, error)
}
