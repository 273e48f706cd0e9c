package probe

import "time"

// Mode selects how a probe reaches the Bedrock runtime endpoint.
type Mode string

const (
	// ModeDirect resolves the regional Bedrock endpoint normally.
	ModeDirect Mode = "direct"
	// ModeProxy routes the call through the configured CDN endpoint.
	ModeProxy Mode = "proxy"
)

// TokenUsage mirrors the usage block of an Anthropic messages response.
type TokenUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

// Result is the outcome of a single probe. Exactly one of the two field
// groups is populated: Success carries StatusCode/Elapsed/Usage/Snippet,
// a failure carries ErrorKind/ErrorMessage (plus StatusCode when the
// transport saw an HTTP response).
type Result struct {
	Success      bool
	StatusCode   int
	Elapsed      time.Duration
	Usage        TokenUsage
	Snippet      string
	ErrorKind    string
	ErrorMessage string
}

// Results accumulates per-mode outcomes keyed by "{model name} @ {region}".
// Keys preserves run order so the report matches table declaration order.
type Results struct {
	Direct map[string]Result
	Proxy  map[string]Result
	Keys   []string
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{
		Direct: make(map[string]Result),
		Proxy:  make(map[string]Result),
	}
}

// ModeMap returns the mapping backing the given mode.
func (r *Results) ModeMap(mode Mode) map[string]Result {
	if mode == ModeProxy {
		return r.Proxy
	}
	return r.Direct
}

// Key builds the composite result key for a model/region pair.
func Key(modelName, region string) string {
	return modelName + " @ " + region
}
