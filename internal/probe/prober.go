package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/ncecere/bedrock_edge_probe/internal/config"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	snippetLimit     = 80
)

// invoker is the slice of the bedrockruntime client the prober uses.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Prober issues single-shot InvokeModel calls against a region, either
// directly or through the configured CDN proxy endpoint.
type Prober struct {
	cfg       *config.Config
	newClient func(ctx context.Context, region string, mode Mode) (invoker, error)
}

// New constructs a prober for the given configuration.
func New(cfg *config.Config) *Prober {
	p := &Prober{cfg: cfg}
	p.newClient = p.buildClient
	return p
}

// Probe performs one attempt for the model/region/mode combination. It
// never returns an error: any failure during client construction,
// invocation, or decoding becomes a failure Result.
func (p *Prober) Probe(ctx context.Context, region string, model config.ModelSpec, mode Mode) Result {
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	client, err := p.newClient(ctx, region, mode)
	if err != nil {
		return failureResult(fmt.Errorf("build bedrock client: %w", err))
	}

	body, err := p.requestBody()
	if err != nil {
		return failureResult(fmt.Errorf("encode request: %w", err))
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model.ID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	}

	start := time.Now()
	out, err := client.InvokeModel(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		return failureResult(err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return failureResult(fmt.Errorf("decode bedrock response: %w", err))
	}

	return Result{
		Success:    true,
		StatusCode: http.StatusOK,
		Elapsed:    elapsed,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
		Snippet: truncateSnippet(parsed.JoinText(), snippetLimit),
	}
}

// Preflight verifies the credential chain resolves before the probe loop
// starts, using the first configured region. Returns the caller ARN.
func (p *Prober) Preflight(ctx context.Context) (string, error) {
	if len(p.cfg.Regions) == 0 {
		return "", errors.New("no regions configured")
	}
	awsCfg, err := p.loadAWSConfig(ctx, p.cfg.Regions[0].Name)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	out, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Arn), nil
}

func (p *Prober) buildClient(ctx context.Context, region string, mode Mode) (invoker, error) {
	awsCfg, err := p.loadAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg, p.clientOptions(mode)...), nil
}

func (p *Prober) loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(region),
	}
	if p.cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(p.cfg.AWS.Profile))
	}
	if p.cfg.AWS.AccessKeyID != "" && p.cfg.AWS.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(p.cfg.AWS.AccessKeyID, p.cfg.AWS.SecretAccessKey, p.cfg.AWS.SessionToken)
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = region
	}
	return awsCfg, nil
}

// clientOptions computes the per-call endpoint selection. Proxy mode pins
// the client to the CDN URL; direct mode returns no options so the SDK
// resolves the regional default. The endpoint never outlives the client,
// so consecutive probes cannot leak mode into each other.
func (p *Prober) clientOptions(mode Mode) []func(*bedrockruntime.Options) {
	if mode != ModeProxy {
		return nil
	}
	endpoint := p.cfg.ProxyEndpoint
	return []func(*bedrockruntime.Options){
		func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		},
	}
}

func (p *Prober) requestBody() ([]byte, error) {
	body := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        p.cfg.MaxTokens,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContent{
					{Type: "text", Text: p.cfg.Prompt},
				},
			},
		},
	}
	return json.Marshal(body)
}

func failureResult(err error) Result {
	result := Result{
		ErrorKind:    errorKind(err),
		ErrorMessage: err.Error(),
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		result.StatusCode = respErr.HTTPStatusCode()
	}
	return result
}

// errorKind maps an error to a stable category name. AWS service errors
// carry their code (ThrottlingException, AccessDeniedException, ...);
// anything else falls back to the Go type.
func errorKind(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("%s.%s", opErr.Service(), opErr.Operation())
	}
	return fmt.Sprintf("%T", err)
}

func truncateSnippet(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// anthropicRequest is the payload Claude models expect on Bedrock.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int32              `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

func (a anthropicResponse) JoinText() string {
	var b strings.Builder
	for _, c := range a.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}
