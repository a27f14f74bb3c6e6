package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/receitas/pkg/chunker"
)

// LambdaInvoker is the part of the AWS Lambda client the translator needs.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaRequest is the payload sent to a translator Lambda.
type LambdaRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"sourceLang"`
	TargetLang string   `json:"targetLang"`
}

// LambdaResponse is the payload returned by a translator Lambda.
type LambdaResponse struct {
	Translations []string `json:"translations"`
	Error        string   `json:"error,omitempty"`
}

// LambdaClient implements the Translator interface by invoking a translator
// function on AWS Lambda.
type LambdaClient struct {
	invoker      LambdaInvoker
	functionName string
	logger       *logrus.Logger
	metrics      *MetricsCollector
}

// NewLambdaClient wraps an existing invoker.
func NewLambdaClient(invoker LambdaInvoker, functionName string, logger *logrus.Logger) *LambdaClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &LambdaClient{
		invoker:      invoker,
		functionName: functionName,
		logger:       logger,
		metrics:      NewMetricsCollector(string(EngineLambda)),
	}
}

// NewLambdaClientFromEnv loads the default AWS configuration (environment,
// shared config, instance role) and builds a client for functionName.
func NewLambdaClientFromEnv(ctx context.Context, functionName string, logger *logrus.Logger) (*LambdaClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewLambdaClient(lambda.NewFromConfig(cfg), functionName, logger), nil
}

// Translate sends a single text to the translator function.
func (c *LambdaClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	startTime := time.Now()
	out, err := c.invoke(ctx, LambdaRequest{
		Texts:      []string{text},
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	c.metrics.RecordTranslationRequest(time.Since(startTime), err == nil, chunker.Len(text))
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"function": c.functionName,
		}).Error("Lambda translation failed")
		return "", err
	}
	if len(out.Translations) != 1 {
		return "", fmt.Errorf("lambda returned %d translations, want 1", len(out.Translations))
	}
	return out.Translations[0], nil
}

func (c *LambdaClient) invoke(ctx context.Context, req LambdaRequest) (*LambdaResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(c.functionName),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", c.functionName, err)
	}
	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp LambdaResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}
	return &resp, nil
}

// CheckHealth invokes the function with an empty batch.
func (c *LambdaClient) CheckHealth(ctx context.Context) error {
	if _, err := c.invoke(ctx, LambdaRequest{Texts: []string{}, SourceLang: "en", TargetLang: "pt"}); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// SupportedLanguages returns the pair the translator function is deployed for.
func (c *LambdaClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"pt", "en"}, nil
}
