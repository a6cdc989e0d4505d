package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// metricPutter is the part of the CloudWatch client we use.
type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client publishes custom metrics to CloudWatch
type Client struct {
	client      metricPutter
	enabled     bool
	namespace   string
	environment string
}

// NewClient creates a CloudWatch metrics client. Outside production the
// client is disabled and every record is a no-op.
func NewClient(ctx context.Context, environment, namespace string) *Client {
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{environment: environment, namespace: namespace}
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{environment: environment, namespace: namespace}
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)
	return &Client{
		client:      cloudwatch.NewFromConfig(cfg),
		enabled:     true,
		namespace:   namespace,
		environment: environment,
	}
}

func (m *Client) Enabled() bool {
	return m.enabled
}

// RecordAPIRequest records a request count and its latency
func (m *Client) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	metricName := "APIRequests"
	if statusCode >= httpStatusServerError {
		metricName = "APIErrors"
	}
	dims := m.dimensions("Endpoint", endpoint)

	go func() {
		m.put(metricName, 1, types.StandardUnitCount, dims)
		m.put("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims)
	}()
}

// RecordTokenUsage records language model token counts per model
func (m *Client) RecordTokenUsage(_ context.Context, model string, inputTokens, outputTokens, totalTokens int64) {
	if !m.enabled {
		return
	}

	dims := m.dimensions("Model", model)
	go func() {
		m.put("LLMTokens/Total", float64(totalTokens), types.StandardUnitCount, dims)
		m.put("LLMTokens/Input", float64(inputTokens), types.StandardUnitCount, dims)
		m.put("LLMTokens/Output", float64(outputTokens), types.StandardUnitCount, dims)
	}()
}

// RecordSuggestion records how long a suggestion round trip took
func (m *Client) RecordSuggestion(_ context.Context, suggester string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	dims := append(m.dimensions("Suggester", suggester), types.Dimension{
		Name:  aws.String("Success"),
		Value: aws.String(boolToString(success)),
	})
	go m.put("SuggestionDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dims)
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{Name: aws.String(name), Value: aws.String(value)},
		{Name: aws.String("Environment"), Value: aws.String(m.environment)},
	}
}

func (m *Client) put(metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) {
	if err := m.putMetric(metricName, value, unit, dimensions); err != nil {
		log.Printf("Failed to record %s metric: %v", metricName, err)
	}
}

// putMetric sends one datum to CloudWatch
func (m *Client) putMetric(metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeoutSeconds*time.Second)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})
	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
