package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/api/googleapi"

	"github.com/tfischer/inboxpilot/internal/instrumentation"
)

func testClient() *Client {
	return &Client{sleep: func(time.Duration) {}}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 500}, true},
		{"bad gateway", &googleapi.Error{Code: 502}, true},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"forbidden", &googleapi.Error{Code: 403}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped api error", errors.Join(errors.New("ctx"), &googleapi.Error{Code: 503}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := testClient().withRetry("op", func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := testClient().withRetry("op", func() error {
			calls++
			if calls < 3 {
				return &googleapi.Error{Code: 503}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := testClient().withRetry("op", func() error {
			calls++
			return &googleapi.Error{Code: 429}
		})
		require.Error(t, err)
		assert.Equal(t, maxRetries, calls)
		assert.Contains(t, err.Error(), "giving up")

		var apiErr *googleapi.Error
		assert.True(t, errors.As(err, &apiErr), "the last API error is preserved in the chain")
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := testClient().withRetry("op", func() error {
			calls++
			return &googleapi.Error{Code: 404}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestWithRetryRecordsOperationMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	c := &Client{metrics: metrics, sleep: func(time.Duration) {}}
	require.NoError(t, c.withRetry("list messages", func() error { return nil }))
	require.Error(t, c.withRetry("send reply", func() error {
		return &googleapi.Error{Code: 503}
	}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var operations, durations bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "gmail_api_operations_total":
				operations = true
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total, "one success and one failure recorded")
			case "gmail_api_operation_duration_seconds":
				durations = true
			}
		}
	}
	assert.True(t, operations, "operation counter not collected")
	assert.True(t, durations, "operation duration histogram not collected")
}

func TestEncodeRFC2047(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		encoded bool
	}{
		{"plain ascii unchanged", "Meeting tomorrow", false},
		{"umlauts encoded", "Grüße aus München", true},
		{"emoji encoded", "Hello 👋", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeRFC2047(tt.subject)
			if tt.encoded {
				assert.True(t, strings.HasPrefix(got, "=?UTF-8?"), "got %q", got)
			} else {
				assert.Equal(t, tt.subject, got)
			}
		})
	}
}

func TestBuildRawMessage(t *testing.T) {
	raw := buildRawMessage(
		[]string{"ana@example.com"},
		"Re: invoice",
		"got it, thanks",
		false,
		[]string{"In-Reply-To: <abc@mail.example>", "References: <abc@mail.example>"},
	)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	msg := string(decoded)

	assert.Contains(t, msg, "To: ana@example.com\r\n")
	assert.Contains(t, msg, "Subject: Re: invoice\r\n")
	assert.Contains(t, msg, "In-Reply-To: <abc@mail.example>\r\n")
	assert.Contains(t, msg, "References: <abc@mail.example>\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\ngot it, thanks"))
}

func TestBuildRawMessageHTML(t *testing.T) {
	raw := buildRawMessage([]string{"a@b.c"}, "s", "<p>hi</p>", true, nil)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Content-Type: text/html; charset=\"UTF-8\"\r\n")
}

func TestSendErrorUnwrap(t *testing.T) {
	cause := &googleapi.Error{Code: 400}
	err := &SendError{MessageID: "msg-1", Err: cause}

	assert.Contains(t, err.Error(), "msg-1")

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr))
}
