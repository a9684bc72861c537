package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus_ContainsRecordedSeries(t *testing.T) {
	InferenceTotal.WithLabelValues("image", "ok").Inc()
	RejectedTotal.WithLabelValues("video", "content_type").Inc()
	InferenceDuration.WithLabelValues("image").Observe(0.2)

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `media_inference_total{modality="image",outcome="ok"}`)
	assert.Contains(t, out, `media_inference_rejected_total{modality="video",reason="content_type"}`)
	assert.Contains(t, out, "media_inference_duration_seconds_bucket")
}
