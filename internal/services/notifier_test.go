package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotice() ResetNotice {
	return ResetNotice{
		UserID:    "u-1",
		Username:  "alice",
		Email:     "alice@example.com",
		Link:      "https://app.test/reset/deadbeefcafe",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLogNotifier_InfoNeverCarriesTheLink(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf).Level(zerolog.DebugLevel)

	require.NoError(t, LogNotifier{Logger: &lg}.SendPasswordReset(context.Background(), sampleNotice()))

	out := buf.String()
	assert.Contains(t, out, `"user_id":"u-1"`)
	assert.Contains(t, out, "expires_at")
	assert.NotContains(t, out, "deadbeefcafe")
	assert.NotContains(t, out, "alice@example.com")
}

func TestLogNotifier_ShowLinkLogsAtDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf).Level(zerolog.DebugLevel)
	n := LogNotifier{Logger: &lg, ShowLink: true}

	require.NoError(t, n.SendPasswordReset(context.Background(), sampleNotice()))
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), "deadbeefcafe")

	buf.Reset()
	info := zerolog.New(&buf).Level(zerolog.InfoLevel)
	n.Logger = &info
	require.NoError(t, n.SendPasswordReset(context.Background(), sampleNotice()))
	assert.NotContains(t, buf.String(), "deadbeefcafe")
}
