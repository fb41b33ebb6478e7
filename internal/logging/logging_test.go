package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", "json")
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("asset_id", 7).Info("asset valued")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "asset valued", line["msg"])
	require.EqualValues(t, 7, line["asset_id"])

	buf.Reset()
	log = newLogger(&buf, "warn", "TEXT")
	log.Info("hidden")
	log.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `msg=shown`)
}

func TestNewUnknownLevel(t *testing.T) {
	require.Equal(t, logrus.InfoLevel, New("loud", "").GetLevel())
}
