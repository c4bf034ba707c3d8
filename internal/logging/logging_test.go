package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"Go2NetEntropy/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	var buf bytes.Buffer
	require.NoError(t, Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.WithField("experiment", "LP_busy").Debug("computed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "LP_busy", entry["experiment"])
	assert.Equal(t, "computed", entry["msg"])
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	assert.Error(t, Setup(config.LogConfig{Level: "loud", Format: "text"}, nil))
	assert.Error(t, Setup(config.LogConfig{Level: "info", Format: "xml"}, nil))
}
