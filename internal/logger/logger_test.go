package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	t.Cleanup(func() { Init(false, nil) })

	Component("activity").WithField("action", "create").Info("logged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "activity", entry["component"])
	assert.Equal(t, "create", entry["action"])
	assert.Equal(t, "logged", entry["msg"])
}

func TestInit_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(true, &buf)
	t.Cleanup(func() { Init(false, nil) })

	WithFields(logrus.Fields{"k": "v"}).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "k=v")
}

func TestRotatingWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w := RotatingWriter(dir, "szbi.log")
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "szbi.log"))
}
