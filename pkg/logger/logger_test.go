package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New("warn", "json", path)
	require.NoError(t, err)
	log.Info("破棄される")
	log.Warn("在庫警告", zap.String("product_id", "SKU001"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "破棄される")
	assert.Contains(t, string(data), `"product_id":"SKU001"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "json", "stdout")
	assert.Error(t, err)

	_, err = New("info", "xml", "stdout")
	assert.Error(t, err)
}

func TestNamed(t *testing.T) {
	assert.NotNil(t, Named(nil, "pipeline"))

	log := Named(zap.NewNop(), "pipeline")
	assert.NotNil(t, log)
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() { Must(New("info", "xml", "")) })
}
