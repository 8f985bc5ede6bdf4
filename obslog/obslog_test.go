package obslog_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dflrisk/odfengine/config"
	"github.com/dflrisk/odfengine/obslog"
)

func TestInfoWritesMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := obslog.New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	logger.Info("evaluated query", map[string]any{"index": 2})

	out := buf.String()
	assert.Contains(t, out, "evaluated query")
	assert.Contains(t, out, `"index":2`)
}

func TestWarnLevelSuppressesInfoWhenConfiguredAboveIt(t *testing.T) {
	var buf bytes.Buffer
	logger := obslog.New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("should not appear", nil)
	logger.Warn("configuration entry unused", map[string]any{"name": "srv.exposed"})

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "configuration entry unused")
}

func TestWithFieldTagsSubsequentMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := obslog.New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	child := logger.WithField("query_index", 3)
	child.Info("done", nil)

	assert.Contains(t, buf.String(), `"query_index":3`)
}
