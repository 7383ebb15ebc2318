package logger

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit_Level(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	Init("debug", false)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	Init("nonsense", true)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestFromContext(t *testing.T) {
	entry := logrus.WithField("request_id", "abc")
	ctx := WithContext(context.Background(), entry)
	assert.Equal(t, "abc", FromContext(ctx).Data["request_id"])

	assert.NotNil(t, FromContext(context.Background()))
}
