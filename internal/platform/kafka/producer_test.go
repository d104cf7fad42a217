package kafka

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "kudose.audit", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
