package usage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUSampler(t *testing.T) {
	got, err := NewCPUSampler().Sample(context.Background())
	if err != nil {
		t.Skipf("cpu counters unavailable: %v", err)
	}
	require.NotEmpty(t, got)
	for i, c := range got {
		assert.Equal(t, i, c.ID)
		assert.GreaterOrEqual(t, c.Usage, 0.0)
		assert.LessOrEqual(t, c.Usage, 100.0)
	}
}
