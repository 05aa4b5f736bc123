package camera

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/domain"
)

func TestRender(t *testing.T) {
	f := Render(32, 16, 3, 7)
	require.NoError(t, f.Validate())
	assert.Equal(t, uint64(7), f.Seq)

	var bright int
	for x := 0; x < f.Width; x++ {
		if f.At(x, 0, 0) == 255 {
			bright++
		}
	}
	assert.Equal(t, 5, bright, "stripe is five pixels wide")
	assert.NotEqual(t, Render(32, 16, 3, 1).Pix, Render(32, 16, 3, 40).Pix)
}

func TestSimulated_ProducesFrames(t *testing.T) {
	cam := NewSimulated(WithResolution(8, 6), WithFPS(500), WithGrayscale())

	initial := cam.Latest()
	require.Len(t, initial, 1)
	assert.True(t, initial[0].IsNone())

	require.NoError(t, cam.Start(context.Background(), nil))
	require.Eventually(t, func() bool {
		return cam.Latest()[0].Kind() == domain.KindFrame
	}, time.Second, time.Millisecond)

	cam.Stop()
	require.NoError(t, cam.Wait())

	f, ok := cam.Latest()[0].Frame()
	require.True(t, ok)
	assert.Equal(t, 1, f.Channels)
	assert.Equal(t, 8, f.Width)
	assert.Positive(t, f.Seq)
}
