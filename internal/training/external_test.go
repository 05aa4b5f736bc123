//go:build unix

package training

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/adapters/process"
	"github.com/aretw0/vehicle/pkg/parts/pilot"
)

func TestRun_External(t *testing.T) {
	script := `test "$VEHICLE_ARG_TYPE" = rnn || exit 2
echo "{\"train\": 80, \"validation\": 20, \"steps_per_epoch\": 5, \"val_loss\": 0.25, \"tubs\": \"$VEHICLE_ARG_TUBS\"}"`

	rep, err := Run(context.Background(), Job{
		Tubs:      []string{"a", "b"},
		ModelPath: "rnn.h5",
		Type:      pilot.TypeRNN,
		BatchSize: 16,
		TrainFrac: 0.8,
		External:  process.Config{Command: "sh", Args: []string{"-c", script}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80, rep.Train)
	assert.Equal(t, 20, rep.Validation)
	assert.Equal(t, 5, rep.StepsPerEpoch)
	assert.Equal(t, 0.25, rep.ValMSE)
}
