package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/domain"
)

func TestModeMixer(t *testing.T) {
	user := []domain.Value{domain.Number(0.1), domain.Number(0.2)}
	pilot := []domain.Value{domain.Number(-0.5), domain.Number(0.9)}

	tests := []struct {
		mode          string
		angle, thrott domain.Value
	}{
		{domain.ModeUser, user[0], user[1]},
		{domain.ModeLocalAngle, pilot[0], user[1]},
		{domain.ModeLocal, pilot[0], pilot[1]},
		{"", pilot[0], pilot[1]},
	}

	m := ModeMixer()
	in, out := m.Arity()
	assert.Equal(t, len(Inputs), in)
	assert.Equal(t, len(Outputs), out)

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			res, err := m.Invoke(context.Background(), []domain.Value{
				domain.Text(tt.mode), user[0], user[1], pilot[0], pilot[1],
			})
			require.NoError(t, err)
			assert.Equal(t, []domain.Value{tt.angle, tt.thrott}, res)
		})
	}
}
