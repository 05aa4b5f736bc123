package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/domain"
)

func TestPilotCondition(t *testing.T) {
	tests := []struct {
		mode domain.Value
		want bool
	}{
		{domain.Text(domain.ModeUser), false},
		{domain.Text(domain.ModeLocalAngle), true},
		{domain.Text(domain.ModeLocal), true},
		{domain.None(), true},
	}
	p := PilotCondition()
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			res, err := p.Invoke(context.Background(), []domain.Value{tt.mode})
			require.NoError(t, err)
			assert.Equal(t, domain.Bool(tt.want), res[0])
		})
	}
}

func TestClamp(t *testing.T) {
	c := Clamp(-1, 1)
	for in, want := range map[float64]float64{-3: -1, 0.25: 0.25, 7: 1} {
		res, _ := c.Invoke(context.Background(), []domain.Value{domain.Number(in)})
		assert.Equal(t, domain.Number(want), res[0])
	}
	res, _ := c.Invoke(context.Background(), []domain.Value{domain.None()})
	assert.Equal(t, domain.Number(0), res[0])
}
