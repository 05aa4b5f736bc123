package vehicle_test

import (
	"context"
	"fmt"

	"github.com/aretw0/vehicle"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/unit"
)

// ExampleVehicle_Start wires two parts and runs three ticks.
func ExampleVehicle_Start() {
	v := vehicle.New()

	var n float64
	counter := unit.Func(func(ctx context.Context, _ []domain.Value) ([]domain.Value, error) {
		n++
		return []domain.Value{domain.Number(n)}, nil
	})
	double := unit.Lambda(1, 1, func(args []domain.Value) []domain.Value {
		return []domain.Value{domain.Number(args[0].Float() * 2)}
	})

	v.MustAdd(counter, vehicle.Outputs("n"))
	v.MustAdd(double, vehicle.Inputs("n"), vehicle.Outputs("twice"))

	ticks, err := v.Start(context.Background(), 0, 3)
	if err != nil {
		panic(err)
	}
	fmt.Println(ticks, v.Bus().Get("twice"))
	// Output: 3 6
}

// ExampleVehicle_Tick steps a pipeline by hand.
func ExampleVehicle_Tick() {
	v := vehicle.New()
	sumDiff := unit.Lambda(2, 2, func(args []domain.Value) []domain.Value {
		a, b := args[0].Float(), args[1].Float()
		return []domain.Value{domain.Number(a + b), domain.Number(a - b)}
	})
	v.MustAdd(sumDiff, vehicle.Inputs("a", "b"), vehicle.Outputs("c", "d"))

	v.Bus().Set("a", domain.Number(1))
	v.Bus().Set("b", domain.Number(2))
	if err := v.Tick(context.Background()); err != nil {
		panic(err)
	}
	fmt.Println(v.Bus().Get("c"), v.Bus().Get("d"))
	// Output: 3 -1
}
