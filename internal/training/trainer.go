package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aretw0/vehicle/pkg/parts/pilot"
)

// Trainer fits both linear heads of a pilot model in closed form.
//
// The normal equations are accumulated one batch at a time, so memory stays
// bounded by the feature count. With base weights w0 the penalty is
// ridge*|w - w0|^2, which makes a base model a prior rather than a mere
// starting point. Feature dropout at rate p is applied in expectation, which
// for a linear model adds p/(1-p) * diag(XᵀX) to the penalty.
type Trainer struct {
	Ridge     float64
	BatchSize int
	Logger    *slog.Logger
}

// Report summarizes a training run.
type Report struct {
	Train         int
	Validation    int
	Skipped       int
	StepsPerEpoch int
	TrainMSE      float64
	ValMSE        float64
	Duration      time.Duration
}

// NewTrainer creates a trainer with the given ridge penalty and batch size.
func NewTrainer(ridge float64, batchSize int) *Trainer {
	return &Trainer{
		Ridge:     ridge,
		BatchSize: batchSize,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Fit trains a model of variant v on train and scores it on val.
// base may be nil.
func (t *Trainer) Fit(ctx context.Context, v pilot.Variant, train, val []Sample, base *pilot.Model) (*pilot.Model, Report, error) {
	start := time.Now()
	rep := Report{Train: len(train), Validation: len(val)}
	if len(train) == 0 {
		return nil, rep, errors.New("empty training set")
	}
	if t.BatchSize <= 0 {
		return nil, rep, fmt.Errorf("batch size must be positive, got %d", t.BatchSize)
	}
	if base != nil && base.Features != v.Features {
		return nil, rep, fmt.Errorf("base model features %+v do not match %s features %+v", base.Features, v.Name, v.Features)
	}
	rep.StepsPerEpoch = len(train) / t.BatchSize

	d := v.Features.Len() + 1 // last column is the bias
	xtx := mat.NewDense(d, d, nil)
	xty := mat.NewDense(d, 2, nil)

	// 1. Accumulate normal equations batch by batch
	for lo := 0; lo < len(train); lo += t.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		hi := min(lo+t.BatchSize, len(train))
		x, y := design(train[lo:hi], d)

		var bxx, bxy mat.Dense
		bxx.Mul(x.T(), x)
		bxy.Mul(x.T(), y)
		xtx.Add(xtx, &bxx)
		xty.Add(xty, &bxy)

		t.Logger.Debug("batch accumulated", "from", lo, "to", hi)
	}

	// 2. Regularize (the bias is never penalized)
	prior := mat.NewDense(d, 2, nil)
	if base != nil {
		for i := 0; i < d-1; i++ {
			prior.Set(i, 0, base.AngleWeights[i])
			prior.Set(i, 1, base.ThrottleWeights[i])
		}
	}
	keep := 1 - v.Dropout
	for i := 0; i < d-1; i++ {
		penalty := t.Ridge
		if v.Dropout > 0 && keep > 0 {
			penalty += v.Dropout / keep * xtx.At(i, i)
		}
		xtx.Set(i, i, xtx.At(i, i)+penalty)
		xty.Set(i, 0, xty.At(i, 0)+t.Ridge*prior.At(i, 0))
		xty.Set(i, 1, xty.At(i, 1)+t.Ridge*prior.At(i, 1))
	}

	// 3. Solve
	w, err := solve(xtx, xty)
	if err != nil {
		return nil, rep, fmt.Errorf("solve normal equations: %w", err)
	}

	m := pilot.NewModel(v)
	for i := 0; i < d-1; i++ {
		m.AngleWeights[i] = w.At(i, 0)
		m.ThrottleWeights[i] = w.At(i, 1)
	}
	m.AngleBias = w.At(d-1, 0)
	m.ThrottleBias = w.At(d-1, 1)
	m.Samples = len(train)
	m.TrainedAt = time.Now().UTC()

	rep.TrainMSE = MSE(m, train)
	rep.ValMSE = MSE(m, val)
	rep.Duration = time.Since(start)
	return m, rep, nil
}

// MSE is the mean squared error of m over both outputs, or 0 for no samples.
func MSE(m *pilot.Model, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sq := make([]float64, 0, 2*len(samples))
	for _, s := range samples {
		a, th := m.Predict(s.X)
		sq = append(sq, (a-s.Angle)*(a-s.Angle), (th-s.Throttle)*(th-s.Throttle))
	}
	return stat.Mean(sq, nil)
}

func design(batch []Sample, d int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(len(batch), d, nil)
	y := mat.NewDense(len(batch), 2, nil)
	for r, s := range batch {
		x.SetRow(r, append(append(make([]float64, 0, d), s.X...), 1))
		y.Set(r, 0, s.Angle)
		y.Set(r, 1, s.Throttle)
	}
	return x, y
}

func solve(a, b *mat.Dense) (*mat.Dense, error) {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}

	var w mat.Dense
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveTo(&w, b); err == nil {
			return &w, nil
		}
	}
	// Not positive definite (no ridge and collinear features): least squares.
	if err := w.Solve(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
		// Ill-conditioned: the solution is usable but imprecise.
	}
	return &w, nil
}
