package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/distributor"
	"github.com/vk/qcdist/internal/solver"
)

func TestBuildKnownStrategies(t *testing.T) {
	r := New()
	deps := Deps{Partitioner: &solver.Static{}}
	for _, name := range r.Strategies() {
		t.Run(name, func(t *testing.T) {
			d, err := r.Build(&config.Workflow{Strategy: name}, deps)
			require.NoError(t, err)
			assert.NotNil(t, d)
		})
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	_, err := New().Build(&config.Workflow{Strategy: "gradient_descent"}, Deps{})
	assert.ErrorContains(t, err, `unknown strategy "gradient_descent"`)
}

func TestPartitioningNeedsSolver(t *testing.T) {
	_, err := New().Build(&config.Workflow{Strategy: "partitioning"}, Deps{})
	assert.ErrorContains(t, err, "needs a solver block")
}

func TestWorkflowKnobsReachThePipeline(t *testing.T) {
	d, err := New().Build(&config.Workflow{Strategy: "annealing", Seed: 5, Iterations: 123}, Deps{})
	require.NoError(t, err)
	p, ok := d.(*distributor.Pipeline)
	require.True(t, ok)
	assert.Equal(t, "annealing", p.Name)
}

func TestValidateModel(t *testing.T) {
	model := &config.Model{
		Workflows: []*config.Workflow{
			{Strategy: "annealing"},
			{Strategy: "routed"},
		},
	}
	require.NoError(t, New().Validate(model, Deps{}))

	model.Workflows = append(model.Workflows, &config.Workflow{Strategy: "nope"})
	assert.Error(t, New().Validate(model, Deps{}))
}

func TestRegisterCustomStrategy(t *testing.T) {
	r := New()
	r.Register("custom", func(*config.Workflow, Deps) (distributor.Distributor, error) {
		return distributor.NewBruteForce(), nil
	})
	assert.Contains(t, r.Strategies(), "custom")
	d, err := r.Build(&config.Workflow{Strategy: "custom"}, Deps{})
	require.NoError(t, err)
	assert.NotNil(t, d)
}
