package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/orchestrator"
	"github.com/oss-vizier/core/internal/policy"
	"github.com/oss-vizier/core/internal/policy/policytest"
	"github.com/oss-vizier/core/pkg/model"
)

func newFixture(t *testing.T, now func() time.Time) (*orchestrator.Orchestrator, *db.Memory, *policytest.Fake, *model.Study) {
	t.Helper()
	store := db.NewMemory()
	pol := &policytest.Fake{}
	opts := []orchestrator.Option{orchestrator.WithEarlyStopRecyclePeriod(50 * time.Millisecond)}
	if now != nil {
		opts = append(opts, orchestrator.WithClock(now))
	}
	orch := orchestrator.New(store, pol, opts...)

	study, err := orch.CreateStudy(context.Background(), "owners/owner1", &model.Study{
		DisplayName: "s1",
		Spec: model.StudySpec{
			SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
				{Name: "x", Type: model.ParameterTypeDouble, Bounds: &model.Bounds{Min: 0, Max: 1}},
			}},
			Metrics: []model.MetricSpec{{MetricID: "m", Goal: model.GoalMaximize}},
		},
	})
	require.NoError(t, err)
	return orch, store, pol, study
}

func TestSuggestTrialsFromPolicy(t *testing.T) {
	orch, _, pol, study := newFixture(t, nil)
	pol.SuggestFunc = func(_ context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error) {
		require.Equal(t, 2, req.Count)
		return policy.SuggestDecision{Suggestions: []policy.Suggestion{
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.7)}},
		}}, nil
	}

	op, err := orch.SuggestTrials(context.Background(), study.Name, "c1", 2)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Nil(t, op.Err)
	require.Len(t, op.Response.Trials, 2)
	for i, trial := range op.Response.Trials {
		require.Equal(t, model.TrialActive, trial.State)
		require.Equal(t, "c1", trial.ClientID)
		require.EqualValues(t, i+1, trial.TrialID)
	}
	require.Equal(t, 1, pol.SuggestCallCount())
}

func TestSuggestTrialsIdempotentRetry(t *testing.T) {
	orch, _, pol, study := newFixture(t, nil)
	pol.SuggestFunc = func(_ context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error) {
		return policy.SuggestDecision{Suggestions: []policy.Suggestion{
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.7)}},
		}}, nil
	}

	first, err := orch.SuggestTrials(context.Background(), study.Name, "c1", 2)
	require.NoError(t, err)

	second, err := orch.SuggestTrials(context.Background(), study.Name, "c1", 2)
	require.NoError(t, err)

	require.Equal(t, first.Name, second.Name)
	if diff := cmp.Diff(first.Response.Trials, second.Response.Trials, cmp.Comparer(equalParameterValue)); diff != "" {
		t.Fatalf("retry returned a different trial set (-first +second):\n%s", diff)
	}
	require.Equal(t, 1, pol.SuggestCallCount(), "idempotent retry must not re-consult the policy")
}

// equalParameterValue lets go-cmp compare model.ParameterValue, whose
// fields are unexported.
func equalParameterValue(a, b model.ParameterValue) bool {
	return a.IsString() == b.IsString() && a.AsString() == b.AsString()
}

func TestSuggestTrialsPolicyOverflow(t *testing.T) {
	orch, store, pol, study := newFixture(t, nil)
	pol.SuggestFunc = func(_ context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error) {
		require.Equal(t, 1, req.Count)
		return policy.SuggestDecision{Suggestions: []policy.Suggestion{
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.1)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.2)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}},
		}}, nil
	}

	op, err := orch.SuggestTrials(context.Background(), study.Name, "c2", 1)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Len(t, op.Response.Trials, 1)

	allTrials, err := store.ListTrials(context.Background(), study.Name)
	require.NoError(t, err)
	var requested int
	for _, tr := range allTrials {
		if tr.State == model.TrialRequested {
			requested++
			require.Empty(t, tr.ClientID)
		}
	}
	require.Equal(t, 2, requested, "overflow suggestions must persist as distinct REQUESTED trials")
}

func TestSuggestTrialsReusesRequestedPool(t *testing.T) {
	orch, _, pol, study := newFixture(t, nil)
	pol.SuggestFunc = func(_ context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error) {
		return policy.SuggestDecision{Suggestions: []policy.Suggestion{
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.1)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.2)}},
			{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}},
		}}, nil
	}
	_, err := orch.SuggestTrials(context.Background(), study.Name, "c2", 1)
	require.NoError(t, err)
	require.Equal(t, 1, pol.SuggestCallCount())

	op, err := orch.SuggestTrials(context.Background(), study.Name, "c3", 2)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Len(t, op.Response.Trials, 2)
	for _, trial := range op.Response.Trials {
		require.Equal(t, model.TrialActive, trial.State)
		require.Equal(t, "c3", trial.ClientID)
	}
	require.Equal(t, 1, pol.SuggestCallCount(), "source B reuse must not consult the policy again")
}

func TestCheckTrialEarlyStoppingStateCachingAndRecycle(t *testing.T) {
	clockTime := time.Now()
	clock := func() time.Time { return clockTime }
	orch, _, pol, study := newFixture(t, clock)

	calls := 0
	pol.EarlyStopFunc = func(_ context.Context, req policy.EarlyStopRequest) (policy.EarlyStopResult, error) {
		calls++
		shouldStop := calls == 1
		return policy.EarlyStopResult{Decisions: []policy.EarlyStopDecision{
			{TrialID: req.TrialID, ShouldStop: shouldStop},
		}}, nil
	}

	trial, err := orch.CreateTrial(context.Background(), study.Name, &model.Trial{})
	require.NoError(t, err)
	trialName := trial.Name

	stop, err := orch.CheckTrialEarlyStoppingState(context.Background(), trialName)
	require.NoError(t, err)
	require.True(t, stop)
	require.Equal(t, 1, pol.EarlyStopCallCount())

	// Immediate recall: cached, no second policy call.
	stop, err = orch.CheckTrialEarlyStoppingState(context.Background(), trialName)
	require.NoError(t, err)
	require.True(t, stop)
	require.Equal(t, 1, pol.EarlyStopCallCount())

	// Elapse the recycle period.
	clockTime = clockTime.Add(100 * time.Millisecond)
	stop, err = orch.CheckTrialEarlyStoppingState(context.Background(), trialName)
	require.NoError(t, err)
	require.False(t, stop)
	require.Equal(t, 2, pol.EarlyStopCallCount())
}

func TestCompleteTrialWithoutMeasurementIsInvalidArgument(t *testing.T) {
	orch, _, _, study := newFixture(t, nil)
	trial, err := orch.CreateTrial(context.Background(), study.Name, &model.Trial{})
	require.NoError(t, err)

	_, err = orch.CompleteTrial(context.Background(), trial.Name, orchestrator.CompleteTrialRequest{
		TrialInfeasible: false,
	})
	require.Error(t, err)
	require.Equal(t, model.CodeOf(err).String(), "InvalidArgument")
}

func TestListOptimalTrialsParetoFrontier(t *testing.T) {
	orch, _, _, study := newFixture(t, nil)
	ctx := context.Background()

	makeSucceeded := func(x, m float64) {
		trial, err := orch.CreateTrial(ctx, study.Name, &model.Trial{})
		require.NoError(t, err)
		_, err = orch.CompleteTrial(ctx, trial.Name, orchestrator.CompleteTrialRequest{
			FinalMeasurement: &model.Measurement{Metrics: map[string]float64{"m": m}},
		})
		require.NoError(t, err)
		_ = x
	}
	makeSucceeded(0.1, 1.0)
	makeSucceeded(0.2, 2.0) // dominates the first on a MAXIMIZE metric
	makeSucceeded(0.3, 0.5)

	optimal, err := orch.ListOptimalTrials(ctx, study.Name)
	require.NoError(t, err)
	require.Len(t, optimal, 1)
	require.Equal(t, 2.0, optimal[0].FinalMeasurement.Metrics["m"])
}

func TestStopTrialIsNoOpOnTerminalTrial(t *testing.T) {
	orch, _, _, study := newFixture(t, nil)
	ctx := context.Background()
	trial, err := orch.CreateTrial(ctx, study.Name, &model.Trial{})
	require.NoError(t, err)
	_, err = orch.CompleteTrial(ctx, trial.Name, orchestrator.CompleteTrialRequest{
		FinalMeasurement: &model.Measurement{Metrics: map[string]float64{"m": 1}},
	})
	require.NoError(t, err)

	stopped, err := orch.StopTrial(ctx, trial.Name)
	require.NoError(t, err)
	require.Equal(t, model.TrialSucceeded, stopped.State, "terminal trials must not be overwritten by StopTrial")
}

func TestCreateStudyRejectsParameterMissingBounds(t *testing.T) {
	store := db.NewMemory()
	orch := orchestrator.New(store, &policytest.Fake{})

	_, err := orch.CreateStudy(context.Background(), "owners/owner1", &model.Study{
		DisplayName: "bad",
		Spec: model.StudySpec{
			SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
				{Name: "x", Type: model.ParameterTypeDouble},
			}},
			Metrics: []model.MetricSpec{{MetricID: "m", Goal: model.GoalMaximize}},
		},
	})
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, model.CodeOf(err))
}

func TestCreateStudyRejectsCategoricalWithoutFeasibleValues(t *testing.T) {
	store := db.NewMemory()
	orch := orchestrator.New(store, &policytest.Fake{})

	_, err := orch.CreateStudy(context.Background(), "owners/owner1", &model.Study{
		DisplayName: "bad",
		Spec: model.StudySpec{
			SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
				{Name: "color", Type: model.ParameterTypeCategorical},
			}},
			Metrics: []model.MetricSpec{{MetricID: "m", Goal: model.GoalMaximize}},
		},
	})
	require.Error(t, err)
}
