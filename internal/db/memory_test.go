package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

func TestMemoryTrialLifecycle(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()

	require.NoError(t, store.CreateStudy(ctx, &model.Study{
		OwnerID: "o1", StudyID: "s1", DisplayName: "s1",
	}))

	id, err := store.ReserveNextTrialID(ctx, resources.StudyName("o1", "s1"))
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	trial := &model.Trial{
		OwnerID: "o1", StudyID: "s1", TrialID: id,
		Name:  resources.TrialName("o1", "s1", id),
		State: model.TrialRequested,
	}
	require.NoError(t, store.CreateTrial(ctx, trial))

	got, err := store.GetTrial(ctx, trial.Name)
	require.NoError(t, err)
	require.Equal(t, model.TrialRequested, got.State)

	got.State = model.TrialActive
	got.ClientID = "c1"
	require.NoError(t, store.UpdateTrial(ctx, got))

	reread, err := store.GetTrial(ctx, trial.Name)
	require.NoError(t, err)
	require.Equal(t, model.TrialActive, reread.State)
	require.Equal(t, "c1", reread.ClientID)

	max, err := store.MaxTrialID(ctx, resources.StudyName("o1", "s1"))
	require.NoError(t, err)
	require.Equal(t, int64(1), max)
}

func TestMemoryGetMissingTrialIsNotFound(t *testing.T) {
	store := db.NewMemory()
	_, err := store.GetTrial(context.Background(), resources.TrialName("o1", "s1", 1))
	require.True(t, model.IsNotFound(err))
}

func TestMemoryUpdateMetadataRejectsMissingTrial(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	require.NoError(t, store.CreateStudy(ctx, &model.Study{OwnerID: "o1", StudyID: "s1"}))

	missing := int64(99)
	err := store.UpdateMetadata(ctx, resources.StudyName("o1", "s1"), nil, []model.MetadataItem{
		{Key: "k", Value: "v", TrialID: &missing},
	})
	require.True(t, model.IsNotFound(err))
}

func TestMemoryReserveNextTrialIDIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	studyName := resources.StudyName("o1", "s1")
	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.ReserveNextTrialID(ctx, studyName)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}
