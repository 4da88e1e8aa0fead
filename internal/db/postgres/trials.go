package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

type trialRow struct {
	OwnerID          string                           `db:"owner_id"`
	StudyID          string                           `db:"study_id"`
	TrialID          int64                            `db:"trial_id"`
	State            int                              `db:"state"`
	ClientID         string                           `db:"client_id"`
	StartTime        sql.NullTime                     `db:"start_time"`
	Parameters       jsonColumn[model.ParameterDict]  `db:"parameters"`
	Measurements     jsonColumn[[]model.Measurement]  `db:"measurements"`
	FinalMeasurement jsonColumn[*model.Measurement]   `db:"final_measurement"`
	InfeasibleReason string                           `db:"infeasible_reason"`
	Metadata         jsonColumn[[]model.MetadataItem] `db:"metadata"`
}

func (r trialRow) toModel() *model.Trial {
	t := &model.Trial{
		Name:             resources.TrialName(r.OwnerID, r.StudyID, r.TrialID),
		OwnerID:          r.OwnerID,
		StudyID:          r.StudyID,
		TrialID:          r.TrialID,
		State:            model.TrialState(r.State),
		ClientID:         r.ClientID,
		Parameters:       r.Parameters.V,
		Measurements:     r.Measurements.V,
		FinalMeasurement: r.FinalMeasurement.V,
		InfeasibleReason: r.InfeasibleReason,
		Metadata:         r.Metadata.V,
	}
	if r.StartTime.Valid {
		t.StartTime = r.StartTime.Time
	}
	return t
}

func trialArgs(trial *model.Trial) []interface{} {
	var startTime sql.NullTime
	if !trial.StartTime.IsZero() {
		startTime = sql.NullTime{Time: trial.StartTime, Valid: true}
	}
	return []interface{}{
		trial.OwnerID, trial.StudyID, trial.TrialID, int(trial.State), trial.ClientID, startTime,
		jsonColumn[model.ParameterDict]{V: trial.Parameters},
		jsonColumn[[]model.Measurement]{V: trial.Measurements},
		jsonColumn[*model.Measurement]{V: trial.FinalMeasurement},
		trial.InfeasibleReason,
		jsonColumn[[]model.MetadataItem]{V: trial.Metadata},
	}
}

// CreateTrial implements db.Datastore.
func (db *PG) CreateTrial(ctx context.Context, trial *model.Trial) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO trials (
			owner_id, study_id, trial_id, state, client_id, start_time,
			parameters, measurements, final_measurement, infeasible_reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, trialArgs(trial)...)
	if err != nil {
		return fmt.Errorf("inserting trial %q: %w", trial.Name, err)
	}
	return nil
}

// GetTrial implements db.Datastore.
func (db *PG) GetTrial(ctx context.Context, name string) (*model.Trial, error) {
	t, perr := resources.ParseTrial(name)
	if perr != nil {
		return nil, model.InvalidArgumentf("%s", perr)
	}
	var rows []trialRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, trial_id, state, client_id, start_time,
			parameters, measurements, final_measurement, infeasible_reason, metadata
		FROM trials WHERE owner_id = $1 AND study_id = $2 AND trial_id = $3`,
		&rows, t.OwnerID, t.StudyID, t.TrialID); err != nil {
		return nil, fmt.Errorf("loading trial %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, model.NotFoundf("trial %q not found", name)
	}
	return rows[0].toModel(), nil
}

// UpdateTrial implements db.Datastore.
func (db *PG) UpdateTrial(ctx context.Context, trial *model.Trial) error {
	args := append(trialArgs(trial)[3:], trial.OwnerID, trial.StudyID, trial.TrialID)
	tag, err := db.sql.ExecContext(ctx, `
		UPDATE trials SET
			state = $1, client_id = $2, start_time = $3,
			parameters = $4, measurements = $5, final_measurement = $6,
			infeasible_reason = $7, metadata = $8
		WHERE owner_id = $9 AND study_id = $10 AND trial_id = $11`, args...)
	if err != nil {
		return fmt.Errorf("updating trial %q: %w", trial.Name, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return model.NotFoundf("trial %q not found", trial.Name)
	}
	return nil
}

// ListTrials implements db.Datastore.
func (db *PG) ListTrials(ctx context.Context, studyName string) ([]*model.Trial, error) {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return nil, err
	}
	var rows []trialRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, trial_id, state, client_id, start_time,
			parameters, measurements, final_measurement, infeasible_reason, metadata
		FROM trials WHERE owner_id = $1 AND study_id = $2`, &rows, ownerID, studyID); err != nil {
		return nil, fmt.Errorf("listing trials for %q: %w", studyName, err)
	}
	out := make([]*model.Trial, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// DeleteTrial implements db.Datastore.
func (db *PG) DeleteTrial(ctx context.Context, name string) error {
	t, perr := resources.ParseTrial(name)
	if perr != nil {
		return model.InvalidArgumentf("%s", perr)
	}
	tag, err := db.sql.ExecContext(ctx,
		`DELETE FROM trials WHERE owner_id = $1 AND study_id = $2 AND trial_id = $3`,
		t.OwnerID, t.StudyID, t.TrialID)
	if err != nil {
		return fmt.Errorf("deleting trial %q: %w", name, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return model.NotFoundf("trial %q not found", name)
	}
	return nil
}

// MaxTrialID implements db.Datastore.
func (db *PG) MaxTrialID(ctx context.Context, studyName string) (int64, error) {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return 0, err
	}
	var next int64
	if err := db.sql.GetContext(ctx, &next,
		`SELECT next_trial_id FROM studies WHERE owner_id = $1 AND study_id = $2`, ownerID, studyID); err != nil {
		if err == sql.ErrNoRows {
			return 0, model.NotFoundf("study %q not found", studyName)
		}
		return 0, fmt.Errorf("reading next trial id for %q: %w", studyName, err)
	}
	return next, nil
}

// ReserveNextTrialID implements db.Datastore. The UPDATE...RETURNING
// takes postgres's per-row lock, so this is atomic regardless of any
// orchestrator-level lock the caller holds.
func (db *PG) ReserveNextTrialID(ctx context.Context, studyName string) (int64, error) {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return 0, err
	}
	var next int64
	row := db.sql.QueryRowContext(ctx, `
		UPDATE studies SET next_trial_id = next_trial_id + 1
		WHERE owner_id = $1 AND study_id = $2
		RETURNING next_trial_id`, ownerID, studyID)
	if err := row.Scan(&next); err != nil {
		if err == sql.ErrNoRows {
			return 0, model.NotFoundf("study %q not found", studyName)
		}
		return 0, fmt.Errorf("reserving next trial id for %q: %w", studyName, err)
	}
	return next, nil
}
