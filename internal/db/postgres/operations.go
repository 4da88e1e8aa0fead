package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

type suggestionOpRow struct {
	OwnerID    string                                  `db:"owner_id"`
	StudyID    string                                  `db:"study_id"`
	ClientID   string                                  `db:"client_id"`
	OpNumber   int64                                   `db:"op_number"`
	Done       bool                                    `db:"done"`
	Response   jsonColumn[*model.SuggestTrialsResponse] `db:"response"`
	Err        jsonColumn[*model.Error]                `db:"err"`
	CreateTime sql.NullTime                            `db:"create_time"`
}

func (r suggestionOpRow) toModel() *model.SuggestionOperation {
	op := &model.SuggestionOperation{
		Name:     resources.SuggestionOperationName(r.OwnerID, r.StudyID, r.ClientID, r.OpNumber),
		OwnerID:  r.OwnerID,
		StudyID:  r.StudyID,
		ClientID: r.ClientID,
		OpNumber: r.OpNumber,
		Done:     r.Done,
		Response: r.Response.V,
		Err:      r.Err.V,
	}
	if r.CreateTime.Valid {
		op.CreateTime = r.CreateTime.Time
	}
	return op
}

func suggestionOpArgs(op *model.SuggestionOperation) []interface{} {
	var createTime sql.NullTime
	if !op.CreateTime.IsZero() {
		createTime = sql.NullTime{Time: op.CreateTime, Valid: true}
	}
	return []interface{}{
		op.OwnerID, op.StudyID, op.ClientID, op.OpNumber, op.Done,
		jsonColumn[*model.SuggestTrialsResponse]{V: op.Response},
		jsonColumn[*model.Error]{V: op.Err},
		createTime,
	}
}

// CreateSuggestionOperation implements db.Datastore.
func (db *PG) CreateSuggestionOperation(ctx context.Context, op *model.SuggestionOperation) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO suggestion_operations (owner_id, study_id, client_id, op_number, done, response, err, create_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, suggestionOpArgs(op)...)
	if err != nil {
		return fmt.Errorf("inserting suggestion operation %q: %w", op.Name, err)
	}
	return nil
}

// GetSuggestionOperation implements db.Datastore.
func (db *PG) GetSuggestionOperation(ctx context.Context, name string) (*model.SuggestionOperation, error) {
	o, perr := resources.ParseSuggestionOperation(name)
	if perr != nil {
		return nil, model.InvalidArgumentf("%s", perr)
	}
	var rows []suggestionOpRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, client_id, op_number, done, response, err, create_time
		FROM suggestion_operations WHERE owner_id = $1 AND study_id = $2 AND client_id = $3 AND op_number = $4`,
		&rows, o.OwnerID, o.StudyID, o.ClientID, o.OpNumber); err != nil {
		return nil, fmt.Errorf("loading suggestion operation %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, model.NotFoundf("operation %q not found", name)
	}
	return rows[0].toModel(), nil
}

// UpdateSuggestionOperation implements db.Datastore.
func (db *PG) UpdateSuggestionOperation(ctx context.Context, op *model.SuggestionOperation) error {
	tag, err := db.sql.ExecContext(ctx, `
		UPDATE suggestion_operations SET done = $1, response = $2, err = $3
		WHERE owner_id = $4 AND study_id = $5 AND client_id = $6 AND op_number = $7`,
		op.Done, jsonColumn[*model.SuggestTrialsResponse]{V: op.Response}, jsonColumn[*model.Error]{V: op.Err},
		op.OwnerID, op.StudyID, op.ClientID, op.OpNumber)
	if err != nil {
		return fmt.Errorf("updating suggestion operation %q: %w", op.Name, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	return nil
}

// ListSuggestionOperations implements db.Datastore. The filter runs
// client-side, same as the in-memory backend: the predicate is a Go
// closure, not a SQL fragment.
func (db *PG) ListSuggestionOperations(
	ctx context.Context, studyName, clientID string, filter dbFilter,
) ([]*model.SuggestionOperation, error) {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return nil, err
	}
	var rows []suggestionOpRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, client_id, op_number, done, response, err, create_time
		FROM suggestion_operations WHERE owner_id = $1 AND study_id = $2 AND client_id = $3`,
		&rows, ownerID, studyID, clientID); err != nil {
		return nil, fmt.Errorf("listing suggestion operations for %q/%q: %w", studyName, clientID, err)
	}
	var out []*model.SuggestionOperation
	for _, r := range rows {
		op := r.toModel()
		if filter == nil || filter(op) {
			out = append(out, op)
		}
	}
	return out, nil
}

// MaxSuggestionOperationNumber implements db.Datastore.
func (db *PG) MaxSuggestionOperationNumber(ctx context.Context, studyName, clientID string) (int64, error) {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return 0, err
	}
	var max sql.NullInt64
	if err := db.sql.GetContext(ctx, &max, `
		SELECT MAX(op_number) FROM suggestion_operations WHERE owner_id = $1 AND study_id = $2 AND client_id = $3`,
		ownerID, studyID, clientID); err != nil {
		return 0, fmt.Errorf("reading max suggestion operation number for %q/%q: %w", studyName, clientID, err)
	}
	return max.Int64, nil
}

type earlyStopRow struct {
	OwnerID        string       `db:"owner_id"`
	StudyID        string       `db:"study_id"`
	TrialID        int64        `db:"trial_id"`
	Status         int          `db:"status"`
	ShouldStop     bool         `db:"should_stop"`
	CreateTime     sql.NullTime `db:"create_time"`
	CompletionTime sql.NullTime `db:"completion_time"`
}

func (r earlyStopRow) toModel() *model.EarlyStoppingOperation {
	op := &model.EarlyStoppingOperation{
		Name:       resources.EarlyStoppingOperationName(r.OwnerID, r.StudyID, r.TrialID),
		OwnerID:    r.OwnerID,
		StudyID:    r.StudyID,
		TrialID:    r.TrialID,
		Status:     model.EarlyStoppingStatus(r.Status),
		ShouldStop: r.ShouldStop,
	}
	if r.CreateTime.Valid {
		op.CreateTime = r.CreateTime.Time
	}
	if r.CompletionTime.Valid {
		op.CompletionTime = r.CompletionTime.Time
	}
	return op
}

// CreateEarlyStoppingOperation implements db.Datastore.
func (db *PG) CreateEarlyStoppingOperation(ctx context.Context, op *model.EarlyStoppingOperation) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO early_stopping_operations (owner_id, study_id, trial_id, status, should_stop, create_time, completion_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		op.OwnerID, op.StudyID, op.TrialID, int(op.Status), op.ShouldStop,
		nullTime(op.CreateTime), nullTime(op.CompletionTime))
	if err != nil {
		return fmt.Errorf("inserting early stopping operation %q: %w", op.Name, err)
	}
	return nil
}

// GetEarlyStoppingOperation implements db.Datastore.
func (db *PG) GetEarlyStoppingOperation(ctx context.Context, name string) (*model.EarlyStoppingOperation, error) {
	o, perr := resources.ParseEarlyStoppingOperation(name)
	if perr != nil {
		return nil, model.InvalidArgumentf("%s", perr)
	}
	var rows []earlyStopRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, trial_id, status, should_stop, create_time, completion_time
		FROM early_stopping_operations WHERE owner_id = $1 AND study_id = $2 AND trial_id = $3`,
		&rows, o.OwnerID, o.StudyID, o.TrialID); err != nil {
		return nil, fmt.Errorf("loading early stopping operation %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, model.NotFoundf("operation %q not found", name)
	}
	return rows[0].toModel(), nil
}

// UpdateEarlyStoppingOperation implements db.Datastore.
func (db *PG) UpdateEarlyStoppingOperation(ctx context.Context, op *model.EarlyStoppingOperation) error {
	tag, err := db.sql.ExecContext(ctx, `
		UPDATE early_stopping_operations SET status = $1, should_stop = $2, completion_time = $3
		WHERE owner_id = $4 AND study_id = $5 AND trial_id = $6`,
		int(op.Status), op.ShouldStop, nullTime(op.CompletionTime), op.OwnerID, op.StudyID, op.TrialID)
	if err != nil {
		return fmt.Errorf("updating early stopping operation %q: %w", op.Name, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// dbFilter is a local alias for db.SuggestionOperationFilter, kept
// short since it appears in several signatures in this file.
type dbFilter = db.SuggestionOperationFilter
