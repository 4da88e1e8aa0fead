package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oss-vizier/core/pkg/model"
)

// UpdateMetadata implements db.Datastore, applying the on-study and
// on-trial deltas inside a single transaction so the update is
// all-or-nothing, same contract as the in-memory backend.
func (db *PG) UpdateMetadata(ctx context.Context, studyName string, onStudy, onTrial []model.MetadataItem) error {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return err
	}

	tx, err := db.sql.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning metadata transaction for %q: %w", studyName, err)
	}
	defer tx.Rollback()

	var studyMeta jsonColumn[[]model.MetadataItem]
	row := tx.QueryRowxContext(ctx,
		`SELECT metadata FROM studies WHERE owner_id = $1 AND study_id = $2 FOR UPDATE`, ownerID, studyID)
	if err := row.Scan(&studyMeta); err != nil {
		if err == sql.ErrNoRows {
			return model.NotFoundf("study %q not found", studyName)
		}
		return fmt.Errorf("reading study metadata for %q: %w", studyName, err)
	}

	trialMeta := map[int64]jsonColumn[[]model.MetadataItem]{}
	for _, item := range onTrial {
		if item.TrialID == nil {
			return model.InvalidArgumentf("on-trial metadata item %q missing trial id", item.Key)
		}
		if _, ok := trialMeta[*item.TrialID]; ok {
			continue
		}
		var meta jsonColumn[[]model.MetadataItem]
		row := tx.QueryRowxContext(ctx,
			`SELECT metadata FROM trials WHERE owner_id = $1 AND study_id = $2 AND trial_id = $3 FOR UPDATE`,
			ownerID, studyID, *item.TrialID)
		if err := row.Scan(&meta); err != nil {
			if err == sql.ErrNoRows {
				return model.NotFoundf("metadata target trial %d not found in study %q", *item.TrialID, studyName)
			}
			return fmt.Errorf("reading trial metadata for %q trial %d: %w", studyName, *item.TrialID, err)
		}
		trialMeta[*item.TrialID] = meta
	}

	for _, item := range onStudy {
		setMetadataSlice(&studyMeta.V, item)
	}
	for _, item := range onTrial {
		meta := trialMeta[*item.TrialID]
		setMetadataSlice(&meta.V, item)
		trialMeta[*item.TrialID] = meta
	}

	if _, err := tx.ExecContext(ctx, `UPDATE studies SET metadata = $1 WHERE owner_id = $2 AND study_id = $3`,
		studyMeta, ownerID, studyID); err != nil {
		return fmt.Errorf("writing study metadata for %q: %w", studyName, err)
	}
	for trialID, meta := range trialMeta {
		if _, err := tx.ExecContext(ctx,
			`UPDATE trials SET metadata = $1 WHERE owner_id = $2 AND study_id = $3 AND trial_id = $4`,
			meta, ownerID, studyID, trialID); err != nil {
			return fmt.Errorf("writing trial metadata for %q trial %d: %w", studyName, trialID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metadata update for %q: %w", studyName, err)
	}
	return nil
}

func setMetadataSlice(items *[]model.MetadataItem, item model.MetadataItem) {
	for i, existing := range *items {
		if existing.Key == item.Key {
			(*items)[i] = item
			return
		}
	}
	*items = append(*items, item)
}
