package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/oss-vizier/core/pkg/model"
)

type studyRow struct {
	OwnerID     string                           `db:"owner_id"`
	StudyID     string                           `db:"study_id"`
	DisplayName string                           `db:"display_name"`
	Spec        jsonColumn[model.StudySpec]      `db:"spec"`
	Metadata    jsonColumn[[]model.MetadataItem] `db:"metadata"`
	CreateTime  time.Time                        `db:"create_time"`
	NextTrialID int64                            `db:"next_trial_id"`
}

func (r studyRow) toModel() *model.Study {
	return &model.Study{
		Name:        fmt.Sprintf("owners/%s/studies/%s", r.OwnerID, r.StudyID),
		OwnerID:     r.OwnerID,
		StudyID:     r.StudyID,
		DisplayName: r.DisplayName,
		Spec:        r.Spec.V,
		CreateTime:  r.CreateTime,
		Metadata:    r.Metadata.V,
	}
}

// CreateStudy implements db.Datastore.
func (db *PG) CreateStudy(ctx context.Context, study *model.Study) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO studies (owner_id, study_id, display_name, spec, metadata, create_time, next_trial_id)
		VALUES ($1, $2, $3, $4, $5, $6, 0)`,
		study.OwnerID, study.StudyID, study.DisplayName,
		jsonColumn[model.StudySpec]{V: study.Spec},
		jsonColumn[[]model.MetadataItem]{V: study.Metadata},
		study.CreateTime)
	if err != nil {
		return fmt.Errorf("inserting study %q: %w", study.Name, err)
	}
	return nil
}

// LoadStudy implements db.Datastore.
func (db *PG) LoadStudy(ctx context.Context, name string) (*model.Study, error) {
	ownerID, studyID, err := studyKey(name)
	if err != nil {
		return nil, err
	}
	var rows []studyRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, display_name, spec, metadata, create_time, next_trial_id
		FROM studies WHERE owner_id = $1 AND study_id = $2`, &rows, ownerID, studyID); err != nil {
		return nil, fmt.Errorf("loading study %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, model.NotFoundf("study %q not found", name)
	}
	return rows[0].toModel(), nil
}

// ListStudies implements db.Datastore.
func (db *PG) ListStudies(ctx context.Context, ownerName string) ([]*model.Study, error) {
	owner, perr := parseOwner(ownerName)
	if perr != nil {
		return nil, perr
	}
	var rows []studyRow
	if err := db.queryRows(ctx, `
		SELECT owner_id, study_id, display_name, spec, metadata, create_time, next_trial_id
		FROM studies WHERE owner_id = $1`, &rows, owner); err != nil {
		return nil, fmt.Errorf("listing studies for %q: %w", ownerName, err)
	}
	out := make([]*model.Study, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// DeleteStudy implements db.Datastore. Trials and operations cascade
// via the foreign key constraints declared in the schema.
func (db *PG) DeleteStudy(ctx context.Context, name string) error {
	ownerID, studyID, err := studyKey(name)
	if err != nil {
		return err
	}
	tag, err := db.sql.ExecContext(ctx, `DELETE FROM studies WHERE owner_id = $1 AND study_id = $2`, ownerID, studyID)
	if err != nil {
		return fmt.Errorf("deleting study %q: %w", name, err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return model.NotFoundf("study %q not found", name)
	}
	return nil
}
