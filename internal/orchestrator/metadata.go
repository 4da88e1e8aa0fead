package orchestrator

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/oss-vizier/core/pkg/model"
)

// UpdateMetadata partitions delta into on-study and on-trial items and
// applies them atomically. A missing metadata target
// surfaces as a response field (errDetails), never as an RPC error;
// any other failure (malformed name, malformed item) is raised.
func (o *Orchestrator) UpdateMetadata(
	ctx context.Context, studyName string, delta []model.MetadataItem,
) (errDetails string, err error) {
	var onStudy, onTrial []model.MetadataItem
	var invalid *multierror.Error
	for _, item := range delta {
		if item.Key == "" {
			invalid = multierror.Append(invalid, model.InvalidArgumentf("metadata item missing key"))
			continue
		}
		if item.TrialID == nil {
			onStudy = append(onStudy, item)
		} else {
			onTrial = append(onTrial, item)
		}
	}
	if invalid.ErrorOrNil() != nil {
		return "", invalid
	}

	if err := o.store.UpdateMetadata(ctx, studyName, onStudy, onTrial); err != nil {
		if model.IsNotFound(err) {
			return err.Error(), nil
		}
		return "", err
	}
	return "", nil
}
