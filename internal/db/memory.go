package db

import (
	"context"
	"sync"

	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

// Memory is an in-memory Datastore backed by nested maps. A single
// RWMutex keeps every operation atomic regardless of which
// orchestrator-level lock (if any) the caller is holding.
type Memory struct {
	mu sync.RWMutex

	// studies[ownerID][studyID]
	studies map[string]map[string]*model.Study
	// trials[studyName][trialID]
	trials map[string]map[int64]*model.Trial
	// nextTrialID[studyName]
	nextTrialID map[string]int64
	// suggestionOps[studyName][clientID][opNumber]
	suggestionOps map[string]map[string]map[int64]*model.SuggestionOperation
	// earlyStopOps[studyName][trialID]
	earlyStopOps map[string]map[int64]*model.EarlyStoppingOperation
}

// NewMemory returns an empty in-memory Datastore.
func NewMemory() *Memory {
	return &Memory{
		studies:       make(map[string]map[string]*model.Study),
		trials:        make(map[string]map[int64]*model.Trial),
		nextTrialID:   make(map[string]int64),
		suggestionOps: make(map[string]map[string]map[int64]*model.SuggestionOperation),
		earlyStopOps:  make(map[string]map[int64]*model.EarlyStoppingOperation),
	}
}

func studyKey(name string) (ownerID, studyID string, err error) {
	s, err := resources.ParseStudy(name)
	if err != nil {
		return "", "", err
	}
	return s.OwnerID, s.StudyID, nil
}

// CreateStudy implements Datastore.
func (m *Memory) CreateStudy(_ context.Context, study *model.Study) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStudy, ok := m.studies[study.OwnerID]
	if !ok {
		byStudy = make(map[string]*model.Study)
		m.studies[study.OwnerID] = byStudy
	}
	stored := *study
	byStudy[study.StudyID] = &stored
	return nil
}

// LoadStudy implements Datastore.
func (m *Memory) LoadStudy(_ context.Context, name string) (*model.Study, error) {
	ownerID, studyID, err := studyKey(name)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	study, ok := m.studies[ownerID][studyID]
	if !ok {
		return nil, model.NotFoundf("study %q not found", name)
	}
	stored := *study
	return &stored, nil
}

// ListStudies implements Datastore.
func (m *Memory) ListStudies(_ context.Context, ownerName string) ([]*model.Study, error) {
	owner, err := resources.ParseOwner(ownerName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Study
	for _, study := range m.studies[owner.OwnerID] {
		stored := *study
		out = append(out, &stored)
	}
	return out, nil
}

// DeleteStudy implements Datastore.
func (m *Memory) DeleteStudy(_ context.Context, name string) error {
	ownerID, studyID, err := studyKey(name)
	if err != nil {
		return model.InvalidArgumentf("%s", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.studies[ownerID][studyID]; !ok {
		return model.NotFoundf("study %q not found", name)
	}
	delete(m.studies[ownerID], studyID)
	delete(m.trials, name)
	delete(m.nextTrialID, name)
	delete(m.suggestionOps, name)
	delete(m.earlyStopOps, name)
	return nil
}

// CreateTrial implements Datastore.
func (m *Memory) CreateTrial(_ context.Context, trial *model.Trial) error {
	studyName := resources.StudyName(trial.OwnerID, trial.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byTrial, ok := m.trials[studyName]
	if !ok {
		byTrial = make(map[int64]*model.Trial)
		m.trials[studyName] = byTrial
	}
	byTrial[trial.TrialID] = trial.Clone()
	if trial.TrialID > m.nextTrialID[studyName] {
		m.nextTrialID[studyName] = trial.TrialID
	}
	return nil
}

// GetTrial implements Datastore.
func (m *Memory) GetTrial(_ context.Context, name string) (*model.Trial, error) {
	t, err := resources.ParseTrial(name)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trial, ok := m.trials[t.Study().Name()][t.TrialID]
	if !ok {
		return nil, model.NotFoundf("trial %q not found", name)
	}
	return trial.Clone(), nil
}

// UpdateTrial implements Datastore.
func (m *Memory) UpdateTrial(_ context.Context, trial *model.Trial) error {
	studyName := resources.StudyName(trial.OwnerID, trial.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byTrial, ok := m.trials[studyName]
	if !ok {
		return model.NotFoundf("trial %q not found", trial.Name)
	}
	if _, ok := byTrial[trial.TrialID]; !ok {
		return model.NotFoundf("trial %q not found", trial.Name)
	}
	byTrial[trial.TrialID] = trial.Clone()
	return nil
}

// ListTrials implements Datastore.
func (m *Memory) ListTrials(_ context.Context, studyName string) ([]*model.Trial, error) {
	if _, _, err := studyKey(studyName); err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Trial
	for _, trial := range m.trials[studyName] {
		out = append(out, trial.Clone())
	}
	return out, nil
}

// DeleteTrial implements Datastore.
func (m *Memory) DeleteTrial(_ context.Context, name string) error {
	t, err := resources.ParseTrial(name)
	if err != nil {
		return model.InvalidArgumentf("%s", err)
	}
	studyName := t.Study().Name()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trials[studyName][t.TrialID]; !ok {
		return model.NotFoundf("trial %q not found", name)
	}
	delete(m.trials[studyName], t.TrialID)
	return nil
}

// MaxTrialID implements Datastore. Returns 0 if the study has no
// trials.
func (m *Memory) MaxTrialID(_ context.Context, studyName string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextTrialID[studyName], nil
}

// ReserveNextTrialID implements Datastore: it atomically increments
// and returns the next trial id for studyName, regardless of which
// external lock (if any) the caller holds.
func (m *Memory) ReserveNextTrialID(_ context.Context, studyName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTrialID[studyName]++
	return m.nextTrialID[studyName], nil
}

// CreateSuggestionOperation implements Datastore.
func (m *Memory) CreateSuggestionOperation(_ context.Context, op *model.SuggestionOperation) error {
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byClient, ok := m.suggestionOps[studyName]
	if !ok {
		byClient = make(map[string]map[int64]*model.SuggestionOperation)
		m.suggestionOps[studyName] = byClient
	}
	byOp, ok := byClient[op.ClientID]
	if !ok {
		byOp = make(map[int64]*model.SuggestionOperation)
		byClient[op.ClientID] = byOp
	}
	stored := *op
	byOp[op.OpNumber] = &stored
	return nil
}

// GetSuggestionOperation implements Datastore.
func (m *Memory) GetSuggestionOperation(_ context.Context, name string) (*model.SuggestionOperation, error) {
	op, err := resources.ParseSuggestionOperation(name)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.suggestionOps[studyName][op.ClientID][op.OpNumber]
	if !ok {
		return nil, model.NotFoundf("operation %q not found", name)
	}
	clone := *stored
	return &clone, nil
}

// UpdateSuggestionOperation implements Datastore.
func (m *Memory) UpdateSuggestionOperation(_ context.Context, op *model.SuggestionOperation) error {
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byOp, ok := m.suggestionOps[studyName][op.ClientID]
	if !ok {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	if _, ok := byOp[op.OpNumber]; !ok {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	stored := *op
	byOp[op.OpNumber] = &stored
	return nil
}

// ListSuggestionOperations implements Datastore.
func (m *Memory) ListSuggestionOperations(
	_ context.Context, studyName, clientID string, filter SuggestionOperationFilter,
) ([]*model.SuggestionOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SuggestionOperation
	for _, op := range m.suggestionOps[studyName][clientID] {
		if filter == nil || filter(op) {
			clone := *op
			out = append(out, &clone)
		}
	}
	return out, nil
}

// MaxSuggestionOperationNumber implements Datastore. Returns 0 if none
// exist.
func (m *Memory) MaxSuggestionOperationNumber(_ context.Context, studyName, clientID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var max int64
	for n := range m.suggestionOps[studyName][clientID] {
		if n > max {
			max = n
		}
	}
	return max, nil
}

// CreateEarlyStoppingOperation implements Datastore.
func (m *Memory) CreateEarlyStoppingOperation(_ context.Context, op *model.EarlyStoppingOperation) error {
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byTrial, ok := m.earlyStopOps[studyName]
	if !ok {
		byTrial = make(map[int64]*model.EarlyStoppingOperation)
		m.earlyStopOps[studyName] = byTrial
	}
	stored := *op
	byTrial[op.TrialID] = &stored
	return nil
}

// GetEarlyStoppingOperation implements Datastore.
func (m *Memory) GetEarlyStoppingOperation(_ context.Context, name string) (*model.EarlyStoppingOperation, error) {
	op, err := resources.ParseEarlyStoppingOperation(name)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.earlyStopOps[studyName][op.TrialID]
	if !ok {
		return nil, model.NotFoundf("operation %q not found", name)
	}
	clone := *stored
	return &clone, nil
}

// UpdateEarlyStoppingOperation implements Datastore.
func (m *Memory) UpdateEarlyStoppingOperation(_ context.Context, op *model.EarlyStoppingOperation) error {
	studyName := resources.StudyName(op.OwnerID, op.StudyID)
	m.mu.Lock()
	defer m.mu.Unlock()
	byTrial, ok := m.earlyStopOps[studyName]
	if !ok {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	if _, ok := byTrial[op.TrialID]; !ok {
		return model.NotFoundf("operation %q not found", op.Name)
	}
	stored := *op
	byTrial[op.TrialID] = &stored
	return nil
}

// UpdateMetadata implements Datastore.
func (m *Memory) UpdateMetadata(
	_ context.Context, studyName string, onStudy, onTrial []model.MetadataItem,
) error {
	ownerID, studyID, err := studyKey(studyName)
	if err != nil {
		return model.InvalidArgumentf("%s", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	study, ok := m.studies[ownerID][studyID]
	if !ok {
		return model.NotFoundf("study %q not found", studyName)
	}

	// Validate every trial-targeted item resolves before mutating
	// anything, so the update is all-or-nothing.
	for _, item := range onTrial {
		if item.TrialID == nil {
			return model.InvalidArgumentf("on-trial metadata item %q missing trial id", item.Key)
		}
		if _, ok := m.trials[studyName][*item.TrialID]; !ok {
			return model.NotFoundf("metadata target trial %d not found in study %q", *item.TrialID, studyName)
		}
	}

	for _, item := range onStudy {
		setMetadataSlice(&study.Metadata, item)
	}
	for _, item := range onTrial {
		trial := m.trials[studyName][*item.TrialID]
		setMetadataSlice(&trial.Metadata, item)
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
