// Package resources implements the pure parse/format functions mapping
// (owner, study, trial, client, op_number) tuples to and from
// hierarchical slash-delimited resource names. Parsers accept only the
// exact shapes.
package resources

import (
	"fmt"
	"strconv"
	"strings"
)

// OwnerName formats "owners/{owner}".
func OwnerName(ownerID string) string {
	return fmt.Sprintf("owners/%s", ownerID)
}

// StudyName formats "owners/{owner}/studies/{study}".
func StudyName(ownerID, studyID string) string {
	return fmt.Sprintf("%s/studies/%s", OwnerName(ownerID), studyID)
}

// TrialName formats "owners/{owner}/studies/{study}/trials/{trial}".
func TrialName(ownerID, studyID string, trialID int64) string {
	return fmt.Sprintf("%s/trials/%d", StudyName(ownerID, studyID), trialID)
}

// SuggestionOperationName formats
// "owners/{owner}/studies/{study}/operations/{client}/{n}".
func SuggestionOperationName(ownerID, studyID, clientID string, opNumber int64) string {
	return fmt.Sprintf("%s/operations/%s/%d", StudyName(ownerID, studyID), clientID, opNumber)
}

// EarlyStoppingOperationName formats
// "owners/{owner}/studies/{study}/trials/{trial}/operations/earlyStopping".
func EarlyStoppingOperationName(ownerID, studyID string, trialID int64) string {
	return fmt.Sprintf("%s/operations/earlyStopping", TrialName(ownerID, studyID, trialID))
}

// Owner is a parsed "owners/{owner}" name.
type Owner struct {
	OwnerID string
}

// ParseOwner parses an exact "owners/{owner}" name.
func ParseOwner(name string) (Owner, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] != "owners" || parts[1] == "" {
		return Owner{}, fmt.Errorf("malformed owner name %q", name)
	}
	return Owner{OwnerID: parts[1]}, nil
}

// Study is a parsed "owners/{owner}/studies/{study}" name.
type Study struct {
	OwnerID string
	StudyID string
}

// Name re-renders the resource name.
func (s Study) Name() string { return StudyName(s.OwnerID, s.StudyID) }

// ParseStudy parses an exact "owners/{owner}/studies/{study}" name.
func ParseStudy(name string) (Study, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 4 || parts[0] != "owners" || parts[2] != "studies" ||
		parts[1] == "" || parts[3] == "" {
		return Study{}, fmt.Errorf("malformed study name %q", name)
	}
	return Study{OwnerID: parts[1], StudyID: parts[3]}, nil
}

// Trial is a parsed "owners/{owner}/studies/{study}/trials/{trial}" name.
type Trial struct {
	OwnerID string
	StudyID string
	TrialID int64
}

// Name re-renders the resource name.
func (t Trial) Name() string { return TrialName(t.OwnerID, t.StudyID, t.TrialID) }

// Study returns the parent study resource.
func (t Trial) Study() Study { return Study{OwnerID: t.OwnerID, StudyID: t.StudyID} }

// ParseTrial parses an exact
// "owners/{owner}/studies/{study}/trials/{trial}" name.
func ParseTrial(name string) (Trial, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 6 || parts[0] != "owners" || parts[2] != "studies" || parts[4] != "trials" ||
		parts[1] == "" || parts[3] == "" || parts[5] == "" {
		return Trial{}, fmt.Errorf("malformed trial name %q", name)
	}
	id, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return Trial{}, fmt.Errorf("malformed trial name %q: trial id not an integer", name)
	}
	return Trial{OwnerID: parts[1], StudyID: parts[3], TrialID: id}, nil
}

// SuggestionOperation is a parsed
// "owners/{owner}/studies/{study}/operations/{client}/{n}" name.
type SuggestionOperation struct {
	OwnerID  string
	StudyID  string
	ClientID string
	OpNumber int64
}

// Name re-renders the resource name.
func (o SuggestionOperation) Name() string {
	return SuggestionOperationName(o.OwnerID, o.StudyID, o.ClientID, o.OpNumber)
}

// ParseSuggestionOperation parses an exact
// "owners/{owner}/studies/{study}/operations/{client}/{n}" name.
func ParseSuggestionOperation(name string) (SuggestionOperation, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 7 || parts[0] != "owners" || parts[2] != "studies" || parts[4] != "operations" ||
		parts[1] == "" || parts[3] == "" || parts[5] == "" || parts[6] == "" {
		return SuggestionOperation{}, fmt.Errorf("malformed suggestion operation name %q", name)
	}
	n, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return SuggestionOperation{}, fmt.Errorf(
			"malformed suggestion operation name %q: op number not an integer", name)
	}
	return SuggestionOperation{
		OwnerID: parts[1], StudyID: parts[3], ClientID: parts[5], OpNumber: n,
	}, nil
}

// EarlyStoppingOperation is a parsed
// "owners/{owner}/studies/{study}/trials/{trial}/operations/earlyStopping"
// name.
type EarlyStoppingOperation struct {
	OwnerID string
	StudyID string
	TrialID int64
}

// Name re-renders the resource name.
func (o EarlyStoppingOperation) Name() string {
	return EarlyStoppingOperationName(o.OwnerID, o.StudyID, o.TrialID)
}

// ParseEarlyStoppingOperation parses an exact
// "owners/{owner}/studies/{study}/trials/{trial}/operations/earlyStopping"
// name.
func ParseEarlyStoppingOperation(name string) (EarlyStoppingOperation, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 8 || parts[0] != "owners" || parts[2] != "studies" || parts[4] != "trials" ||
		parts[6] != "operations" || parts[7] != "earlyStopping" ||
		parts[1] == "" || parts[3] == "" || parts[5] == "" {
		return EarlyStoppingOperation{}, fmt.Errorf("malformed early stopping operation name %q", name)
	}
	id, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return EarlyStoppingOperation{}, fmt.Errorf(
			"malformed early stopping operation name %q: trial id not an integer", name)
	}
	return EarlyStoppingOperation{OwnerID: parts[1], StudyID: parts[3], TrialID: id}, nil
}
