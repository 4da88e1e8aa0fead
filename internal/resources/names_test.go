package resources

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStudyRoundTrip(t *testing.T) {
	name := StudyName("owner-1", "study-1")
	require.Equal(t, "owners/owner-1/studies/study-1", name)

	parsed, err := ParseStudy(name)
	require.NoError(t, err)
	require.Equal(t, Study{OwnerID: "owner-1", StudyID: "study-1"}, parsed)
	require.Equal(t, name, parsed.Name())
}

func TestTrialRoundTrip(t *testing.T) {
	name := TrialName("owner-1", "study-1", 42)
	require.Equal(t, "owners/owner-1/studies/study-1/trials/42", name)

	parsed, err := ParseTrial(name)
	require.NoError(t, err)
	require.Equal(t, Trial{OwnerID: "owner-1", StudyID: "study-1", TrialID: 42}, parsed)
	require.Equal(t, Study{OwnerID: "owner-1", StudyID: "study-1"}, parsed.Study())
}

func TestSuggestionOperationRoundTrip(t *testing.T) {
	name := SuggestionOperationName("owner-1", "study-1", "client-a", 3)
	parsed, err := ParseSuggestionOperation(name)
	require.NoError(t, err)
	require.Equal(t, SuggestionOperation{
		OwnerID: "owner-1", StudyID: "study-1", ClientID: "client-a", OpNumber: 3,
	}, parsed)
}

func TestEarlyStoppingOperationRoundTrip(t *testing.T) {
	name := EarlyStoppingOperationName("owner-1", "study-1", 7)
	require.Equal(t, "owners/owner-1/studies/study-1/trials/7/operations/earlyStopping", name)

	parsed, err := ParseEarlyStoppingOperation(name)
	require.NoError(t, err)
	require.Equal(t, EarlyStoppingOperation{OwnerID: "owner-1", StudyID: "study-1", TrialID: 7}, parsed)
}

func TestParseRejectsMalformedNames(t *testing.T) {
	cases := []string{
		"",
		"owners/",
		"owners/o1/studies",
		"owners/o1/studies/s1/trials/abc",
		"owners/o1/studies/s1/operations/client-a",
		"owners/o1/studies/s1/trials/1/operations/wrong",
	}
	for _, name := range cases {
		_, errStudy := ParseStudy(name)
		_, errTrial := ParseTrial(name)
		_, errOp := ParseSuggestionOperation(name)
		_, errEarlyStop := ParseEarlyStoppingOperation(name)
		if errStudy == nil || errTrial == nil || errOp == nil || errEarlyStop == nil {
			t.Fatalf("expected %q to be rejected by every parser", name)
		}
	}
}
