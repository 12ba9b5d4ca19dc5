package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/pkg/domain"
)

var sample = domain.ActivityEvent{
	ExtensionID:  "ext",
	ActivityType: domain.ActivityDOMAccess,
	APICall:      "Storage.getItem",
	PageURL:      "https://www.google.com/search",
}

func TestConditionModes(t *testing.T) {
	cases := []struct {
		c    Condition
		want bool
	}{
		{Condition{FieldAPICall, ModeExact, "Storage.getItem"}, true},
		{Condition{FieldAPICall, ModeExact, "storage.getitem"}, false},
		{Condition{FieldAPICall, ModePrefix, "Storage."}, true},
		{Condition{FieldAPICall, ModeContains, "GETITEM"}, true},
		{Condition{FieldPageURL, ModeGlob, "https://www.google.com/*"}, true},
		{Condition{FieldPageURL, ModeGlob, "*/search"}, true},
		{Condition{FieldPageURL, ModeGlob, "*"}, true},
		{Condition{FieldPageURL, ModeRegex, `^https://[a-z.]+google\.com/`}, true},
		{Condition{FieldPageURL, ModeRegex, `(`}, false},
		{Condition{FieldActivityType, ModeExact, "dom_access"}, true},
		{Condition{FieldArgURL, ModeExact, "x"}, false},
		{Condition{"unknown", ModeExact, ""}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.c.Match(sample), "%+v", tc.c)
	}
}

func TestSpecCombinators(t *testing.T) {
	assert.True(t, Spec{}.Match(sample))

	s := Spec{
		AllOf:  []Condition{{FieldExtensionID, ModeExact, "ext"}},
		AnyOf:  []Condition{{FieldAPICall, ModePrefix, "tabs."}, {FieldAPICall, ModePrefix, "Storage."}},
		NoneOf: []Condition{{FieldPageURL, ModeContains, "chrome://"}},
	}
	assert.True(t, s.Match(sample))

	s.NoneOf = append(s.NoneOf, Condition{FieldPageURL, ModeContains, "google"})
	assert.False(t, s.Match(sample))

	other := sample
	other.APICall = "runtime.connect"
	assert.Empty(t, Spec{AnyOf: []Condition{{FieldAPICall, ModePrefix, "tabs."}}}.Filter([]domain.ActivityEvent{sample, other}))
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("apiCall=tabs.*")
	require.NoError(t, err)
	assert.Equal(t, Condition{FieldAPICall, ModeGlob, "tabs.*"}, c)

	c, err = ParseCondition("pageUrl:regex:^https://a\\.com:8080/")
	require.NoError(t, err)
	assert.Equal(t, ModeRegex, c.Mode)
	assert.Equal(t, `^https://a\.com:8080/`, c.Pattern)

	_, err = ParseCondition("apiCall")
	assert.Error(t, err)
	_, err = ParseCondition("nope:exact:x")
	assert.Error(t, err)
	_, err = ParseCondition("apiCall:fuzzy:x")
	assert.Error(t, err)
	_, err = ParseCondition("apiCall:regex:(")
	assert.Error(t, err)
}
