package waste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelCategory_KnownLabels(t *testing.T) {
	for label, want := range labelCategories {
		assert.Equal(t, want, LabelCategory(label), label)
	}
	require.Len(t, Labels(), 80)
}

func TestLabelCategory_UnknownLabel(t *testing.T) {
	for _, label := range []string{"", "plastic bag", "Bottle", "battery"} {
		assert.Equal(t, Unknown, LabelCategory(label), label)
	}
}

func TestClassCategory(t *testing.T) {
	require.Equal(t, Hazardous, ClassCategory(0))
	require.Equal(t, Recyclable, ClassCategory(1))
	require.Equal(t, Biodegradable, ClassCategory(2))
	require.Equal(t, NonBiodegradable, ClassCategory(3))
	require.Equal(t, Unknown, ClassCategory(4))
	require.Equal(t, Unknown, ClassCategory(-1))

	require.Equal(t, "recyclable", ClassName(1))
	require.Equal(t, "class_7", ClassName(7))
}

func TestClasses_ReturnsCopy(t *testing.T) {
	classes := Classes()
	classes[0] = Unknown
	require.Equal(t, Hazardous, ClassCategory(0))
}

func TestColors_Fallback(t *testing.T) {
	assert.Equal(t, gray, DetectionColor("glass"))
	assert.Equal(t, white, CategoryColor(Unknown))
	assert.Equal(t, red, CategoryColor(Hazardous))
	assert.Equal(t, orange, DetectionColor(NotWaste))
}

func TestTally_PercentagesSumTo100(t *testing.T) {
	tally := NewTally()
	for _, c := range []Category{Hazardous, Recyclable, Recyclable, Unknown, NotWaste, Biodegradable, Recyclable} {
		tally.Add(c)
	}

	pct := tally.Percentages()
	var sum float64
	for _, v := range pct {
		sum += v
	}
	require.Equal(t, 7, tally.Total())
	require.Equal(t, 3, tally.Count(Recyclable))
	require.InDelta(t, 100.0, sum, 0.1)
	require.Equal(t, 42.86, pct[Recyclable])
}

func TestTally_EmptyPercentages(t *testing.T) {
	tally := NewTally()
	require.Empty(t, tally.Percentages())
	require.NotNil(t, tally.Percentages())
}
