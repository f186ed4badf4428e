package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// newStudent builds a student whose only risk factor is teacher alerts,
// so the score equals 10 * alerts.
func newStudent(id, class string, alerts int) student.Student {
	return student.Student{
		ID:                 id,
		FullName:           "Student " + id,
		ClassName:          class,
		Gender:             student.GenderMale,
		AvgGrade:           4.6,
		HomeworkCompletion: 100,
		TeacherAlerts:      alerts,
	}
}

func TestCountLevels_ClassScenario(t *testing.T) {
	students := []student.Student{
		newStudent("a", "9A", 9), // 90 high
		newStudent("b", "9A", 0), // 0 none
		newStudent("c", "9A", 5), // 50 medium
	}

	counts := CountLevels(students)

	assert.Equal(t, LevelCounts{High: 1, Medium: 1, Low: 0, None: 1}, counts)
	assert.Equal(t, 2, counts.AtRisk())
	assert.Equal(t, 3, counts.Total())
}

func TestAggregation_EmptyInput(t *testing.T) {
	assert.Equal(t, LevelCounts{}, CountLevels(nil))
	assert.Empty(t, FocusList(nil, 5))
	assert.Empty(t, ClassRows(nil))
	assert.Empty(t, SubjectHotspots(nil))
	assert.Equal(t, SchoolOverview{}, Overview(nil))
}

func TestFocusList_SortedStableAndTruncated(t *testing.T) {
	students := []student.Student{
		newStudent("low", "8A", 3),  // 30 low, excluded
		newStudent("m1", "8A", 5),   // 50
		newStudent("h1", "8B", 9),   // 90
		newStudent("m2", "8B", 5),   // 50, ties with m1
		newStudent("m3", "9A", 6),   // 60
		newStudent("none", "9A", 0), // excluded
		newStudent("m4", "10A", 5),  // 50, ties again
	}

	focus := FocusList(students, 0)
	ids := make([]string, len(focus))
	for i, f := range focus {
		ids[i] = f.StudentID
	}
	assert.Equal(t, []string{"h1", "m3", "m1", "m2", "m4"}, ids)

	for i := 1; i < len(focus); i++ {
		assert.GreaterOrEqual(t, focus[i-1].Score, focus[i].Score)
	}

	top := FocusList(students, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "m1", top[2].StudentID)
	assert.Equal(t, risk.LevelHigh, top[0].Level)
}

func TestFocusList_DoesNotMutateInput(t *testing.T) {
	students := []student.Student{
		newStudent("a", "8A", 5),
		newStudent("b", "8A", 9),
	}
	before := []student.Student{students[0].Clone(), students[1].Clone()}

	_ = FocusList(students, 1)
	_ = ClassRows(students)

	assert.Equal(t, before, students)
}

func TestClassRows_OrderAndCounts(t *testing.T) {
	students := []student.Student{
		newStudent("a", "9B", 3), // low
		newStudent("b", "9B", 0),
		newStudent("c", "8A", 9),  // high
		newStudent("d", "8A", 5),  // medium
		newStudent("e", "10A", 3), // low
		newStudent("f", "10A", 5), // medium
		newStudent("g", "7A", 0),
	}

	rows := ClassRows(students)

	require.Len(t, rows, 4)
	// 10A and 8A both have two flagged students, ordered by name.
	assert.Equal(t, "10A", rows[0].ClassName)
	assert.Equal(t, "8A", rows[1].ClassName)
	assert.Equal(t, "9B", rows[2].ClassName)
	assert.Equal(t, "7A", rows[3].ClassName)

	assert.Equal(t, 2, rows[0].AtRisk)
	assert.Equal(t, LevelCounts{Low: 1, Medium: 1}, rows[0].Counts)
	assert.Equal(t, LevelCounts{High: 1, Medium: 1}, rows[1].Counts)
	assert.Equal(t, 1, rows[2].AtRisk)
	assert.Equal(t, 2, rows[2].Students)
	assert.Equal(t, 0, rows[3].AtRisk)
}
