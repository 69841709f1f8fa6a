package prompt

// Band maps a minimum coverage percentage to a letter grade.
type Band struct {
	Grade string
	Min   float64
	Label string
}

// GradeBands are ordered from best to worst.
var GradeBands = []Band{
	{Grade: "A", Min: 95, Label: "95-100% comprehensiveness using clinical reasoning"},
	{Grade: "B", Min: 90, Label: "90-94% comprehensiveness with good clinical coverage"},
	{Grade: "C", Min: 80, Label: "80-89% comprehensiveness with acceptable clinical utility"},
	{Grade: "D", Min: 70, Label: "70-79% comprehensiveness with clinical limitations"},
	{Grade: "F", Min: 0, Label: "<70% comprehensiveness, inadequate for clinical use"},
}

// GradeForCoverage returns the letter grade for a coverage percentage.
func GradeForCoverage(pct float64) string {
	for _, b := range GradeBands {
		if pct >= b.Min {
			return b.Grade
		}
	}
	return "F"
}
