package service

import "math"

// GradingConfig holds the weights applied when combining component scores
// into a final mark. Grammar scores are produced on a 0-10 scale and are
// multiplied by GrammarScale before weighting.
type GradingConfig struct {
	TextWeight      float64 `json:"text_weight"`
	DiagramWeight   float64 `json:"diagram_weight"`
	GrammarWeight   float64 `json:"grammar_weight"`
	IntegrityWeight float64 `json:"integrity_weight"`
	GrammarScale    float64 `json:"grammar_scale"`
	LatePenalty     float64 `json:"late_penalty"`
}

// DefaultGradingConfig returns the standard grading weights.
func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		TextWeight:      0.4,
		DiagramWeight:   0.3,
		GrammarWeight:   1.0,
		IntegrityWeight: 0.2,
		GrammarScale:    10,
		LatePenalty:     0.9,
	}
}

// GradeResult is the outcome of grading a single submission.
type GradeResult struct {
	Mark     float64
	Grade    string
	Feedback string
}

type gradeBand struct {
	min      float64
	grade    string
	feedback string
}

// Bands are checked top down; the first band whose threshold the mark meets
// wins.
var gradeBands = []gradeBand{
	{91, "A1", "Outstanding performance! Keep up the hard work."},
	{81, "A2", "Great job! A little more effort can take you to the top."},
	{71, "B1", "Impressive work! Keep focusing and improving."},
	{61, "B2", "You're on the right track! Practice more to excel."},
	{51, "C1", "Decent effort, but there's room for improvement."},
	{41, "C2", "Fair work, but strive to be better."},
	{33, "D", "Needs more effort. Try to improve next time."},
	{0, "E", "Poor performance. Please seek help to understand the material."},
}

// ComputeMark combines the component scores into a weighted mark. The late
// penalty multiplies the mark before the grade band is looked up.
func (c GradingConfig) ComputeMark(textScore, diagramScore float64, grammarScore int, plagiarismScore float64, isLate bool) float64 {
	integrity := 100 - plagiarismScore
	if integrity < 0 {
		integrity = 0
	}

	mark := c.TextWeight*textScore +
		c.DiagramWeight*diagramScore +
		c.GrammarWeight*(float64(grammarScore)*c.GrammarScale) +
		c.IntegrityWeight*integrity

	if isLate {
		mark *= c.LatePenalty
	}

	return math.Round(mark*100) / 100
}

// Grade runs the full grading step: weighted mark, late penalty, then the
// grade band lookup.
func (c GradingConfig) Grade(textScore, diagramScore float64, grammarScore int, plagiarismScore float64, isLate bool) GradeResult {
	mark := c.ComputeMark(textScore, diagramScore, grammarScore, plagiarismScore, isLate)
	grade, feedback := lookupBand(mark)

	return GradeResult{Mark: mark, Grade: grade, Feedback: feedback}
}

func lookupBand(mark float64) (string, string) {
	for _, band := range gradeBands {
		if mark >= band.min {
			return band.grade, band.feedback
		}
	}

	last := gradeBands[len(gradeBands)-1]
	return last.grade, last.feedback
}
