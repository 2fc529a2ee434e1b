package duel

const BasePoints = 10

type comboTier struct {
	minStreak int
	bonus     int
}

// highest tier first
var comboTiers = []comboTier{
	{minStreak: 5, bonus: 10},
	{minStreak: 3, bonus: 5},
	{minStreak: 2, bonus: 2},
}

// ComboBonus returns the bonus for a correct answer that brings the streak to `streak`.
func ComboBonus(streak int) int {
	for _, t := range comboTiers {
		if streak >= t.minStreak {
			return t.bonus
		}
	}
	return 0
}

// Streak counts the player's correct answers on the questions right before `index`,
// walking down while the indexes stay contiguous and the answers correct.
func Streak(answers []Answer, index int) int {
	byIndex := make(map[int]Answer, len(answers))
	for _, a := range answers {
		byIndex[a.QuestionIndex] = a
	}
	var n int
	for i := index - 1; i >= 0; i-- {
		a, ok := byIndex[i]
		if !ok || !a.IsCorrect {
			break
		}
		n++
	}
	return n
}

// Score grades one answer given the player's previous answers in the duel.
func Score(prev []Answer, index int, correct bool) (points, bonus, newStreak int) {
	if !correct {
		return 0, 0, 0
	}
	newStreak = Streak(prev, index) + 1
	return BasePoints, ComboBonus(newStreak), newStreak
}

// Grade sets the answer's points, combo bonus and streak from the player's answers already
// stored in the duel. Repositories call it while holding the duel, so that answers of one
// player are graded in the order they are recorded.
func (a *Answer) Grade(prev []Answer) {
	a.PointsEarned, a.StreakBonus, a.Streak = Score(prev, a.QuestionIndex, a.IsCorrect)
}
