package progression

const (
	DefaultMaxLevel = 50
	StartingRank    = "Stickman"
	StartingLevel   = 1
)

var rankLadder = []struct {
	fromLevel int
	rank      string
}{
	{1, StartingRank},
	{3, "Rookie"},
	{6, "Lifter"},
	{10, "Athlete"},
	{15, "Beast"},
	{25, "Titan"},
	{40, "Legend"},
}

// LevelThreshold is the XP needed to reach level n: 50 * n * (n-1), so level 2 is at 100 XP.
func LevelThreshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level)
	return 50 * n * (n - 1)
}

func rankForLevel(level int) string {
	rank := StartingRank
	for _, r := range rankLadder {
		if level >= r.fromLevel {
			rank = r.rank
		}
	}
	return rank
}

// DefaultSteps builds the shipped table: a quadratic level curve with a rank ladder on top.
func DefaultSteps() []Step {
	steps := make([]Step, 0, DefaultMaxLevel)
	for level := 1; level <= DefaultMaxLevel; level++ {
		steps = append(steps, Step{
			MinXP: LevelThreshold(level),
			Level: level,
			Rank:  rankForLevel(level),
		})
	}
	return steps
}

// Default returns the resolver used by registration and workout commits.
func Default() *StepResolver {
	r, err := NewStepResolver(DefaultSteps())
	if err != nil {
		panic("default progression table: " + err.Error())
	}
	return r
}

// Starting is the standing of a freshly registered user.
func Starting() Progression {
	return Progression{Level: StartingLevel, Rank: StartingRank}
}
