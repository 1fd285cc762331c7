package store

// builtins is the fixed catalog. Order defines the sequential unlock order.
var builtins = []TaskDefinition{
	{
		ID:              "cold-exposure",
		Label:           "Cold exposure",
		Category:        CategoryPhysical,
		Duration:        "5 min",
		Description:     "Cold shower or plunge straight after waking.",
		PomodoroMinutes: 5,
	},
	{
		ID:              "training",
		Label:           "Strength training",
		Category:        CategoryPhysical,
		Duration:        "45 min",
		Description:     "Full session, logged sets, no skipped lifts.",
		PomodoroMinutes: 45,
	},
	{
		ID:              "walk",
		Label:           "Outdoor walk",
		Category:        CategoryPhysical,
		Duration:        "30 min",
		Description:     "Daylight walk without headphones.",
		PomodoroMinutes: 30,
	},
	{
		ID:              "meditation",
		Label:           "Meditation",
		Category:        CategoryCognitive,
		Duration:        "20 min",
		Description:     "Seated breath focus.",
		PomodoroMinutes: 20,
	},
	{
		ID:              "deep-work",
		Label:           "Deep work block",
		Category:        CategoryCognitive,
		Duration:        "50 min",
		Description:     "Single task, notifications off.",
		PomodoroMinutes: 50,
	},
	{
		ID:              "journal",
		Label:           "Journal",
		Category:        CategoryCognitive,
		Duration:        "15 min",
		Description:     "Review yesterday, set today's intent.",
		PomodoroMinutes: 15,
	},
	{
		ID:              "reading",
		Label:           "Reading",
		Category:        CategoryIntellectual,
		Duration:        "30 min",
		Description:     "Non-fiction, paper or e-ink.",
		PomodoroMinutes: 30,
	},
	{
		ID:              "study",
		Label:           "Skill study",
		Category:        CategoryIntellectual,
		Duration:        "25 min",
		Description:     "Deliberate practice on one skill.",
		PomodoroMinutes: 25,
	},
}

// Builtins returns a copy of the built-in catalog in unlock order.
func Builtins() []TaskDefinition {
	out := make([]TaskDefinition, len(builtins))
	copy(out, builtins)
	return out
}

func builtinByID(id string) (TaskDefinition, bool) {
	for _, d := range builtins {
		if d.ID == id {
			return d, true
		}
	}
	return TaskDefinition{}, false
}
