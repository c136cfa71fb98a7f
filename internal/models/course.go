package models

// Defaults applied when the manifest leaves a name out or gives a non-string
const (
	DefaultCourseName   = "Imported Course"
	DefaultModuleName   = "Untitled Module"
	DefaultTaskName     = "Untitled"
	MaterialsSubmodule  = "Materials"
	DefaultTaskMaxScore = 100
	TheoryMaxScore      = 0
)

// ElementType distinguishes graded tasks from theory pages
type ElementType string

const (
	ElementTask   ElementType = "Task"
	ElementTheory ElementType = "Theory"
)

// IsGraded returns true if the element carries a score
func (t ElementType) IsGraded() bool {
	return t == ElementTask
}

// Difficulty is the difficulty level of a graded task
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

var difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty maps a raw manifest value onto a Difficulty.
// Only the exact values are recognized; anything else is Medium.
func ParseDifficulty(raw string) Difficulty {
	for _, d := range difficulties {
		if raw == string(d) {
			return d
		}
	}
	return DifficultyMedium
}

// Course is the normalized course document sent to the LMS
type Course struct {
	Name        string   `json:"course_name"`
	Description *string  `json:"description"`
	Modules     []Module `json:"modules"`
}

// Module groups the materials of one manifest module
type Module struct {
	Name       string      `json:"module_name"`
	Submodules []Submodule `json:"submodules"`
}

// Submodule holds an ordered, non-empty list of tasks
type Submodule struct {
	Name  string `json:"submodule_name"`
	Tasks []Task `json:"tasks"`
}

// Task is a single task or theory element
type Task struct {
	Name        string      `json:"task_name"`
	Type        ElementType `json:"type"`
	Description string      `json:"description"`
	Difficulty  *Difficulty `json:"difficulty"`
	MaxScore    int         `json:"max_score"`
	TimeLimit   *float64    `json:"time_limit"`
	MemoryLimit *float64    `json:"memory_limit"`
}

// NewCourse builds a course. Names are kept as given, empty included.
// Modules are never nil so the document always carries an array.
func NewCourse(name string, description *string, modules []Module) *Course {
	if modules == nil {
		modules = []Module{}
	}
	return &Course{
		Name:        name,
		Description: description,
		Modules:     modules,
	}
}

// NewMaterialsModule wraps tasks into a module with a single "Materials"
// submodule. It returns false when there are no tasks, since empty modules
// are not part of a course.
func NewMaterialsModule(name string, tasks []Task) (Module, bool) {
	if len(tasks) == 0 {
		return Module{}, false
	}
	return Module{
		Name: name,
		Submodules: []Submodule{{
			Name:  MaterialsSubmodule,
			Tasks: tasks,
		}},
	}, true
}

// NewTheory builds a theory element: no difficulty, no score
func NewTheory(name, description string, timeLimit, memoryLimit *float64) Task {
	return Task{
		Name:        name,
		Type:        ElementTheory,
		Description: description,
		MaxScore:    TheoryMaxScore,
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	}
}

// NewGradedTask builds a graded task element
func NewGradedTask(name, description string, difficulty Difficulty, maxScore int, timeLimit, memoryLimit *float64) Task {
	return Task{
		Name:        name,
		Type:        ElementTask,
		Description: description,
		Difficulty:  &difficulty,
		MaxScore:    maxScore,
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	}
}

// TaskCount returns the number of elements across all modules
func (c *Course) TaskCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, m := range c.Modules {
		n += m.TaskCount()
	}
	return n
}

// TaskCount returns the number of elements in the module
func (m Module) TaskCount() int {
	n := 0
	for _, s := range m.Submodules {
		n += len(s.Tasks)
	}
	return n
}
