package models

type Case struct {
	ID                string         `gorm:"primaryKey;size:64" json:"id"`
	Title             string         `gorm:"size:200;not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	ShortDescription  string         `gorm:"size:500" json:"short_description"`
	SolutionQuestions []string       `gorm:"serializer:json" json:"solution_questions"`
	CorrectAnswers    []string       `gorm:"serializer:json" json:"correct_answers"`
	Clues             []Clue         `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"clues,omitempty"`
	Topology          SystemTopology `gorm:"serializer:json" json:"system_topology"`
}

type Clue struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	CaseID     string     `gorm:"size:64;index" json:"case_id"`
	TargetID   string     `gorm:"size:64;not null" json:"target_id"`
	TargetType TargetType `gorm:"not null" json:"target_type"`
	Type       ClueType   `gorm:"not null" json:"type"`
	Content    string     `gorm:"type:text" json:"content"`
	Cost       int        `gorm:"not null;default:0" json:"cost"`
}

type SystemTopology struct {
	Modules     []TopologyModule     `json:"modules"`
	Functions   []TopologyFunction   `json:"functions"`
	Connections []TopologyConnection `json:"connections"`
}

type TopologyModule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TopologyFunction struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type TopologyConnection struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}
