package domain

// Title is a newspaper title record as indexed for search.
// An empty EndDate leaves the validity window open.
type Title struct {
	PID       string `json:"pid" yaml:"pid"`
	AvisID    string `json:"avis_id" yaml:"avis_id"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	State     State  `json:"state,omitempty" yaml:"state,omitempty"`
}

// Edition is an edition record with its metadata document and the titles it
// is currently linked to
type Edition struct {
	PID      string `json:"pid" yaml:"pid"`
	State    State  `json:"state,omitempty" yaml:"state,omitempty"`
	Metadata []byte `json:"-" yaml:"-"`
	Titles   []Item `json:"titles,omitempty" yaml:"titles,omitempty"`
}

// Dataset is a batch of records loaded into a local repository
type Dataset struct {
	Titles   []Title   `json:"titles"`
	Editions []Edition `json:"editions"`
}
