package admin

type ReminderRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	SendAt string `json:"sendAt"`
}

type RoundRequest struct {
	FechaCierre string `json:"fechaCierre"`
}

type ResultsRequest struct {
	Resultados []string `json:"resultados"`
}

type MigrationReport struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}
