package badges

// Badge is one streak milestone a user can unlock.
type Badge struct {
	ID        string
	Threshold int
	Title     string
	Body      string
}

// Catalog holds the seven consecutive-submission milestones.
var Catalog = []Badge{
	{ID: "racha_1", Threshold: 1, Title: "¡Primera quiniela!", Body: "Enviaste tu primera quiniela. ¡Que empiece la racha!"},
	{ID: "racha_3", Threshold: 3, Title: "Racha de 3 jornadas", Body: "Llevas 3 jornadas seguidas enviando tu quiniela."},
	{ID: "racha_5", Threshold: 5, Title: "Racha de 5 jornadas", Body: "¡5 jornadas seguidas! Vas en serio."},
	{ID: "racha_8", Threshold: 8, Title: "Racha de 8 jornadas", Body: "8 jornadas consecutivas. Ya eres de los constantes."},
	{ID: "racha_10", Threshold: 10, Title: "Racha de 10 jornadas", Body: "¡Doble dígito! 10 jornadas sin fallar."},
	{ID: "racha_13", Threshold: 13, Title: "Racha de 13 jornadas", Body: "13 jornadas seguidas. La liguilla está cerca."},
	{ID: "racha_17", Threshold: 17, Title: "Torneo completo", Body: "Enviaste las 17 jornadas del torneo. ¡Leyenda!"},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Badge, bool) {
	for _, badge := range Catalog {
		if badge.ID == id {
			return badge, true
		}
	}
	return Badge{}, false
}
