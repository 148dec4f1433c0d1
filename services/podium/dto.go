package podium

type Entry struct {
	Rank          int    `json:"rank"`
	UID           string `json:"uid"`
	Nombre        string `json:"nombre"`
	PuntosTotales int    `json:"puntosTotales"`
	UltimaJornada int    `json:"ultimaJornada"`
	PuntosJornada int    `json:"puntosJornada"`
}
