package store

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Outcome values as stored in jornada results and predictions.
const (
	OutcomeHome = "L"
	OutcomeDraw = "E"
	OutcomeAway = "V"
)

// MatchesPerRound is the fixed size of a prediction's outcome list.
const MatchesPerRound = 9

const (
	PredictionOpen   = "open"
	PredictionClosed = "closed"
)

const (
	ReminderPending = "pending"
	ReminderSending = "sending"
	ReminderSent    = "sent"
	ReminderError   = "error"
)

type User struct {
	UID           string
	Nombre        string
	Email         string
	Rol           string
	PuntosTotales int
	UltimaJornada int
	PuntosJornada int
}

type Round struct {
	Numero      int
	Resultados  []string
	FechaCierre time.Time
}

type Prediction struct {
	UserID           string
	Key              string
	Jornada          int
	Pronosticos      []string
	Estado           string
	Enviada          bool
	Puntos           int
	CierreAutomatico bool
	Actualizada      time.Time
}

// PredictionRef addresses users/{UserID}/quinielas/{Key}.
type PredictionRef struct {
	UserID string
	Key    string
}

// DeviceToken is one push registration. DocID is the registration document
// id, which older clients did not always set to the token itself.
type DeviceToken struct {
	UserID string
	Token  string
	DocID  string
}

type Reminder struct {
	ID            string
	Title         string
	Body          string
	URL           string
	SendAt        time.Time
	Status        string
	Entregados    *int
	Fallidos      *int
	SentAt        time.Time
	LastAttemptAt time.Time
	Error         string
	Note          string
}

// ReminderDoc is a reminder as read from the due query. Err is set when the
// document could not be decoded; Reminder is nil in that case.
type ReminderDoc struct {
	ID       string
	Reminder *Reminder
	Err      error
}

// ReminderOutcome is what gets recorded when a reminder reaches "sent".
type ReminderOutcome struct {
	Entregados *int
	Fallidos   *int
	SentAt     time.Time
	Note       string
}

// ValidOutcome reports whether v is one of L, E, V. Case and surrounding
// whitespace are ignored.
func ValidOutcome(v string) bool {
	switch NormalizeOutcome(v) {
	case OutcomeHome, OutcomeDraw, OutcomeAway:
		return true
	}
	return false
}

func NormalizeOutcome(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

func decodeUser(uid string, data map[string]interface{}) (*User, error) {
	user := &User{UID: uid}
	var err error
	if user.Nombre, err = optionalString(data, "nombre"); err != nil {
		return nil, err
	}
	if user.Email, err = optionalString(data, "email"); err != nil {
		return nil, err
	}
	if user.Rol, err = optionalString(data, "rol"); err != nil {
		return nil, err
	}
	if user.PuntosTotales, err = optionalInt(data, "puntosTotales"); err != nil {
		return nil, err
	}
	if user.UltimaJornada, err = optionalInt(data, "ultimaJornada"); err != nil {
		return nil, err
	}
	if user.PuntosJornada, err = optionalInt(data, "puntosJornada"); err != nil {
		return nil, err
	}
	return user, nil
}

func decodeRound(id string, data map[string]interface{}) (*Round, error) {
	round := &Round{}
	numero, err := optionalInt(data, "numero")
	if err != nil {
		return nil, err
	}
	if numero == 0 {
		if numero, err = strconv.Atoi(id); err != nil {
			return nil, xerrors.Errorf("consistency error. jornada %q has no numero: %w", id, err)
		}
	}
	round.Numero = numero

	if round.Resultados, err = optionalStringList(data, "resultados"); err != nil {
		return nil, err
	}
	if round.FechaCierre, err = optionalTime(data, "fechaCierre"); err != nil {
		return nil, err
	}
	return round, nil
}

func decodePrediction(uid, key string, data map[string]interface{}) (*Prediction, error) {
	prediction := &Prediction{UserID: uid, Key: key}
	var err error
	if prediction.Jornada, err = optionalInt(data, "jornada"); err != nil {
		return nil, err
	}
	if prediction.Pronosticos, err = optionalStringList(data, "pronosticos"); err != nil {
		return nil, err
	}
	if prediction.Estado, err = optionalString(data, "estado"); err != nil {
		return nil, err
	}
	if prediction.Estado == "" {
		prediction.Estado = PredictionOpen
	}
	if prediction.Enviada, err = optionalBool(data, "enviada"); err != nil {
		return nil, err
	}
	if prediction.Puntos, err = optionalInt(data, "puntos"); err != nil {
		return nil, err
	}
	if prediction.CierreAutomatico, err = optionalBool(data, "cierreAutomatico"); err != nil {
		return nil, err
	}
	if prediction.Actualizada, err = optionalTime(data, "actualizada"); err != nil {
		return nil, err
	}
	return prediction, nil
}

func decodeReminder(id string, data map[string]interface{}) (*Reminder, error) {
	reminder := &Reminder{ID: id}
	var err error
	if reminder.Title, err = optionalString(data, "title"); err != nil {
		return nil, err
	}
	if reminder.Body, err = optionalString(data, "body"); err != nil {
		return nil, err
	}
	if reminder.URL, err = optionalString(data, "url"); err != nil {
		return nil, err
	}
	if reminder.Status, err = optionalString(data, "status"); err != nil {
		return nil, err
	}
	if reminder.Status == "" {
		return nil, xerrors.Errorf("consistency error. reminder %s has no status", id)
	}
	if reminder.SendAt, err = optionalTime(data, "sendAt"); err != nil {
		return nil, err
	}
	if reminder.SendAt.IsZero() {
		return nil, xerrors.Errorf("consistency error. reminder %s has no sendAt", id)
	}
	if reminder.Entregados, err = optionalIntPtr(data, "entregados"); err != nil {
		return nil, err
	}
	if reminder.Fallidos, err = optionalIntPtr(data, "fallidos"); err != nil {
		return nil, err
	}
	if reminder.SentAt, err = optionalTime(data, "sentAt"); err != nil {
		return nil, err
	}
	if reminder.LastAttemptAt, err = optionalTime(data, "lastAttemptAt"); err != nil {
		return nil, err
	}
	if reminder.Error, err = optionalString(data, "error"); err != nil {
		return nil, err
	}
	if reminder.Note, err = optionalString(data, "note"); err != nil {
		return nil, err
	}
	return reminder, nil
}

func optionalString(data map[string]interface{}, field string) (string, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", xerrors.Errorf("consistency error. field %q is %T, want string", field, value)
	}
	return s, nil
}

func optionalBool(data map[string]interface{}, field string) (bool, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return false, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, xerrors.Errorf("consistency error. field %q is %T, want bool", field, value)
	}
	return b, nil
}

func optionalInt(data map[string]interface{}, field string) (int, error) {
	p, err := optionalIntPtr(data, field)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

// optionalIntPtr accepts both integer and whole double values, since the web
// client writes numbers as doubles.
func optionalIntPtr(data map[string]interface{}, field string) (*int, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return nil, nil
	}
	var n int
	switch v := value.(type) {
	case int64:
		n = int(v)
	case int:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return nil, xerrors.Errorf("consistency error. field %q is not a whole number: %v", field, v)
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, xerrors.Errorf("consistency error. field %q is not numeric: %w", field, err)
		}
		n = parsed
	default:
		return nil, xerrors.Errorf("consistency error. field %q is %T, want number", field, value)
	}
	return &n, nil
}

func optionalTime(data map[string]interface{}, field string) (time.Time, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return time.Time{}, nil
	}
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, xerrors.Errorf("consistency error. field %q is not RFC3339: %w", field, err)
		}
		return parsed, nil
	}
	return time.Time{}, xerrors.Errorf("consistency error. field %q is %T, want timestamp", field, value)
}

// optionalStringList maps null entries to "".
func optionalStringList(data map[string]interface{}, field string) ([]string, error) {
	value, ok := data[field]
	if !ok || value == nil {
		return nil, nil
	}
	items, ok := value.([]interface{})
	if !ok {
		return nil, xerrors.Errorf("consistency error. field %q is %T, want array", field, value)
	}
	out := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		s, ok := item.(string)
		if !ok {
			return nil, xerrors.Errorf("consistency error. %s[%d] is %T, want string", field, i, item)
		}
		out[i] = s
	}
	return out, nil
}

// outcomeList turns "" entries back into nulls for storage.
func outcomeList(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		out[i] = v
	}
	return out
}
