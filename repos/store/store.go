package store

import (
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrPredictionClosed  = errors.New("prediction is closed")
	ErrRoundClosed       = errors.New("jornada is closed")
	ErrInvalidPrediction = errors.New("invalid prediction")
)

const (
	usersCollection       = "users"
	roundsCollection      = "jornadas"
	predictionsCollection = "quinielas"
	devicesCollection     = "devices"
	remindersCollection   = "reminders"
)

// MaxBatchWrites caps the mutations committed in a single write batch.
const MaxBatchWrites = 400

// Service is the Firestore-backed store shared by every service.
type Service struct {
	Client *firestore.Client
}

func NewService(client *firestore.Client) *Service {
	return &Service{
		Client: client,
	}
}

func (s *Service) user(uid string) *firestore.DocumentRef {
	return s.Client.Collection(usersCollection).Doc(uid)
}

func (s *Service) prediction(ref PredictionRef) *firestore.DocumentRef {
	return s.user(ref.UserID).Collection(predictionsCollection).Doc(ref.Key)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}
