package services

import (
	"errors"
	"fmt"
	"proacademics-service/internal/repository"
	"proacademics-service/pkg/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrInvalidID          = errors.New("invalid id format")
	ErrValidation         = errors.New("validation failed")
	ErrNoChanges          = errors.New("no fields to update")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrHomeworkClosed     = errors.New("homework has already been submitted")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrQuestionCompleted  = errors.New("question already completed")
	ErrScoreOutOfRange    = errors.New("score must be between 0 and the maximum score")
	ErrInvalidFile        = errors.New("only PDF files are accepted")
	ErrNotConfigured      = errors.New("integration is not configured")
)

func validate(v any) error {
	if err := utils.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func checkID(id string) error {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func newID() string {
	return bson.NewObjectID().Hex()
}
