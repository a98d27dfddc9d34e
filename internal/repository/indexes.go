package repository

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	UsersCollection        = "users"
	SubjectsCollection     = "subjects"
	ProgramsCollection     = "programs"
	LessonsCollection      = "lessons"
	HomeworkCollection     = "homework"
	PastPapersCollection   = "past_papers"
	TopicVaultCollection   = "topic_vault"
	ChatSessionsCollection = "chat_sessions"
)

// Program names are intentionally not unique; duplicates are cleaned up on demand.
var collectionIndexes = map[string][]mongo.IndexModel{
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "xp", Value: -1}}},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "weeklyXp", Value: -1}}},
		{Keys: bson.D{{Key: "grade", Value: 1}}},
		{Keys: bson.D{{Key: "programId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	},
	SubjectsCollection: {
		{Keys: bson.D{{Key: "name", Value: 1}}},
	},
	ProgramsCollection: {
		{Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "name", Value: 1}}},
	},
	LessonsCollection: {
		{Keys: bson.D{{Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "subject", Value: 1}}},
		{Keys: bson.D{{Key: "studentIds", Value: 1}}},
	},
	HomeworkCollection: {
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	},
	PastPapersCollection: {
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "year", Value: -1}}},
	},
	TopicVaultCollection: {
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "topic", Value: 1}, {Key: "subtopic", Value: 1}, {Key: "order", Value: 1}}},
	},
	ChatSessionsCollection: {
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "updatedAt", Value: -1}}},
	},
}

func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, indexes := range collectionIndexes {
		_, err := database.Collection(collection).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}
	log.Println("Database indexes created successfully")
	return nil
}
