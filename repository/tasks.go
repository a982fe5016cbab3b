package repository

import (
	"context"
	"errors"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"remindme/model"
	"remindme/utils"
)

// Change types delivered by the remote listener.
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeRemoved  = "removed"
)

// TaskChange is one remote change notification. Task is nil for removals,
// which only carry the document key.
type TaskChange struct {
	Type   string
	TaskID string
	Task   *model.Task
}

// TasksRepo mirrors the local collection into MongoDB, one document per
// task keyed by task id.
type TasksRepo struct {
	MongoCollection *mongo.Collection
}

// Retrieves the MongoDB collection for tasks
func GetTasksRepo(client *mongo.Client) *TasksRepo {
	dbName := os.Getenv("MONGO_DB")
	collectionName := os.Getenv("TASKS_COLLECTION")
	return &TasksRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

// FetchAll retrieves the complete remote document set for a user. A
// document that fails to decode or has no id is skipped, not fatal.
func (r *TasksRepo) FetchAll(ctx context.Context, userID string) ([]*model.Task, error) {
	timer := utils.TrackDBOperation("find", "tasks")
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		utils.TrackError("database", "task_fetch_failed")
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*model.Task
	for cursor.Next(ctx) {
		var task model.Task
		if err := cursor.Decode(&task); err != nil {
			utils.TrackError("database", "task_decode_failed")
			log.Printf("Skipping undecodable task document: %v", err)
			continue
		}
		if task.TaskID == "" {
			utils.TrackError("database", "task_missing_id")
			continue
		}
		tasks = append(tasks, &task)
	}
	if err := cursor.Err(); err != nil {
		utils.TrackError("database", "task_fetch_failed")
		return nil, err
	}
	return tasks, nil
}

// Upsert writes the task's full field set keyed by its id.
func (r *TasksRepo) Upsert(ctx context.Context, task *model.Task) error {
	timer := utils.TrackDBOperation("upsert", "tasks")
	defer timer.ObserveDuration()

	if task.TaskID == "" {
		utils.TrackError("database", "task_missing_id")
		return errors.New("task ID is required")
	}
	if task.UserID == "" {
		utils.TrackError("database", "missing_user_id")
		return errors.New("user ID is required")
	}

	filter := bson.M{"_id": task.TaskID, "user_id": task.UserID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.MongoCollection.ReplaceOne(ctx, filter, task, opts); err != nil {
		utils.TrackError("database", "task_upsert_failed")
		return err
	}
	return nil
}

// Delete removes the remote document keyed by the task id. A missing
// document is not an error; the deletion may have raced a remote one.
func (r *TasksRepo) Delete(ctx context.Context, userID, taskID string) error {
	timer := utils.TrackDBOperation("delete", "tasks")
	defer timer.ObserveDuration()

	filter := bson.M{"_id": taskID, "user_id": userID}
	if _, err := r.MongoCollection.DeleteOne(ctx, filter); err != nil {
		utils.TrackError("database", "task_deletion_failed")
		return err
	}
	return nil
}

// Watch opens a change stream over the tasks collection and translates it
// into added/modified/removed notifications, in delivery order. The channel
// closes when the context is cancelled or the stream errors.
func (r *TasksRepo) Watch(ctx context.Context, userID string) (<-chan TaskChange, error) {
	// Delete events carry no full document, so they cannot be filtered by
	// user server-side; they pass through and unknown ids are no-ops
	// downstream.
	match := bson.A{
		bson.D{{Key: "operationType", Value: "delete"}},
	}
	if userID == "" {
		match = append(match, bson.D{{Key: "operationType", Value: bson.D{{Key: "$ne", Value: "delete"}}}})
	} else {
		match = append(match, bson.D{{Key: "fullDocument.user_id", Value: userID}})
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: match}}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.MongoCollection.Watch(ctx, pipeline, opts)
	if err != nil {
		utils.TrackError("database", "task_watch_failed")
		return nil, err
	}

	changes := make(chan TaskChange)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				OperationType string      `bson:"operationType"`
				FullDocument  *model.Task `bson:"fullDocument"`
				DocumentKey   struct {
					ID string `bson:"_id"`
				} `bson:"documentKey"`
			}
			if err := stream.Decode(&event); err != nil {
				utils.TrackError("database", "task_change_decode_failed")
				log.Printf("Skipping undecodable change event: %v", err)
				continue
			}

			var change TaskChange
			switch event.OperationType {
			case "insert":
				change = TaskChange{Type: ChangeAdded, TaskID: event.DocumentKey.ID, Task: event.FullDocument}
			case "update", "replace":
				change = TaskChange{Type: ChangeModified, TaskID: event.DocumentKey.ID, Task: event.FullDocument}
			case "delete":
				change = TaskChange{Type: ChangeRemoved, TaskID: event.DocumentKey.ID}
			default:
				continue
			}
			if change.Type != ChangeRemoved && (change.Task == nil || change.Task.TaskID == "") {
				utils.TrackError("database", "task_missing_id")
				continue
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			utils.TrackError("database", "task_watch_failed")
			log.Printf("Task change stream closed with error: %v", err)
		}
	}()
	return changes, nil
}
