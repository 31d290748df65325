package queue

import (
	"context"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/retryutil"
)

// CloudTasksQueue enqueues HTTP tasks on a Google Cloud Tasks queue,
// mirroring add_to_task_queue's http_request + schedule_time construction.
type CloudTasksQueue struct {
	Client     *cloudtasks.Client
	QueuePath  string // projects/{project}/locations/{location}/queues/{queue}
}

func NewCloudTasksQueue(client *cloudtasks.Client, project, location, queue string) *CloudTasksQueue {
	return &CloudTasksQueue{
		Client:    client,
		QueuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", project, location, queue),
	}
}

func (q *CloudTasksQueue) Enqueue(ctx context.Context, task model.DelayedTask) error {
	return retryutil.Do(ctx, retryutil.Default, func(ctx context.Context) error {
		req := &cloudtaskspb.CreateTaskRequest{
			Parent: q.QueuePath,
			Task: &cloudtaskspb.Task{
				Name: q.QueuePath + "/tasks/" + task.TaskID,
				MessageType: &cloudtaskspb.Task_HttpRequest{
					HttpRequest: &cloudtaskspb.HttpRequest{
						Url:        task.TargetURL,
						HttpMethod: cloudtaskspb.HttpMethod_POST,
						Body:       task.Payload,
						Headers:    map[string]string{"Content-Type": "application/json"},
					},
				},
				ScheduleTime: timestamppb.New(task.NotBefore),
			},
		}
		_, err := q.Client.CreateTask(ctx, req)
		if err != nil {
			return queueError{err}
		}
		return nil
	})
}

type queueError struct{ err error }

func (e queueError) Error() string   { return e.err.Error() }
func (e queueError) Unwrap() error   { return e.err }
func (e queueError) Temporary() bool { return true }
