package jobqueue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bonlog/bonlog/internal/pkg/cache"
)

const (
	JobKeyPrefix = "job:"
	JobQueueKey  = "job_queue"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Handler processes one job of a given type.
type Handler func(ctx context.Context, job *Job) error

var globalQueue *Queue

// SetGlobalQueue registers the process-wide queue used by producers.
func SetGlobalQueue(q *Queue) {
	globalQueue = q
}

// GetQueue returns the process-wide queue, or nil before startup.
func GetQueue() *Queue {
	return globalQueue
}

// Queue manages background jobs using a Redis list. Workers block-pop job
// ids, load the job body and dispatch by type.
type Queue struct {
	client   *redis.Client
	workers  int
	handlers map[JobType]Handler
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewQueue creates a new job queue.
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}

	return &Queue{
		client:   cache.GetClient(),
		workers:  workers,
		handlers: make(map[JobType]Handler),
		stopCh:   make(chan struct{}),
	}
}

// Register installs a handler for a job type. Must be called before Start.
func (q *Queue) Register(jobType JobType, handler Handler) {
	q.handlers[jobType] = handler
}

// Start launches the workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	log.Printf("[JobQueue] starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the workers and waits for in-flight jobs.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
}

// Enqueue stores a job body and pushes its id onto the queue.
func (q *Queue) Enqueue(jobType JobType, payload map[string]interface{}) (string, error) {
	ctx := context.Background()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		res, err := q.client.BRPop(ctx, 2*time.Second, JobQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("[JobQueue] worker %d pop error: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		q.process(ctx, res[1])
	}
}

func (q *Queue) process(ctx context.Context, jobID string) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		log.Printf("[JobQueue] job %s body missing: %v", jobID, err)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		log.Printf("[JobQueue] job %s decode failed: %v", jobID, err)
		return
	}

	handler, ok := q.handlers[job.Type]
	if !ok {
		log.Printf("[JobQueue] no handler for job type %s", job.Type)
		return
	}

	job.Status = JobStatusProcessing
	q.save(ctx, &job)

	if err := handler(ctx, &job); err != nil {
		job.RetryCount++
		if job.RetryCount < job.MaxRetries {
			job.Status = JobStatusPending
			q.save(ctx, &job)
			q.client.LPush(ctx, JobQueueKey, job.ID)
			return
		}
		job.Status = JobStatusFailed
		job.ErrorMsg = err.Error()
		q.save(ctx, &job)
		log.Printf("[JobQueue] job %s (%s) failed permanently: %v", job.ID, job.Type, err)
		return
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.ProcessedAt = &now
	q.save(ctx, &job)
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
}
