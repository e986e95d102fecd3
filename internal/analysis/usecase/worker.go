package usecase

import (
	"context"
	"log"
	"sync"
)

// AnalysisJob represents one queued analysis run
type AnalysisJob struct {
	UserID      string
	TaskID      string
	StartCursor string
}

// AnalysisWorkerService dispatches analysis runs onto a fixed worker
// pool. One job is one sequential run; runs for different users may
// execute concurrently. Per-user serialization is the trigger caller's
// concern, not enforced here.
type AnalysisWorkerService struct {
	runner      *Runner
	jobQueue    chan AnalysisJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
}

func NewAnalysisWorkerService(runner *Runner, workerCount int) *AnalysisWorkerService {
	if workerCount <= 0 {
		workerCount = 3 // Default to 3 workers
	}

	return &AnalysisWorkerService{
		runner:      runner,
		jobQueue:    make(chan AnalysisJob, 100), // Buffered channel
		workerCount: workerCount,
	}
}

// Start starts the analysis workers
func (s *AnalysisWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Printf("[AnalysisWorker] Started %d workers", s.workerCount)
}

// Stop stops all workers gracefully
func (s *AnalysisWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.jobQueue)
	s.workerWg.Wait()
	log.Println("[AnalysisWorker] All workers stopped")
}

func (s *AnalysisWorkerService) worker(id int) {
	defer s.workerWg.Done()

	for job := range s.jobQueue {
		// The task row already records the failure; the log is for ops.
		if err := s.runner.Execute(context.Background(), job.UserID, job.TaskID, job.StartCursor); err != nil {
			log.Printf("[AnalysisWorker] Task %s failed: %v", job.TaskID, err)
		}
	}

	log.Printf("[AnalysisWorker] Worker %d stopped", id)
}

// QueueJob adds a job to the queue (non-blocking).
// Returns false when the queue is full or the service has stopped.
func (s *AnalysisWorkerService) QueueJob(job AnalysisJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	select {
	case s.jobQueue <- job:
		return true
	default:
		return false
	}
}
