package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecomputeJob asks for one participant's progress to be re-evaluated.
type RecomputeJob struct {
	UserID      uuid.UUID
	ChallengeID uuid.UUID
}

// RecomputeDispatcher decouples activity writes from progress updates: an
// activity write enqueues one job per affected challenge, and a small worker
// pool drains the queue. Jobs for the same participant may interleave; the
// store's monotonic merge makes that safe.
type RecomputeDispatcher struct {
	challenges *ChallengeService
	workers    int
	jobQueue   chan RecomputeJob
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

func NewRecomputeDispatcher(challenges *ChallengeService) *RecomputeDispatcher {
	d := &RecomputeDispatcher{
		challenges: challenges,
		workers:    4,
		jobQueue:   make(chan RecomputeJob, 256),
		stopChan:   make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func (d *RecomputeDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *RecomputeDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *RecomputeDispatcher) processJob(job RecomputeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := d.challenges.RecomputeForUser(ctx, job.UserID, job.ChallengeID); err != nil {
		log.Printf("Recompute failed for user %s, challenge %s: %v", job.UserID, job.ChallengeID, err)
	}
}

// Enqueue queues a recompute, dropping it with a log line if the queue stays
// full; a later activity write or on-demand recompute will catch the row up.
func (d *RecomputeDispatcher) Enqueue(job RecomputeJob) {
	select {
	case d.jobQueue <- job:
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue recompute for user %s, challenge %s: queue full", job.UserID, job.ChallengeID)
	}
}

func (d *RecomputeDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
