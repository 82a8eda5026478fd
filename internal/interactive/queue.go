package interactive

import (
	"sync"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

type reactionJob struct {
	channelID string
	messageID string
	emojis    []string
}

// reactionQueue adds bot reactions in the background, one message at a time
type reactionQueue struct {
	conn bot.Connection
	jobs chan reactionJob
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newReactionQueue(conn bot.Connection, size int) *reactionQueue {
	q := &reactionQueue{
		conn: conn,
		jobs: make(chan reactionJob, size),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// enqueue blocks while the buffer is full
func (q *reactionQueue) enqueue(job reactionJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

func (q *reactionQueue) pending() int {
	return len(q.jobs)
}

func (q *reactionQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

// process adds the reactions in order and gives up on the message at the
// first failure, which usually means it was deleted.
func (q *reactionQueue) process(job reactionJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("reaction-queue-panic-recovered")
		}
	}()
	for _, emoji := range job.emojis {
		if err := q.conn.AddReaction(job.channelID, job.messageID, emoji); err != nil {
			logger.WithFields(logrus.Fields{
				"message_id": job.messageID,
				"emoji":      emoji,
				"error":      err,
			}).Debug("failed-to-add-reaction")
			return
		}
	}
}

// close stops the worker. Jobs still buffered are dropped.
func (q *reactionQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}
