// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package eventloop provides a single goroutine that runs posted tasks in
// order. Tasks posted from within a running task run after it returns
package eventloop

import (
	"log/slog"
	"sync"
)

// Task is a unit of work run on the loop goroutine
type Task func()

// Config is used to configure a Loop
type Config struct {
	Logger *slog.Logger
}

// LoopOptionFunc represents a function used to modify the Loop config
type LoopOptionFunc func(*Config)

// NewConfig returns a new Loop config object with the provided options
func NewConfig(options ...LoopOptionFunc) Config {
	c := Config{
		Logger: slog.Default(),
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) LoopOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Loop runs tasks sequentially on a dedicated goroutine. The queue is
// unbounded so Post never blocks the caller
type Loop struct {
	config    Config
	mutex     sync.Mutex
	queue     []Task
	pending   int
	started   bool
	stopped   bool
	wakeChan  chan struct{}
	doneChan  chan struct{}
	idleCond  *sync.Cond
	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns a new Loop. It must be started before tasks run
func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	l := &Loop{
		config:   cfg,
		wakeChan: make(chan struct{}, 1),
		doneChan: make(chan struct{}),
	}
	l.idleCond = sync.NewCond(&l.mutex)
	return l
}

// Start launches the loop goroutine
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		// A loop stopped before it started has already closed Done
		if l.stopped {
			return
		}
		l.started = true
		go l.run()
	})
}

// Stop prevents further posts, runs the tasks already queued and waits for
// the loop goroutine to exit. It must not be called from a task
func (l *Loop) Stop() {
	l.Shutdown()
	<-l.doneChan
}

// Shutdown prevents further posts and returns without waiting. The tasks
// already queued still run, after which the loop goroutine exits and Done is
// closed. It is safe to call from a task
func (l *Loop) Shutdown() {
	l.stopOnce.Do(func() {
		l.mutex.Lock()
		l.stopped = true
		started := l.started
		l.mutex.Unlock()
		if !started {
			// Nothing will ever run the queue
			l.mutex.Lock()
			l.queue = nil
			l.pending = 0
			l.idleCond.Broadcast()
			l.mutex.Unlock()
			close(l.doneChan)
			return
		}
		l.wake()
	})
}

// Done returns a channel that is closed once the loop has stopped
func (l *Loop) Done() <-chan struct{} {
	return l.doneChan
}

// Post queues a task. It returns false if the loop has been stopped
func (l *Loop) Post(task func()) bool {
	l.mutex.Lock()
	if l.stopped {
		l.mutex.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.pending++
	l.mutex.Unlock()
	l.wake()
	return true
}

// Wait blocks until every posted task, including tasks posted by other
// tasks, has finished. It must not be called from a task
func (l *Loop) Wait() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for l.pending > 0 {
		l.idleCond.Wait()
	}
}

func (l *Loop) wake() {
	select {
	case l.wakeChan <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.doneChan)
	for {
		l.mutex.Lock()
		if len(l.queue) == 0 {
			if l.stopped {
				l.mutex.Unlock()
				return
			}
			l.mutex.Unlock()
			<-l.wakeChan
			continue
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mutex.Unlock()
		l.runTask(task)
		l.mutex.Lock()
		l.pending--
		if l.pending == 0 {
			l.idleCond.Broadcast()
		}
		l.mutex.Unlock()
	}
}

func (l *Loop) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.config.Logger.Error(
				"recovered panic in event loop task",
				"component", "eventloop",
				"panic", r,
			)
		}
	}()
	task()
}
