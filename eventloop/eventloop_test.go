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

package eventloop_test

import (
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/paygate/eventloop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Start()
	defer loop.Stop()

	var mutex sync.Mutex
	var order []int
	record := func(i int) {
		mutex.Lock()
		order = append(order, i)
		mutex.Unlock()
	}
	for i := range 5 {
		assert.True(t, loop.Post(func() { record(i) }))
	}
	loop.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoopNestedPostRunsAfterCurrentTask(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Start()
	defer loop.Stop()

	var order []string
	loop.Post(func() {
		loop.Post(func() {
			order = append(order, "deferred")
		})
		order = append(order, "current")
	})
	loop.Wait()
	assert.Equal(t, []string{"current", "deferred"}, order)
}

func TestLoopRecoversPanic(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Start()
	defer loop.Stop()

	ran := false
	loop.Post(func() { panic("boom") })
	loop.Post(func() { ran = true })
	loop.Wait()
	assert.True(t, ran)
}

func TestLoopStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Start()
	ran := false
	loop.Post(func() { ran = true })
	loop.Stop()
	assert.True(t, ran)
	assert.False(t, loop.Post(func() {}))
	// Stopping twice is harmless
	loop.Stop()
}

func TestLoopStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Post(func() {})
	loop.Stop()
	loop.Wait()
	assert.False(t, loop.Post(func() {}))
}

func TestLoopShutdownFromTask(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Start()
	var order []int
	loop.Post(func() {
		order = append(order, 1)
		loop.Shutdown()
		// Posts made after shutdown are refused
		assert.False(t, loop.Post(func() { order = append(order, 3) }))
	})
	loop.Post(func() { order = append(order, 2) })
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after shutdown from a task")
	}
	assert.Equal(t, []int{1, 2}, order)
	// Stop after shutdown returns immediately
	loop.Stop()
}

func TestLoopStartAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := eventloop.New(eventloop.NewConfig())
	loop.Stop()
	loop.Start()
	assert.False(t, loop.Post(func() {}))
	<-loop.Done()
}
