// Copyright 2026 Polisight Systems
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


package jobs

import "errors"

var (
	// ErrRepositoryRequired indicates queue construction without a job store.
	ErrRepositoryRequired = errors.New("job repository is required")

	// ErrNoHandler indicates an enqueue for a job type with no
	// registered handler.
	ErrNoHandler = errors.New("no handler registered for job type")

	// ErrHandlerRequired indicates a nil handler registration.
	ErrHandlerRequired = errors.New("handler cannot be nil")

	// ErrWaitTimeout indicates a waiter's deadline elapsed. The
	// underlying job keeps running; the timeout is advisory to the
	// waiter only.
	ErrWaitTimeout = errors.New("timed out waiting for job")

	// ErrQueueClosed indicates an operation on a released queue.
	ErrQueueClosed = errors.New("queue is closed")
)
