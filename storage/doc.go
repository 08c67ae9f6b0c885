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


// Package storage provides the storage abstraction layer for vectra.
//
// This package defines repository interfaces that decouple storage
// implementations from the pipeline. Two backends exist:
//
//   - storage/badger: durable local job-state store. The persisted job
//     row is the source of truth for job outcomes; any in-memory
//     signaling on top of it is an optimization.
//   - storage/postgres: the connection pool, document registry,
//     versioned encryption keys, and the encrypted vector store with
//     similarity search (pgvector).
//
// Public constructors return interface types so consumers never couple
// to a concrete backend; internal constructors may return concrete
// types within their implementation package.
//
// All repository implementations must be thread-safe, and all methods
// accept context.Context for cancellation and timeout support.
package storage
