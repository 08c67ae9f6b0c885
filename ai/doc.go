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


// Package ai provides abstractions for the external services the
// pipeline depends on.
//
// Two interfaces cover the external surface:
//
//   - Parser: converts raw document bytes into extracted text
//   - Embedder: converts text into fixed-dimension embedding vectors
//
// Implementation sub-packages:
//
//   - ai/docparse: parsing-service client over HTTP
//   - ai/openai: embedding client for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Production constructors return interface types to enforce abstraction;
// mock constructors return concrete types so tests can inject behavior
// and assert call counts.
//
// Both clients are typically wrapped in the Throttled decorators from
// this package, which enforce a concurrency cap, minimum spacing between
// call starts, and bounded exponential-backoff retry. A client that
// exhausts its retries returns a structured error to the caller; it
// never takes the process down.
package ai
