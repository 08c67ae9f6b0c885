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


// Package search implements the retrieval read path: a query is
// embedded through the rate-limited embedding client and matched
// against the encrypted vector store by cosine similarity.
//
// Results come back as decrypted plaintext, ranked by similarity in
// non-increasing order. A SearchMonitor can observe each stage,
// including which hits contain the query words verbatim.
package search
