// Copyright 2025 Poiesic Systems
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


// Package search provides lexical, vector and hybrid retrieval over chunks.
//
// The Searcher type runs one of three modes against the stored index
// families:
//   - fulltext: bigram text similarity, bounded by a substring pre-filter
//   - vector: cosine similarity against a caller-supplied query embedding
//   - hybrid: both scans merged per chunk by weighted sum
//
// Results are filtered by collection scope, channel intersection,
// validity windows and tombstones, then ranked deterministically by
// score descending with chunk ID as tiebreak.
package search
