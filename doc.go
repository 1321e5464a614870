// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package taskgraph implements a declarative GPU frame-graph compiler and
// runtime.
//
// A caller declares persistent and transient buffers/images, records tasks
// that access them with typed intents (read, write, read-write,
// concurrent/exclusive, optionally per image subresource slice), and the
// graph compiles a minimally-synchronized command stream: batches of
// hazard-free tasks, pipeline barriers, split-barrier (event) reuse across
// batches, transient-resource memory aliasing, and independently
// precompiled permutations for conditional sub-graphs.
//
// The graph never touches a concrete GPU API directly — it is driven
// entirely through the narrow collaborator interfaces in package
// github.com/gogpu/taskgraph/gpu, which a host program backs with a real
// device, or with package gpu/gputest for testing.
package taskgraph
