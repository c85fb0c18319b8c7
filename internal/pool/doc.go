// Package pool implements the bounded worker pool shared by all services.
//
// The pool admits at most MaxTasks concurrent tasks. Submit never blocks
// indefinitely: when the pool is full it waits for a task to finish, at most
// AllocRetries times, and then reports the task as not admitted. Finished
// tasks release their slot and are removed from the outstanding set by the
// pool itself. Drain waits for outstanding tasks without cancelling them.
package pool
