/*
Package workflow runs the conversation graph.

A user turn moves through a small state graph: the input is screened by
the safety classifier, then either blocked with a refusal or handed to
the reasoning model, which may loop through tool invocations before
producing the final answer. The answer is screened again before it is
committed to the thread.

Engine is the entry point. Run executes a turn and returns the produced
messages; Stream does the same while emitting typed events (token,
message, error, done) on a channel as the turn progresses.
*/
package workflow
