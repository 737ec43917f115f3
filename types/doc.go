/*
Package types provides the shared type contracts for agentd.

It is the lowest-level package in the module and depends on no other
agentd package, so that workflow, guard, llm, tools, store and api can
all share one vocabulary without import cycles.

Core types:

  - Message / Role / ToolCall: one conversation turn; Role is a closed
    set (human, agent, tool, custom) and rendering or merge behavior is
    selected with exhaustive switches, never string sniffing
  - Verdict / Assessment: structured safety classification outcome
    (safe, unsafe with categories, error)
  - ConversationState: per-thread state holding the message history,
    the staging buffer for pending tool results, and routing flags
  - Error / ErrorCode: structured error taxonomy with HTTP status
    mapping and retryability
*/
package types
