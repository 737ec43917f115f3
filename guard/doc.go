/*
Package guard wraps the content-safety classification capability and the
domain-specific topic override.

Classifier renders the conversation into a fixed review prompt, sends it
to a dedicated moderation model, and parses the raw output by exact
contract: the literal "safe", or exactly two lines of "unsafe" plus a
comma-separated category code list. Anything else is an error verdict,
never silently safe.

When no moderation model is configured the classifier fails open and
returns safe verdicts without calling out. The degraded mode is exposed
through Degraded() so operators can see that the gate is down.

TopicOverride implements a business restriction the classifier's
taxonomy does not encode: messages matching a denylist term without a
matching allowlist term are forced unsafe with a fixed category,
regardless of what the classifier said.
*/
package guard
