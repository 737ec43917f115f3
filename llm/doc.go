/*
Package llm defines the text-generation contract used by the workflow
engine and its concrete providers.

Provider is the uniform interface: a synchronous Completion call and a
channel-based Stream call, both carrying the full message history plus
any tool schemas. The OpenAI-compatible Provider implementation covers
every backend speaking that wire format (OpenAI, Groq, and friends);
FakeProvider serves tests and keyless development.

Registry holds the configured models. It is built once at process start
and passed to whoever needs it; there is no package-level model cache.
*/
package llm
