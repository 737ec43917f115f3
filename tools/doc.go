/*
Package tools defines the uniform tool-invocation interface used by the
workflow engine, a name-keyed registry, and the concrete web search tool.

A Tool turns a model-requested call into a content string; Describe
exposes its schema so the llm layer can advertise it. The engine only
knows the registry, so adding tools never changes engine code.
*/
package tools
