// Command sam runs the chat-driven session manager and offers offline tools
// for inspecting its work directory, job journal, and media pipeline.
package main
