// Package llm provides an OpenRouter chat client used to write scripts.
//
// Client.CompleteJSON sends a system and user prompt with a json_object
// response format and returns the raw content. Content may arrive in the
// message, a streaming delta, the legacy text field or tool call arguments.
// DecodeLLMJSON strips markdown fences and surrounding prose before decoding.
//
// The client makes exactly one request per call. Errors are tagged with the
// services markers so the generation retry policy can classify them: 408, 429
// and 5xx are transient, other 4xx are fatal, and an absent key is a
// configuration error.
package llm
