// Package shared holds what the server and the CLI client agree on: the
// request and response messages of the auth API, their validation rules, and
// a couple of helpers for handling secrets in memory.
package shared
