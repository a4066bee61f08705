// Package producer abstracts the system under evaluation: something that
// turns a question into an answer. Two implementations exist, one speaking
// HTTP to a running chat endpoint and one driving an interactive subprocess.
package producer

import "context"

type Producer interface {
	Name() string

	// Produce asks the system under evaluation a single question and
	// returns its answer together with the number of retries spent.
	Produce(ctx context.Context, question string) (string, int, error)

	// Health reports whether the system is reachable before a batch starts.
	Health(ctx context.Context) error
}
