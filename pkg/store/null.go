package store

import "context"

// Null is a Store that remembers nothing. Every lookup misses and every
// write succeeds silently; it backs --no-cache runs without branching in
// the orchestrator.
type Null struct{}

var _ Store = Null{}

func (Null) Get(context.Context, string, string) (*Entry, bool, error) { return nil, false, nil }

func (Null) Put(context.Context, string, string, Entry) error { return nil }

func (Null) HasNegative(context.Context, string, string) (bool, error) { return false, nil }

func (Null) History(context.Context, string) ([]Version, error) { return nil, nil }

func (Null) Stats(context.Context) (Stats, error) { return Stats{}, nil }

func (Null) Close() error { return nil }
