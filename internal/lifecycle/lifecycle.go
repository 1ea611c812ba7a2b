// Package lifecycle holds the authoritative status transition tables for users and orders.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("invalid transition")

// Actor is whoever requests a status change.
type Actor string

const (
	ActorDriver Actor = "driver"
	ActorClient Actor = "client"
	ActorAdmin  Actor = "admin"
)

type transitionKey[S comparable] struct {
	from  S
	to    S
	actor Actor
}

type table[S ~string] struct {
	order []S
	allow map[transitionKey[S]]bool
}

type transition[S ~string] struct {
	From  S
	To    S
	Actor Actor
}

func newTable[S ~string](transitions []transition[S]) table[S] {
	t := table[S]{allow: make(map[transitionKey[S]]bool, len(transitions))}
	seen := make(map[S]bool)
	for _, tr := range transitions {
		t.allow[transitionKey[S]{tr.From, tr.To, tr.Actor}] = true
		for _, s := range []S{tr.From, tr.To} {
			if !seen[s] {
				seen[s] = true
				t.order = append(t.order, s)
			}
		}
	}
	return t
}

func (t table[S]) check(from, to S, actor Actor) error {
	if t.allow[transitionKey[S]{from, to, actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not allowed for %s (valid: %s)",
		ErrInvalidTransition, from, to, actor, t.describe(from, actor))
}

func (t table[S]) next(from S, actor Actor) []S {
	var out []S
	for _, to := range t.order {
		if t.allow[transitionKey[S]{from, to, actor}] {
			out = append(out, to)
		}
	}
	return out
}

func (t table[S]) describe(from S, actor Actor) string {
	next := t.next(from, actor)
	if len(next) == 0 {
		return "none"
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
