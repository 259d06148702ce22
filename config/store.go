// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"strings"
)

// Store receives config values under dotted keys, e.g. "http.port".
type Store interface {
	Set(key string, v any) error
}

// EmptyKeyError occurs when a key, or one of its dotted segments, is empty.
type EmptyKeyError struct {
	Key string
}

// Error implements the [error] interface.
func (e EmptyKeyError) Error() string {
	return fmt.Sprintf("config key has an empty segment: %q", e.Key)
}

// KeyConflictError occurs when a key is nested below a parent which
// already holds a plain value, e.g. setting "http.port" after "http".
type KeyConflictError struct {
	Key    string
	Parent string
}

// Error implements the [error] interface.
func (e KeyConflictError) Error() string {
	return fmt.Sprintf("can not set %s since %s already holds a value", e.Key, e.Parent)
}

type inMemoryStore map[string]any

func (m inMemoryStore) Set(key string, v any) error {
	segs := strings.Split(key, ".")
	for _, seg := range segs {
		if seg == "" {
			return EmptyKeyError{Key: key}
		}
	}

	cur := map[string]any(m)
	last := len(segs) - 1
	for i, seg := range segs[:last] {
		next, ok := cur[seg]
		if !ok {
			sub := make(map[string]any)
			cur[seg] = sub
			cur = sub
			continue
		}

		sub, ok := next.(map[string]any)
		if !ok {
			return KeyConflictError{
				Key:    key,
				Parent: strings.Join(segs[:i+1], "."),
			}
		}
		cur = sub
	}
	cur[segs[last]] = v
	return nil
}
